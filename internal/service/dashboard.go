package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/ctxdata"
	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/internal/repository"
)

// DashboardStats is a status-count rollup for one actor's view of the
// record store.
type DashboardStats struct {
	Total     int `json:"total"`
	Draft     int `json:"draft"`
	Submitted int `json:"submitted"`
	Forwarded int `json:"forwarded"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`

	// Percentages are only populated for department rollups.
	ApprovalRate  float64 `json:"approval_rate,omitempty"`
	RejectionRate float64 `json:"rejection_rate,omitempty"`
}

type DashboardService struct {
	assignmentRepo AssignmentRepository
	userRepo       UserRepository
}

func NewDashboardService(assignmentRepo AssignmentRepository, userRepo UserRepository) *DashboardService {
	return &DashboardService{assignmentRepo: assignmentRepo, userRepo: userRepo}
}

// Stats returns the rollup appropriate to the actor's role: students see
// their own records, reviewers the records assigned to them, HODs their
// whole department.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}

	var filter repository.StatusFilter
	department := false
	switch actor.Role {
	case domain.RoleStudent:
		filter.StudentID = actor.ID
	case domain.RoleProfessor:
		filter.ReviewerID = actor.ID
	case domain.RoleHOD:
		if actor.DepartmentID == nil {
			return nil, errdefs.NewValidationError("department", "you are not assigned to a department")
		}
		filter.DepartmentID = *actor.DepartmentID
		department = true
	default:
		return nil, errdefs.ErrPermissionDenied
	}

	counts, err := s.assignmentRepo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Draft:     counts[domain.StatusDraft],
		Submitted: counts[domain.StatusSubmitted],
		Forwarded: counts[domain.StatusForwarded],
		Approved:  counts[domain.StatusApproved],
		Rejected:  counts[domain.StatusRejected],
	}
	for _, c := range counts {
		stats.Total += c
	}

	if department && stats.Total > 0 {
		stats.ApprovalRate = float64(stats.Approved) * 100 / float64(stats.Total)
		stats.RejectionRate = float64(stats.Rejected) * 100 / float64(stats.Total)
	}
	return stats, nil
}

func (s *DashboardService) actor(ctx context.Context) (*domain.User, error) {
	id, ok := ctxdata.GetUserID(ctx)
	if !ok {
		return nil, errdefs.ErrPermissionDenied
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, errdefs.ErrPermissionDenied
	}
	return s.userRepo.GetByID(ctx, userID)
}
