package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jatinpathania/University-assignment-approval-system/internal/ctxdata"
	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/internal/repository"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

// minRemarkLength is counted in runes, not bytes, so the minimum holds
// for non-ASCII feedback too.
const minRemarkLength = 10

// maxBulkFiles caps how many documents one bulk draft request may carry.
const maxBulkFiles = 5

// pendingStatuses are the source states reviewer actions may act on.
var pendingStatuses = []domain.Status{domain.StatusSubmitted, domain.StatusForwarded}

type FileUpload struct {
	Data     []byte
	Filename string
}

type CreateDraftInput struct {
	Title       string
	Description *string
	Category    domain.Category
	CourseCode  *string
	File        *FileUpload
}

type CreateDraftsInput struct {
	Title       string
	Description *string
	Category    domain.Category
	Files       []FileUpload
}

type ResubmitInput struct {
	File        *FileUpload
	ReviewerID  *uuid.UUID
	Description *string
}

// ReviewService is the assignment review state machine. Every transition
// validates actor authorization and current-state legality before any
// write, mutates the record and its audit history in one repository call,
// and queues the follow-up notification.
type ReviewService struct {
	assignmentRepo AssignmentRepository
	userRepo       UserRepository
	documents      DocumentStore
	verifier       Verifier
	notifier       Notifier
	log            *logger.Logger
}

func NewReviewService(
	assignmentRepo AssignmentRepository,
	userRepo UserRepository,
	documents DocumentStore,
	verifier Verifier,
	notifier Notifier,
	log *logger.Logger,
) *ReviewService {
	return &ReviewService{
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		documents:      documents,
		verifier:       verifier,
		notifier:       notifier,
		log:            log,
	}
}

// CreateDraft creates a new record in Draft for the acting student. The
// department is resolved from the student, never supplied by the caller.
func (s *ReviewService) CreateDraft(ctx context.Context, input CreateDraftInput) (*domain.Assignment, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleStudent {
		return nil, errdefs.ErrPermissionDenied
	}
	if actor.DepartmentID == nil {
		return nil, errdefs.NewValidationError("department", "you are not assigned to a department")
	}

	ve := &errdefs.ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		ve.Add("title", "title is required")
	}
	if !input.Category.IsValid() {
		ve.Add("category", "category must be one of Assignment, Thesis, Report")
	}
	if input.File == nil || len(input.File.Data) == 0 {
		ve.Add("file", "please upload a valid document")
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	upload, err := s.documents.Upload(ctx, input.File.Data, input.File.Filename)
	if err != nil {
		return nil, err
	}

	assignment := &domain.Assignment{
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Category:         input.Category,
		CourseCode:       input.CourseCode,
		Status:           domain.StatusDraft,
		StudentID:        actor.ID,
		DepartmentID:     *actor.DepartmentID,
		FileURL:          &upload.URL,
		OriginalFileName: &upload.OriginalFileName,
	}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// CreateDrafts creates one Draft per uploaded document under a shared
// title, description and category. With more than one file each draft's
// title gets a "(Part N)" suffix so the records stay distinguishable.
// Drafts created before a failed upload are kept.
func (s *ReviewService) CreateDrafts(ctx context.Context, input CreateDraftsInput) ([]*domain.Assignment, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleStudent {
		return nil, errdefs.ErrPermissionDenied
	}
	if actor.DepartmentID == nil {
		return nil, errdefs.NewValidationError("department", "you are not assigned to a department")
	}

	ve := &errdefs.ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		ve.Add("title", "title is required")
	}
	if !input.Category.IsValid() {
		ve.Add("category", "category must be one of Assignment, Thesis, Report")
	}
	if len(input.Files) == 0 {
		ve.Add("files", "please select at least one document")
	}
	if len(input.Files) > maxBulkFiles {
		ve.Add("files", fmt.Sprintf("at most %d documents per upload", maxBulkFiles))
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	title := strings.TrimSpace(input.Title)
	created := make([]*domain.Assignment, 0, len(input.Files))
	for i, file := range input.Files {
		upload, err := s.documents.Upload(ctx, file.Data, file.Filename)
		if err != nil {
			return nil, err
		}

		assignment := &domain.Assignment{
			Title:            title,
			Description:      input.Description,
			Category:         input.Category,
			Status:           domain.StatusDraft,
			StudentID:        actor.ID,
			DepartmentID:     *actor.DepartmentID,
			FileURL:          &upload.URL,
			OriginalFileName: &upload.OriginalFileName,
		}
		if len(input.Files) > 1 {
			assignment.Title = fmt.Sprintf("%s (Part %d)", title, i+1)
		}
		if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
			return nil, err
		}
		created = append(created, assignment)
	}
	return created, nil
}

// Submit moves a Draft to Submitted, assigns the chosen reviewer and
// stamps the submission date.
func (s *ReviewService) Submit(ctx context.Context, assignmentID, reviewerID uuid.UUID) (*domain.Assignment, error) {
	actor, assignment, err := s.actorAndAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.StudentID != actor.ID {
		return nil, errdefs.ErrPermissionDenied
	}
	if assignment.Status != domain.StatusDraft {
		return nil, errdefs.NewValidationError("status", "only draft assignments can be submitted")
	}

	reviewer, err := s.validReviewer(ctx, reviewerID, assignment.DepartmentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated, err := s.assignmentRepo.ApplyTransition(ctx, repository.TransitionUpdate{
		ID:             assignment.ID,
		FromStatuses:   []domain.Status{domain.StatusDraft},
		Status:         domain.StatusSubmitted,
		ReviewerID:     &reviewer.ID,
		SubmissionDate: &now,
		Entry: domain.HistoryEntry{
			Action:    domain.ActionSubmitted,
			By:        actor.Name,
			Timestamp: now,
		},
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SendAsync(ctx, &domain.Notification{
		Kind:           domain.NotifySubmissionReceived,
		RecipientEmail: reviewer.Email,
		RecipientName:  reviewer.Name,
		Params: map[string]string{
			"assignment_title": assignment.Title,
			"student_name":     actor.Name,
		},
	})
	return updated, nil
}

// Forward reassigns a pending record to another reviewer in the same
// department. Forwarding cycles (A to B, B back to A) are permitted.
func (s *ReviewService) Forward(ctx context.Context, assignmentID, newReviewerID uuid.UUID, note string) (*domain.Assignment, error) {
	actor, assignment, err := s.actorAndAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.ReviewerID == nil || *assignment.ReviewerID != actor.ID {
		return nil, errdefs.ErrPermissionDenied
	}
	if !assignment.Pending() {
		return nil, errdefs.NewValidationError("status", "only submitted or forwarded assignments can be forwarded")
	}
	if newReviewerID == *assignment.ReviewerID {
		return nil, errdefs.NewValidationError("reviewer", "assignment is already assigned to this reviewer")
	}

	reviewer, err := s.validReviewer(ctx, newReviewerID, assignment.DepartmentID)
	if err != nil {
		return nil, err
	}

	updated, err := s.assignmentRepo.ApplyTransition(ctx, repository.TransitionUpdate{
		ID:           assignment.ID,
		FromStatuses: pendingStatuses,
		Status:       domain.StatusForwarded,
		ReviewerID:   &reviewer.ID,
		Entry: domain.HistoryEntry{
			Action:    domain.ActionForwarded,
			By:        actor.Name,
			Remark:    note,
			Timestamp: time.Now(),
		},
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SendAsync(ctx, &domain.Notification{
		Kind:           domain.NotifyAssignmentForwarded,
		RecipientEmail: reviewer.Email,
		RecipientName:  reviewer.Name,
		Params: map[string]string{
			"assignment_title": assignment.Title,
			"forwarded_by":     actor.Name,
			"note":             note,
		},
	})
	return updated, nil
}

// Reject moves a pending record to Rejected. The remark is mandatory for
// professors and HOD overrides alike: rejection without actionable
// feedback is refused.
func (s *ReviewService) Reject(ctx context.Context, assignmentID uuid.UUID, remark string) (*domain.Assignment, error) {
	actor, assignment, err := s.actorAndAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	override, err := s.authorizeReviewerAction(actor, assignment)
	if err != nil {
		return nil, err
	}
	if !assignment.Pending() {
		return nil, errdefs.NewValidationError("status", "only submitted or forwarded assignments can be rejected")
	}
	if utf8.RuneCountInString(strings.TrimSpace(remark)) < minRemarkLength {
		return nil, errdefs.NewValidationError("remark", "rejection feedback is mandatory and must be at least 10 characters")
	}

	updated, err := s.assignmentRepo.ApplyTransition(ctx, repository.TransitionUpdate{
		ID:           assignment.ID,
		FromStatuses: pendingStatuses,
		Status:       domain.StatusRejected,
		Entry: domain.HistoryEntry{
			Action:    domain.ActionRejected,
			By:        displayName(actor, override),
			Remark:    remark,
			Timestamp: time.Now(),
		},
	})
	if err != nil {
		return nil, err
	}

	s.notifyStudent(ctx, assignment, domain.NotifyAssignmentRejected, actor.Name, remark)
	return updated, nil
}

// RequestApproval stages an approval behind the verification gate. The
// record does not change yet: the remark and optional signature file are
// parked on the actor's challenge until the code is confirmed.
func (s *ReviewService) RequestApproval(ctx context.Context, assignmentID uuid.UUID, remark string, signature *FileUpload) error {
	actor, assignment, err := s.actorAndAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeReviewerAction(actor, assignment); err != nil {
		return err
	}
	if !assignment.Pending() {
		return errdefs.NewValidationError("status", "only submitted or forwarded assignments can be approved")
	}

	payload := domain.ApprovalPayload{
		AssignmentID: assignment.ID,
		Remark:       remark,
	}
	if signature != nil && len(signature.Data) > 0 {
		upload, err := s.documents.Upload(ctx, signature.Data, signature.Filename)
		if err != nil {
			return err
		}
		payload.SignatureFileURL = &upload.URL
	}

	return s.verifier.Issue(ctx, actor, domain.PurposeApproval, payload)
}

// ConfirmApproval commits a staged approval after the code checks out.
// The record must still be pending and the actor still authorized: the
// gate protects against a stale challenge racing a forward or reject.
func (s *ReviewService) ConfirmApproval(ctx context.Context, assignmentID uuid.UUID, code string) (*domain.Assignment, error) {
	actor, assignment, err := s.actorAndAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	override, err := s.authorizeReviewerAction(actor, assignment)
	if err != nil {
		return nil, err
	}

	var payload domain.ApprovalPayload
	if err := s.verifier.Confirm(ctx, actor.ID, domain.PurposeApproval, code, &payload); err != nil {
		return nil, err
	}
	if payload.AssignmentID != assignment.ID {
		return nil, errdefs.NewValidationError("assignment", "the pending verification belongs to a different assignment")
	}
	if !assignment.Pending() {
		return nil, errdefs.NewValidationError("status", "assignment is no longer awaiting review")
	}

	updated, err := s.assignmentRepo.ApplyTransition(ctx, repository.TransitionUpdate{
		ID:           assignment.ID,
		FromStatuses: pendingStatuses,
		Status:       domain.StatusApproved,
		Entry: domain.HistoryEntry{
			Action:    domain.ActionApproved,
			By:        displayName(actor, override),
			Remark:    payload.Remark,
			Timestamp: time.Now(),
			FileURL:   payload.SignatureFileURL,
		},
	})
	if err != nil {
		return nil, err
	}

	// The approval is committed at this point. A leftover challenge row
	// must not fail the request; it expires on its own.
	if err := s.verifier.Consume(ctx, actor.ID, domain.PurposeApproval); err != nil {
		s.log.Warn("failed to consume approval challenge",
			zap.String("assignment_id", assignment.ID.String()), zap.Error(err))
	}

	s.notifyStudent(ctx, assignment, domain.NotifyAssignmentApproved, actor.Name, payload.Remark)
	return updated, nil
}

// ResendApprovalCode regenerates the code for a staged approval.
func (s *ReviewService) ResendApprovalCode(ctx context.Context) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	return s.verifier.Resend(ctx, actor, domain.PurposeApproval)
}

// Resubmit moves a Rejected record back to Submitted. The student may
// swap the file, the description and the reviewer; anything omitted is
// kept as is.
func (s *ReviewService) Resubmit(ctx context.Context, assignmentID uuid.UUID, input ResubmitInput) (*domain.Assignment, error) {
	actor, assignment, err := s.actorAndAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.StudentID != actor.ID {
		return nil, errdefs.ErrPermissionDenied
	}
	if assignment.Status != domain.StatusRejected {
		return nil, errdefs.NewValidationError("status", "only rejected assignments can be resubmitted")
	}

	reviewer, err := s.resolveResubmitReviewer(ctx, assignment, input.ReviewerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	upd := repository.TransitionUpdate{
		ID:             assignment.ID,
		FromStatuses:   []domain.Status{domain.StatusRejected},
		Status:         domain.StatusSubmitted,
		ReviewerID:     &reviewer.ID,
		SubmissionDate: &now,
		Description:    input.Description,
		Entry: domain.HistoryEntry{
			Action:    domain.ActionResubmitted,
			By:        actor.Name,
			Timestamp: now,
		},
	}

	if input.File != nil && len(input.File.Data) > 0 {
		upload, err := s.documents.Upload(ctx, input.File.Data, input.File.Filename)
		if err != nil {
			return nil, err
		}
		upd.FileURL = &upload.URL
		upd.OriginalFileName = &upload.OriginalFileName
		upd.Entry.FileURL = &upload.URL
	}

	updated, err := s.assignmentRepo.ApplyTransition(ctx, upd)
	if err != nil {
		return nil, err
	}

	s.notifier.SendAsync(ctx, &domain.Notification{
		Kind:           domain.NotifySubmissionReceived,
		RecipientEmail: reviewer.Email,
		RecipientName:  reviewer.Name,
		Params: map[string]string{
			"assignment_title": assignment.Title,
			"student_name":     actor.Name,
		},
	})
	return updated, nil
}

// Get enforces visibility: drafts are private to the owning student;
// pending and settled records are visible to the owner, the assigned
// reviewer, the department head and admins.
func (s *ReviewService) Get(ctx context.Context, assignmentID uuid.UUID) (*domain.Assignment, error) {
	actor, assignment, err := s.actorAndAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if assignment.StudentID == actor.ID {
		return assignment, nil
	}
	if assignment.Status == domain.StatusDraft {
		return nil, errdefs.ErrPermissionDenied
	}
	if actor.Role == domain.RoleAdmin ||
		actor.IsDepartmentHead(assignment.DepartmentID) ||
		(assignment.ReviewerID != nil && *assignment.ReviewerID == actor.ID) {
		return assignment, nil
	}
	return nil, errdefs.ErrPermissionDenied
}

func (s *ReviewService) actor(ctx context.Context) (*domain.User, error) {
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

func (s *ReviewService) actorAndAssignment(ctx context.Context, assignmentID uuid.UUID) (*domain.User, *domain.Assignment, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, nil, err
	}
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	return actor, assignment, nil
}

// authorizeReviewerAction admits the assigned reviewer, or the HOD of the
// record's department acting as an override. Returns whether the action
// is an override, for the audit trail display name.
func (s *ReviewService) authorizeReviewerAction(actor *domain.User, assignment *domain.Assignment) (bool, error) {
	if assignment.ReviewerID != nil && *assignment.ReviewerID == actor.ID {
		return false, nil
	}
	if actor.IsDepartmentHead(assignment.DepartmentID) {
		return true, nil
	}
	return false, errdefs.ErrPermissionDenied
}

// validReviewer checks that the target exists, may review, and belongs
// to the record's department.
func (s *ReviewService) validReviewer(ctx context.Context, reviewerID, departmentID uuid.UUID) (*domain.User, error) {
	reviewer, err := s.userRepo.GetByID(ctx, reviewerID)
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			return nil, errdefs.NewValidationError("reviewer", "selected reviewer does not exist")
		}
		return nil, err
	}
	if !reviewer.Role.CanReview() {
		return nil, errdefs.NewValidationError("reviewer", "selected reviewer must be a professor or HOD")
	}
	if reviewer.DepartmentID == nil || *reviewer.DepartmentID != departmentID {
		return nil, errdefs.NewValidationError("reviewer", "selected reviewer belongs to a different department")
	}
	return reviewer, nil
}

func (s *ReviewService) resolveResubmitReviewer(ctx context.Context, assignment *domain.Assignment, newReviewerID *uuid.UUID) (*domain.User, error) {
	if newReviewerID != nil {
		return s.validReviewer(ctx, *newReviewerID, assignment.DepartmentID)
	}
	if assignment.ReviewerID == nil {
		return nil, errdefs.NewValidationError("reviewer", "a reviewer must be selected")
	}
	return s.userRepo.GetByID(ctx, *assignment.ReviewerID)
}

func (s *ReviewService) notifyStudent(ctx context.Context, assignment *domain.Assignment, kind domain.NotificationKind, reviewerName, remark string) {
	student, err := s.userRepo.GetByID(ctx, assignment.StudentID)
	if err != nil {
		s.log.Warn("failed to resolve student for notification",
			zap.String("assignment_id", assignment.ID.String()), zap.Error(err))
		return
	}
	s.notifier.SendAsync(ctx, &domain.Notification{
		Kind:           kind,
		RecipientEmail: student.Email,
		RecipientName:  student.Name,
		Params: map[string]string{
			"assignment_title": assignment.Title,
			"reviewer_name":    reviewerName,
			"remark":           remark,
		},
	})
}

func displayName(actor *domain.User, override bool) string {
	if override {
		return actor.Name + " (HOD Override)"
	}
	return actor.Name
}
