package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jatinpathania/University-assignment-approval-system/internal/ctxdata"
	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

type CreateUserInput struct {
	Name         string
	Email        string
	Password     string
	Phone        *string
	Role         domain.Role
	DepartmentID *uuid.UUID
}

type UpdateProfileInput struct {
	Name  string
	Email string
	Phone *string
}

type UserService struct {
	userRepo       UserRepository
	assignmentRepo AssignmentRepository
	departmentRepo DepartmentRepository
	verifier       Verifier
	notifier       Notifier
	hasher         PasswordHasher
	log            *logger.Logger
}

func NewUserService(
	userRepo UserRepository,
	assignmentRepo AssignmentRepository,
	departmentRepo DepartmentRepository,
	verifier Verifier,
	notifier Notifier,
	hasher PasswordHasher,
	log *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		departmentRepo: departmentRepo,
		verifier:       verifier,
		notifier:       notifier,
		hasher:         hasher,
		log:            log,
	}
}

// CreateUser registers an account. Admin only. The welcome email is
// best-effort; account creation does not wait on mail delivery.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}

	ve := &errdefs.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Add("name", "name is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		ve.Add("email", "email is required")
	}
	if len(input.Password) < 8 {
		ve.Add("password", "password must be at least 8 characters")
	}
	if !input.Role.IsValid() {
		ve.Add("role", "role must be one of student, professor, HOD, admin")
	}
	if input.Role != domain.RoleAdmin && input.DepartmentID == nil {
		ve.Add("department", "a department is required for this role")
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	if input.DepartmentID != nil {
		if _, err := s.departmentRepo.GetByID(ctx, *input.DepartmentID); err != nil {
			if errors.Is(err, errdefs.ErrNotFound) {
				return nil, errdefs.NewValidationError("department", "selected department does not exist")
			}
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Phone:        input.Phone,
		Role:         input.Role,
		DepartmentID: input.DepartmentID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.notifier.SendAsync(ctx, &domain.Notification{
		Kind:           domain.NotifyWelcome,
		RecipientEmail: user.Email,
		RecipientName:  user.Name,
		Params:         map[string]string{"role": string(user.Role)},
	})
	return user, nil
}

// DeleteUser removes an account, unless the user still anchors live
// assignment records: students with records not yet settled, reviewers
// with submissions awaiting their judgment. The guard keeps history and
// reviewer references valid.
func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	blocking, err := s.assignmentRepo.CountBlockingDeletion(ctx, user.ID)
	if err != nil {
		return err
	}
	if blocking > 0 {
		return errdefs.NewValidationError("user",
			fmt.Sprintf("cannot delete %s: %d assignments still reference this user", user.Name, blocking))
	}

	return s.userRepo.Delete(ctx, userID)
}

// RequestProfileUpdate stages a profile field set behind the verification
// gate. Identity fields decide where credentials and codes get delivered,
// so they change only after a possession check.
func (s *UserService) RequestProfileUpdate(ctx context.Context, input UpdateProfileInput) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}

	ve := &errdefs.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Add("name", "name is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		ve.Add("email", "email is required")
	}
	if len(ve.Fields) > 0 {
		return ve
	}

	payload := domain.ProfileUpdatePayload{
		Name:  strings.TrimSpace(input.Name),
		Email: strings.ToLower(strings.TrimSpace(input.Email)),
		Phone: input.Phone,
	}
	return s.verifier.Issue(ctx, actor, domain.PurposeProfileUpdate, payload)
}

// ConfirmProfileUpdate applies the staged field set once the code checks
// out. The code goes to the address on record, not the staged one.
func (s *UserService) ConfirmProfileUpdate(ctx context.Context, code string) (*domain.User, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}

	var payload domain.ProfileUpdatePayload
	if err := s.verifier.Confirm(ctx, actor.ID, domain.PurposeProfileUpdate, code, &payload); err != nil {
		return nil, err
	}

	updated, err := s.userRepo.UpdateProfile(ctx, actor.ID, payload.Name, payload.Email, payload.Phone)
	if err != nil {
		return nil, err
	}

	// The profile change is committed at this point. A leftover challenge
	// row must not fail the request; it expires on its own.
	if err := s.verifier.Consume(ctx, actor.ID, domain.PurposeProfileUpdate); err != nil {
		s.log.Warn("failed to consume profile update challenge",
			zap.String("user_id", actor.ID.String()), zap.Error(err))
	}
	return updated, nil
}

// ResendProfileUpdateCode regenerates the code for a staged profile
// update; fails when nothing is staged.
func (s *UserService) ResendProfileUpdateCode(ctx context.Context) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	return s.verifier.Resend(ctx, actor, domain.PurposeProfileUpdate)
}

func (s *UserService) GetMe(ctx context.Context) (*domain.User, error) {
	return s.actor(ctx)
}

func (s *UserService) actor(ctx context.Context) (*domain.User, error) {
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

func requireRole(ctx context.Context, role domain.Role) error {
	got, ok := ctxdata.GetUserRole(ctx)
	if !ok || domain.Role(got) != role {
		return errdefs.ErrPermissionDenied
	}
	return nil
}
