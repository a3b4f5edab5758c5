package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/repository"
	"github.com/jatinpathania/University-assignment-approval-system/internal/storage"
)

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	ApplyTransition(ctx context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error)
	CountByStatus(ctx context.Context, filter repository.StatusFilter) (map[domain.Status]int, error)
	CountBlockingDeletion(ctx context.Context, userID uuid.UUID) (int, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, phone *string) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DepartmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error)
}

type ChallengeRepository interface {
	Upsert(ctx context.Context, challenge *domain.Challenge) error
	RefreshCode(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose, code string, expiresAt time.Time) error
	Get(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) (*domain.Challenge, error)
	Delete(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) error
}

// DocumentStore uploads are synchronous: the record write that references
// the returned URL only happens after the upload succeeded.
type DocumentStore interface {
	Upload(ctx context.Context, data []byte, filename string) (*storage.UploadResult, error)
}

// Notifier is the two-tier notification contract. Send must succeed for
// the surrounding action to succeed; SendAsync is best-effort and never
// fails the caller.
type Notifier interface {
	Send(ctx context.Context, notification *domain.Notification) error
	SendAsync(ctx context.Context, notification *domain.Notification)
}

// Verifier is the step-up gate consumed by the review and user services.
type Verifier interface {
	Issue(ctx context.Context, user *domain.User, purpose domain.ChallengePurpose, payload interface{}) error
	Confirm(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose, code string, payload interface{}) error
	Resend(ctx context.Context, user *domain.User, purpose domain.ChallengePurpose) error
	Consume(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) error
}
