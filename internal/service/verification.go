package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
)

// Codes expire ten minutes after issuance and are unusable afterwards
// regardless of correctness.
const otpTTL = 10 * time.Minute

// VerificationService is the step-up gate in front of destructive or
// identity-bearing actions. It stages the action's payload together with
// a single-use numeric code; the effect is only applied once the code
// comes back on a second round trip.
type VerificationService struct {
	challengeRepo ChallengeRepository
	notifier      Notifier
}

func NewVerificationService(challengeRepo ChallengeRepository, notifier Notifier) *VerificationService {
	return &VerificationService{
		challengeRepo: challengeRepo,
		notifier:      notifier,
	}
}

// Issue stages the payload behind a fresh code and emails it to the
// actor. Issuing replaces any prior challenge for the same purpose, so an
// outstanding code stops working the moment a new one is requested.
// Code delivery is commit-critical: a challenge nobody can complete is
// worse than a failed request.
func (s *VerificationService) Issue(ctx context.Context, user *domain.User, purpose domain.ChallengePurpose, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal staged payload: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	challenge := &domain.Challenge{
		UserID:    user.ID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
		Payload:   raw,
	}
	if err := s.challengeRepo.Upsert(ctx, challenge); err != nil {
		return err
	}

	return s.notifier.Send(ctx, otpNotification(user, code))
}

// Confirm checks the code and unmarshals the staged payload into
// payload. Mismatched or expired codes are reported without consuming
// the challenge; the actor can retry or request a resend.
func (s *VerificationService) Confirm(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose, code string, payload interface{}) error {
	challenge, err := s.challengeRepo.Get(ctx, userID, purpose)
	if err != nil {
		return err
	}

	if code == "" || challenge.Code != code {
		return errdefs.ErrInvalidOTP
	}
	if challenge.Expired(time.Now()) {
		return errdefs.ErrOTPExpired
	}

	if payload != nil {
		if err := json.Unmarshal(challenge.Payload, payload); err != nil {
			return fmt.Errorf("failed to unmarshal staged payload: %w", err)
		}
	}
	return nil
}

// Resend regenerates the code for an already-staged payload. Fails with
// ErrNoPendingChallenge when nothing is staged.
func (s *VerificationService) Resend(ctx context.Context, user *domain.User, purpose domain.ChallengePurpose) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	if err := s.challengeRepo.RefreshCode(ctx, user.ID, purpose, code, time.Now().Add(otpTTL)); err != nil {
		return err
	}

	return s.notifier.Send(ctx, otpNotification(user, code))
}

// Consume clears the challenge once the staged effect has been applied.
func (s *VerificationService) Consume(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) error {
	return s.challengeRepo.Delete(ctx, userID, purpose)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func otpNotification(user *domain.User, code string) *domain.Notification {
	return &domain.Notification{
		Kind:           domain.NotifyOTPCode,
		RecipientEmail: user.Email,
		RecipientName:  user.Name,
		Params:         map[string]string{"code": code},
	}
}
