package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ChallengePurpose string

const (
	PurposeApproval      ChallengePurpose = "approval"
	PurposeProfileUpdate ChallengePurpose = "profile_update"
)

// Challenge is the ephemeral step-up verification state: a single-use
// numeric code plus the side effect it guards, staged until the code is
// confirmed. One challenge per (user, purpose); issuing a new one
// replaces the old.
type Challenge struct {
	UserID    uuid.UUID
	Purpose   ChallengePurpose
	Code      string
	ExpiresAt time.Time
	Payload   json.RawMessage
	CreatedAt time.Time
}

func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ApprovalPayload is staged by RequestApproval and applied by
// ConfirmApproval once the code checks out.
type ApprovalPayload struct {
	AssignmentID     uuid.UUID `json:"assignment_id"`
	Remark           string    `json:"remark,omitempty"`
	SignatureFileURL *string   `json:"signature_file_url,omitempty"`
}

// ProfileUpdatePayload is the staged profile field set for an identity
// change.
type ProfileUpdatePayload struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}
