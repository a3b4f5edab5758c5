package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSubmitted Status = "Submitted"
	StatusForwarded Status = "Forwarded"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
)

type Category string

const (
	CategoryAssignment Category = "Assignment"
	CategoryThesis     Category = "Thesis"
	CategoryReport     Category = "Report"
)

type HistoryAction string

const (
	ActionSubmitted   HistoryAction = "Submitted"
	ActionForwarded   HistoryAction = "Forwarded"
	ActionApproved    HistoryAction = "Approved"
	ActionRejected    HistoryAction = "Rejected"
	ActionResubmitted HistoryAction = "Re-submitted"
)

// HistoryEntry is one immutable audit record. Entries are only ever
// appended, in the same write that moves the status.
type HistoryEntry struct {
	Action    HistoryAction `json:"action"`
	By        string        `json:"by"`
	Remark    string        `json:"remark,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	FileURL   *string       `json:"file_url,omitempty"`
}

type Assignment struct {
	ID               uuid.UUID
	Title            string
	Description      *string
	Category         Category
	CourseCode       *string
	Status           Status
	StudentID        uuid.UUID
	DepartmentID     uuid.UUID
	ReviewerID       *uuid.UUID
	FileURL          *string
	OriginalFileName *string
	SubmissionDate   *time.Time
	History          []HistoryEntry
	CreatedAt        time.Time
	EditedAt         time.Time
}

// Pending reports whether the record still needs reviewer action.
func (a *Assignment) Pending() bool {
	return a.Status == StatusSubmitted || a.Status == StatusForwarded
}

// Terminal statuses keep owning and reviewing users deletable; anything
// else pins them (see UserService.DeleteUser).
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}
