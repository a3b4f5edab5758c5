package domain

// NotificationKind selects the email template the notifier daemon
// renders for an event.
type NotificationKind string

const (
	NotifySubmissionReceived  NotificationKind = "submission_received"
	NotifyAssignmentForwarded NotificationKind = "assignment_forwarded"
	NotifyAssignmentRejected  NotificationKind = "assignment_rejected"
	NotifyAssignmentApproved  NotificationKind = "assignment_approved"
	NotifyOTPCode             NotificationKind = "otp_code"
	NotifyWelcome             NotificationKind = "welcome"
)

type Notification struct {
	Kind           NotificationKind  `json:"kind"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name"`
	Params         map[string]string `json:"params,omitempty"`
}
