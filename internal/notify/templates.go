package notify

import (
	"fmt"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
)

// RenderEmail produces the subject and plain-text body for a queued
// notification. Unknown kinds fall back to a generic wrapper so a new
// producer never silently drops mail.
func RenderEmail(n *domain.Notification) (subject, body string) {
	p := n.Params
	switch n.Kind {
	case domain.NotifyOTPCode:
		return "Your verification code",
			fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in 10 minutes.\n\nIf you did not request this code, you can ignore this message.",
				n.RecipientName, p["code"])
	case domain.NotifySubmissionReceived:
		return fmt.Sprintf("New submission: %s", p["assignment_title"]),
			fmt.Sprintf("Hi %s,\n\n%s submitted %q for your review.",
				n.RecipientName, p["student_name"], p["assignment_title"])
	case domain.NotifyAssignmentForwarded:
		return fmt.Sprintf("Assignment forwarded to you: %s", p["assignment_title"]),
			fmt.Sprintf("Hi %s,\n\n%s forwarded %q to you.\n\nNote: %s",
				n.RecipientName, p["forwarded_by"], p["assignment_title"], p["note"])
	case domain.NotifyAssignmentApproved:
		return fmt.Sprintf("Approved: %s", p["assignment_title"]),
			fmt.Sprintf("Hi %s,\n\nYour assignment %q was approved by %s.\n\nRemark: %s",
				n.RecipientName, p["assignment_title"], p["reviewer_name"], p["remark"])
	case domain.NotifyAssignmentRejected:
		return fmt.Sprintf("Rejected: %s", p["assignment_title"]),
			fmt.Sprintf("Hi %s,\n\nYour assignment %q was rejected by %s.\n\nFeedback: %s\n\nYou can revise and resubmit it.",
				n.RecipientName, p["assignment_title"], p["reviewer_name"], p["remark"])
	case domain.NotifyWelcome:
		return "Welcome to the approval portal",
			fmt.Sprintf("Hi %s,\n\nYour %s account has been created. You can now sign in with your email address.",
				n.RecipientName, p["role"])
	default:
		return "Notification", fmt.Sprintf("Hi %s,\n\nYou have a new notification (%s).", n.RecipientName, n.Kind)
	}
}
