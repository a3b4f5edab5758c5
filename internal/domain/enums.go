package domain

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusForwarded, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryAssignment, CategoryThesis, CategoryReport:
		return true
	default:
		return false
	}
}

func ToStatus(status string) Status {
	switch status {
	case "Draft":
		return StatusDraft
	case "Submitted":
		return StatusSubmitted
	case "Forwarded":
		return StatusForwarded
	case "Approved":
		return StatusApproved
	case "Rejected":
		return StatusRejected
	default:
		return ""
	}
}

func ToCategory(category string) Category {
	switch category {
	case "Assignment":
		return CategoryAssignment
	case "Thesis":
		return CategoryThesis
	case "Report":
		return CategoryReport
	default:
		return ""
	}
}
