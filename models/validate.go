// ABOUTME: Input validation for drafts and patches
// ABOUTME: Runs before any store call and returns ValidationError kinds
package models

import (
	"strings"
)

// ValidateDeal checks a deal draft.
func ValidateDeal(d Deal) error {
	if strings.TrimSpace(d.Company) == "" {
		return Validationf("company is required")
	}
	if d.Status != "" && !Contains(DealStatuses, d.Status) {
		return Validationf("invalid deal status: %s", d.Status)
	}
	if d.DealValue < 0 {
		return Validationf("deal value cannot be negative")
	}
	return nil
}

// ValidateDealPatch checks a partial deal update.
func ValidateDealPatch(p DealPatch) error {
	if p.Company != nil && strings.TrimSpace(*p.Company) == "" {
		return Validationf("company cannot be empty")
	}
	if p.Status != nil && !Contains(DealStatuses, *p.Status) {
		return Validationf("invalid deal status: %s", *p.Status)
	}
	if p.DealValue != nil && *p.DealValue < 0 {
		return Validationf("deal value cannot be negative")
	}
	return nil
}

// ValidateTask checks a task draft.
func ValidateTask(t Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return Validationf("title is required")
	}
	return validateTaskEnums(t.Status, t.Priority, t.TaskType)
}

// ValidateTaskPatch checks a partial task update.
func ValidateTaskPatch(p TaskPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Validationf("title cannot be empty")
	}
	if p.CompanyID != nil && p.ClearCompany {
		return Validationf("companyId and clearCompany are mutually exclusive")
	}
	return validateTaskEnums(deref(p.Status), deref(p.Priority), deref(p.TaskType))
}

func validateTaskEnums(status, priority, taskType string) error {
	if status != "" && !Contains(TaskStatuses, status) {
		return Validationf("invalid task status: %s", status)
	}
	if priority != "" && !Contains(TaskPriorities, priority) {
		return Validationf("invalid priority: %s (valid: Low, Medium, High)", priority)
	}
	if taskType != "" && !Contains(TaskTypes, taskType) {
		return Validationf("invalid task type: %s", taskType)
	}
	return nil
}

// ValidateMeeting checks a meeting draft.
func ValidateMeeting(m Meeting) error {
	if strings.TrimSpace(m.Title) == "" {
		return Validationf("title is required")
	}
	if m.Status != "" && !Contains(MeetingStatuses, m.Status) {
		return Validationf("invalid meeting status: %s", m.Status)
	}
	if !m.DateTime.IsZero() {
		if _, ok := m.DateTime.Time(); !ok {
			return Validationf("invalid meeting date: %s", m.DateTime)
		}
	}
	return nil
}

// ValidateMeetingPatch checks a partial meeting update.
func ValidateMeetingPatch(p MeetingPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Validationf("title cannot be empty")
	}
	if p.Status != nil && !Contains(MeetingStatuses, *p.Status) {
		return Validationf("invalid meeting status: %s", *p.Status)
	}
	if p.CompanyID != nil && p.ClearCompany {
		return Validationf("companyId and clearCompany are mutually exclusive")
	}
	if p.DateTime != nil && !p.DateTime.IsZero() {
		if _, ok := p.DateTime.Time(); !ok {
			return Validationf("invalid meeting date: %s", *p.DateTime)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
