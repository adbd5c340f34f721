// ABOUTME: Data models for pipeline entities
// ABOUTME: Defines Deal, Task, Meeting and User structs plus their status vocabularies
package models

import (
	"time"
)

// Collection names used by the store, the mirror and the HTTP surface.
const (
	CollectionDeals    = "deals"
	CollectionTasks    = "tasks"
	CollectionMeetings = "meetings"
)

// Deal statuses, in pipeline order.
const (
	DealLead       = "lead"
	DealOnProgress = "on progress"
	DealQuoteSent  = "Quote Sent"
	DealOnboarded  = "onboarded"
	DealCompleted  = "completed"
	DealDrop       = "drop"
)

// Task statuses.
const (
	TaskNotStarted = "Not Started"
	TaskInProgress = "In Progress"
	TaskCompleted  = "Completed"
	TaskDone       = "Done"
	TaskPosted     = "Posted"
	TaskDropped    = "Dropped"
)

// Task priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Task types.
const (
	TaskTypeGeneral  = "General"
	TaskTypeReel     = "Reel"
	TaskTypePost     = "Post"
	TaskTypeStory    = "Story"
	TaskTypeCarousel = "Carousel"
	TaskTypeVideo    = "Video"
)

// Meeting statuses.
const (
	MeetingScheduled = "Scheduled"
	MeetingCompleted = "Completed"
	MeetingCancelled = "Cancelled"
	MeetingPostponed = "Postponed"
)

// User roles.
const (
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
	RoleAdmin      = "ROLE_ADMIN"
	RoleEmployee   = "ROLE_EMPLOYEE"
	RoleClient     = "ROLE_CLIENT"
)

var (
	DealStatuses    = []string{DealLead, DealOnProgress, DealQuoteSent, DealOnboarded, DealCompleted, DealDrop}
	TaskStatuses    = []string{TaskNotStarted, TaskInProgress, TaskCompleted, TaskDone, TaskPosted, TaskDropped}
	TaskPriorities  = []string{PriorityLow, PriorityMedium, PriorityHigh}
	TaskTypes       = []string{TaskTypeGeneral, TaskTypeReel, TaskTypePost, TaskTypeStory, TaskTypeCarousel, TaskTypeVideo}
	MeetingStatuses = []string{MeetingScheduled, MeetingCompleted, MeetingCancelled, MeetingPostponed}
	Roles           = []string{RoleSuperAdmin, RoleAdmin, RoleEmployee, RoleClient}
)

// Audit is the last-modified stamp carried by every entity and every patch.
type Audit struct {
	LastUpdatedBy string     `json:"lastUpdatedBy,omitempty"`
	LastUpdatedAt *time.Time `json:"lastUpdatedAt,omitempty"`
}

// Stamped reports whether an actor and time have been recorded.
func (a Audit) Stamped() bool {
	return a.LastUpdatedBy != "" && a.LastUpdatedAt != nil
}

type Deal struct {
	ID           int64     `json:"id"`
	Company      string    `json:"company"`
	ContactName  string    `json:"contactName,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status"`
	AssignedTo   string    `json:"assignedTo,omitempty"`
	DealValue    float64   `json:"dealValue,omitempty"`
	NextFollowUp Date      `json:"nextFollowUp,omitempty"`
	LastContact  Date      `json:"lastContact,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Work         []string  `json:"work,omitempty"`
	LeadSources  []string  `json:"leadSources,omitempty"`
	ReferenceID  string    `json:"referenceId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Revision     int64     `json:"revision,omitempty"`
	Audit
}

type Task struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description,omitempty"`
	Status               string    `json:"status"`
	Priority             string    `json:"priority"`
	TaskType             string    `json:"taskType,omitempty"`
	AssignedTo           string    `json:"assignedTo,omitempty"`
	DueDate              Date      `json:"dueDate,omitempty"`
	CompanyID            *int64    `json:"companyId,omitempty"`
	IsVisibleOnMainBoard bool      `json:"isVisibleOnMainBoard,omitempty"`
	TaskLink             string    `json:"taskLink,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	Revision             int64     `json:"revision,omitempty"`
	Audit
}

type Meeting struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	DateTime    Date      `json:"dateTime,omitempty"`
	AssigneeID  *int64    `json:"assigneeId,omitempty"`
	AssignedTo  string    `json:"assignedTo,omitempty"`
	CompanyID   *int64    `json:"companyId,omitempty"`
	MeetingLink string    `json:"meetingLink,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Revision    int64     `json:"revision,omitempty"`
	Audit
}

type User struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email" yaml:"email"`
	Role      string `json:"role" yaml:"role"`
	AvatarURL string `json:"avatarUrl,omitempty" yaml:"avatar_url"`
	CompanyID *int64 `json:"companyId,omitempty" yaml:"company_id"`
}

// IsClient reports whether the user is an external client account.
func (u User) IsClient() bool {
	return u.Role == RoleClient
}

// ApplyDefaults fills the status a new deal starts in.
func (d *Deal) ApplyDefaults() {
	if d.Status == "" {
		d.Status = DealLead
	}
}

// ApplyDefaults fills status, priority and type for a new task.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = TaskNotStarted
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.TaskType == "" {
		t.TaskType = TaskTypeGeneral
	}
}

// ApplyDefaults fills the status a new meeting starts in.
func (m *Meeting) ApplyDefaults() {
	if m.Status == "" {
		m.Status = MeetingScheduled
	}
}

// VisibleOnMainBoard reports whether a task shows on the unscoped board.
// Internal tasks always do; company tasks only when flagged.
func (t Task) VisibleOnMainBoard() bool {
	return t.CompanyID == nil || t.IsVisibleOnMainBoard
}

// Clone returns a copy that shares no slices with the receiver.
func (d Deal) Clone() Deal {
	d.Tags = cloneStrings(d.Tags)
	d.Work = cloneStrings(d.Work)
	d.LeadSources = cloneStrings(d.LeadSources)
	d.LastUpdatedAt = cloneTime(d.LastUpdatedAt)
	return d
}

// Clone returns a copy that shares no pointers with the receiver.
func (t Task) Clone() Task {
	t.CompanyID = cloneID(t.CompanyID)
	t.LastUpdatedAt = cloneTime(t.LastUpdatedAt)
	return t
}

// Clone returns a copy that shares no pointers with the receiver.
func (m Meeting) Clone() Meeting {
	m.AssigneeID = cloneID(m.AssigneeID)
	m.CompanyID = cloneID(m.CompanyID)
	m.LastUpdatedAt = cloneTime(m.LastUpdatedAt)
	return m
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// Contains reports whether value is one of set.
func Contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
