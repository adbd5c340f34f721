// ABOUTME: Partial updates for each entity type
// ABOUTME: Nil fields are absent; Apply merges only what is present
package models

// DealPatch is a partial update to a Deal.
type DealPatch struct {
	Company      *string   `json:"company,omitempty"`
	ContactName  *string   `json:"contactName,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Status       *string   `json:"status,omitempty"`
	AssignedTo   *string   `json:"assignedTo,omitempty"`
	DealValue    *float64  `json:"dealValue,omitempty"`
	NextFollowUp *Date     `json:"nextFollowUp,omitempty"`
	LastContact  *Date     `json:"lastContact,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Work         *[]string `json:"work,omitempty"`
	LeadSources  *[]string `json:"leadSources,omitempty"`
	ReferenceID  *string   `json:"referenceId,omitempty"`
	Audit
}

// Apply returns d with the present fields of p merged in. A reference id that
// is already set is never replaced or cleared.
func (p DealPatch) Apply(d Deal) Deal {
	d = d.Clone()
	setString(&d.Company, p.Company)
	setString(&d.ContactName, p.ContactName)
	setString(&d.Email, p.Email)
	setString(&d.Phone, p.Phone)
	setString(&d.Status, p.Status)
	setString(&d.AssignedTo, p.AssignedTo)
	if p.DealValue != nil {
		d.DealValue = *p.DealValue
	}
	if p.NextFollowUp != nil {
		d.NextFollowUp = *p.NextFollowUp
	}
	if p.LastContact != nil {
		d.LastContact = *p.LastContact
	}
	setStrings(&d.Tags, p.Tags)
	setStrings(&d.Work, p.Work)
	setStrings(&d.LeadSources, p.LeadSources)
	if p.ReferenceID != nil && d.ReferenceID == "" {
		d.ReferenceID = *p.ReferenceID
	}
	d.Audit = mergeAudit(d.Audit, p.Audit)
	return d
}

// IsEmpty reports whether the patch changes no business field.
func (p DealPatch) IsEmpty() bool {
	return p.Company == nil && p.ContactName == nil && p.Email == nil && p.Phone == nil &&
		p.Status == nil && p.AssignedTo == nil && p.DealValue == nil && p.NextFollowUp == nil &&
		p.LastContact == nil && p.Tags == nil && p.Work == nil && p.LeadSources == nil &&
		p.ReferenceID == nil
}

// TaskPatch is a partial update to a Task.
type TaskPatch struct {
	Title                *string `json:"title,omitempty"`
	Description          *string `json:"description,omitempty"`
	Status               *string `json:"status,omitempty"`
	Priority             *string `json:"priority,omitempty"`
	TaskType             *string `json:"taskType,omitempty"`
	AssignedTo           *string `json:"assignedTo,omitempty"`
	DueDate              *Date   `json:"dueDate,omitempty"`
	CompanyID            *int64  `json:"companyId,omitempty"`
	IsVisibleOnMainBoard *bool   `json:"isVisibleOnMainBoard,omitempty"`
	TaskLink             *string `json:"taskLink,omitempty"`

	// ClearCompany detaches the task from its client; CompanyID must be nil.
	ClearCompany bool `json:"clearCompany,omitempty"`
	Audit
}

// Apply returns t with the present fields of p merged in.
func (p TaskPatch) Apply(t Task) Task {
	t = t.Clone()
	setString(&t.Title, p.Title)
	setString(&t.Description, p.Description)
	setString(&t.Status, p.Status)
	setString(&t.Priority, p.Priority)
	setString(&t.TaskType, p.TaskType)
	setString(&t.AssignedTo, p.AssignedTo)
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.CompanyID != nil {
		id := *p.CompanyID
		t.CompanyID = &id
	} else if p.ClearCompany {
		t.CompanyID = nil
	}
	if p.IsVisibleOnMainBoard != nil {
		t.IsVisibleOnMainBoard = *p.IsVisibleOnMainBoard
	}
	setString(&t.TaskLink, p.TaskLink)
	t.Audit = mergeAudit(t.Audit, p.Audit)
	return t
}

// IsEmpty reports whether the patch changes no business field.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.TaskType == nil && p.AssignedTo == nil && p.DueDate == nil && p.CompanyID == nil &&
		p.IsVisibleOnMainBoard == nil && p.TaskLink == nil && !p.ClearCompany
}

// MeetingPatch is a partial update to a Meeting.
type MeetingPatch struct {
	Title       *string `json:"title,omitempty"`
	Status      *string `json:"status,omitempty"`
	DateTime    *Date   `json:"dateTime,omitempty"`
	AssigneeID  *int64  `json:"assigneeId,omitempty"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
	CompanyID   *int64  `json:"companyId,omitempty"`
	MeetingLink *string `json:"meetingLink,omitempty"`
	Notes       *string `json:"notes,omitempty"`

	// ClearCompany detaches the meeting from its client; CompanyID must be nil.
	ClearCompany bool `json:"clearCompany,omitempty"`
	Audit
}

// Apply returns m with the present fields of p merged in.
func (p MeetingPatch) Apply(m Meeting) Meeting {
	m = m.Clone()
	setString(&m.Title, p.Title)
	setString(&m.Status, p.Status)
	if p.DateTime != nil {
		m.DateTime = *p.DateTime
	}
	if p.AssigneeID != nil {
		id := *p.AssigneeID
		m.AssigneeID = &id
	}
	setString(&m.AssignedTo, p.AssignedTo)
	if p.CompanyID != nil {
		id := *p.CompanyID
		m.CompanyID = &id
	} else if p.ClearCompany {
		m.CompanyID = nil
	}
	setString(&m.MeetingLink, p.MeetingLink)
	setString(&m.Notes, p.Notes)
	m.Audit = mergeAudit(m.Audit, p.Audit)
	return m
}

// IsEmpty reports whether the patch changes no business field.
func (p MeetingPatch) IsEmpty() bool {
	return p.Title == nil && p.Status == nil && p.DateTime == nil && p.AssigneeID == nil &&
		p.AssignedTo == nil && p.CompanyID == nil && p.MeetingLink == nil && p.Notes == nil &&
		!p.ClearCompany
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setStrings(dst *[]string, v *[]string) {
	if v != nil {
		*dst = cloneStrings(*v)
	}
}

func mergeAudit(cur, next Audit) Audit {
	if next.LastUpdatedBy != "" {
		cur.LastUpdatedBy = next.LastUpdatedBy
	}
	if next.LastUpdatedAt != nil {
		cur.LastUpdatedAt = cloneTime(next.LastUpdatedAt)
	}
	return cur
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}
