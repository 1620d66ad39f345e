package model

import "time"

// Principal is the authenticated actor performing an operation.
// It is resolved by an external authentication layer before any engine
// operation is invoked; the engine never reads ambient request state.
type Principal struct {
	ID      string
	IsAdmin bool
}

// Role is a membership role within a project.
type Role string

const (
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleManager || r == RoleMember
}

// Status is the lifecycle state of a question.
//
// Transitions are forward-only: NEW -> IN_PROGRESS -> PENDING_APPROVAL ->
// CLOSED, with one documented exception (deleting the last answer of an
// IN_PROGRESS question reverts it to NEW). CLOSED is terminal.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusClosed          Status = "CLOSED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusPendingApproval, StatusClosed:
		return true
	}
	return false
}

// Project groups questions and carries the membership list that drives
// authorization. The creator is implicitly privileged even without a
// membership row.
type Project struct {
	ID        string
	Name      string
	CreatorID string
	Members   []Membership
}

// Membership grants a user a role within one project.
// Unique per (project, user).
type Membership struct {
	ProjectID string
	UserID    string
	Role      Role
}

// User is a minimal identity record. Credential handling lives outside
// this system; the row exists so ownership references have a referent.
type User struct {
	ID   string
	Name string
}

// Question is a request for an answer, routed to a designated assignee
// inside a project.
type Question struct {
	ID                 string
	ProjectID          string
	CreatorID          string
	AssigneeID         string
	Title              string
	Body               string
	Priority           int
	Status             Status
	Deadline           *time.Time
	IsDeadlineNotified bool
	CreatedAt          time.Time

	// Form is the optional structured answer schema, eager-loaded on
	// question reads. Nil when no form is attached.
	Form *AnswerForm
}

// AnswerForm is an optional structured schema attached 1:1 to a question.
// Immutable once the question has at least one answer.
type AnswerForm struct {
	ID         string
	QuestionID string
	Fields     []FormField
}

// FieldType is the input type of a form field.
type FieldType string

const (
	FieldText   FieldType = "TEXT"
	FieldNumber FieldType = "NUMBER"
	FieldChoice FieldType = "CHOICE"
	FieldFile   FieldType = "FILE"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldChoice, FieldFile:
		return true
	}
	return false
}

// FormField is a single field of an answer form.
// Options is populated only for CHOICE fields.
type FormField struct {
	ID         string
	FormID     string
	Label      string
	Type       FieldType
	IsRequired bool
	Options    []string
	Ord        int
}

// Answer is the assignee's response to a question, together with its
// attached media and structured form responses. An answer row and its
// child rows are always written or removed in one transaction.
type Answer struct {
	ID         string
	QuestionID string
	CreatorID  string
	Content    string
	Media      []MediaRef
	Responses  []FormResponse
	CreatedAt  time.Time
}

// MediaRef is uploaded-file metadata owned by its uploader. The engine
// only checks existence and ownership; the bytes live in external blob
// storage.
type MediaRef struct {
	ID      string
	OwnerID string
	Name    string
}

// FormResponse is one answer-form field value inside an answer.
// For FILE fields MediaRefID carries the value and Value is empty.
type FormResponse struct {
	ID         string
	AnswerID   string
	FieldID    string
	Value      string
	MediaRefID string
}
