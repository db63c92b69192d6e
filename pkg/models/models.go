package models

import "strings"

// Domain models matching the database schema in db/migrations.

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTechnician
}

type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusDone}

// ParseStatus accepts only the exact status labels. Any other input,
// including a differently cased label, is rejected.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// CSSClass is the badge class used by the dashboards.
func (s Status) CSSClass() string {
	switch s {
	case StatusToDo:
		return "status-todo"
	case StatusInProgress:
		return "status-progress"
	default:
		return "status-done"
	}
}

type User struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username" validate:"required"`
	Role     Role   `json:"role" db:"role"`
}

type Intervention struct {
	ID           int64   `json:"id" db:"id"`
	Title        string  `json:"title" db:"title" validate:"required"`
	Description  string  `json:"description" db:"description" validate:"required"`
	Status       Status  `json:"status" db:"status"`
	TechnicianID *int64  `json:"technician_id" db:"technician_id"`
	Technician   *string `json:"technician,omitempty" db:"-"`
	Created      int64   `json:"created" db:"created"`
	Updated      int64   `json:"updated" db:"updated"`
}

// AssignedTo reports whether the intervention is assigned to userID.
func (i *Intervention) AssignedTo(userID int64) bool {
	return i.TechnicianID != nil && *i.TechnicianID == userID
}

// SessionRecord is the persisted row behind a login.
type SessionRecord struct {
	ID      string `json:"id" db:"id"`
	UserID  int64  `json:"user_id" db:"user_id"`
	Created int64  `json:"created" db:"created"`
	Expires int64  `json:"expires" db:"expires"`
}

// Session is the resolved identity attached to a request.
type Session struct {
	ID       string `json:"-"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Expires  int64  `json:"expires"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// NormalizeUsername trims surrounding whitespace from a submitted username.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}
