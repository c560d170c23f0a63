package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Privileged reports whether the role may run request transitions and
// maintain the catalogue.
func (r Role) Privileged() bool { return r == RoleAdmin || r == RoleStaff }

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusIssued   Status = "issued"
	StatusReturned Status = "returned"
	StatusRejected Status = "rejected"
)

// Statuses lists every request status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusIssued, StatusReturned, StatusRejected}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type EquipmentItem struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Category          Category  `json:"category"`
	Description       string    `json:"description"`
	Condition         Condition `json:"condition"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	IsActive          bool      `json:"is_active"`
}

type EquipmentRef struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

type UserRef struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type BorrowRequest struct {
	ID            int64        `json:"id"`
	Equipment     EquipmentRef `json:"equipment"`
	EquipmentName string       `json:"equipment_name,omitempty"`
	Requester     UserRef      `json:"user"`
	UserName      string       `json:"user_name,omitempty"`
	Quantity      int          `json:"quantity"`
	Purpose       string       `json:"purpose"`
	Status        Status       `json:"status"`
	BorrowFrom    time.Time    `json:"borrow_from"`
	BorrowUntil   time.Time    `json:"borrow_until"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ItemName prefers the nested equipment name and falls back to the flat one.
func (r BorrowRequest) ItemName() string {
	if r.Equipment.Name != "" {
		return r.Equipment.Name
	}
	return r.EquipmentName
}

func (r BorrowRequest) RequesterName() string {
	if r.UserName != "" {
		return r.UserName
	}
	full := strings.TrimSpace(r.Requester.FirstName + " " + r.Requester.LastName)
	if full != "" {
		return full
	}
	return r.Requester.Username
}

type Profile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Role      Role   `json:"role"`
}

func (p Profile) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Username
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UnmarshalJSON accepts either a bare id or the nested equipment object.
func (e *EquipmentRef) UnmarshalJSON(b []byte) error {
	if id, ok := bareID(b); ok {
		*e = EquipmentRef{ID: id}
		return nil
	}
	type alias EquipmentRef
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*e = EquipmentRef(a)
	return nil
}

// UnmarshalJSON accepts either a bare id or the nested user object.
func (u *UserRef) UnmarshalJSON(b []byte) error {
	if id, ok := bareID(b); ok {
		*u = UserRef{ID: id}
		return nil
	}
	type alias UserRef
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*u = UserRef(a)
	return nil
}

func bareID(b []byte) (int64, bool) {
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return 0, false
	}
	return id, true
}

// Action is a privileged borrow-request transition command.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionIssue   Action = "issue"
	ActionReturn  Action = "return"
)

func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionIssue, ActionReturn:
		return true
	}
	return false
}
