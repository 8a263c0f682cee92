package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/joboost/internal/common"
)

// Status is the pipeline column of an application.
type Status string

const (
	StatusTodo      Status = "todo"
	StatusApplied   Status = "applied"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusRejected  Status = "rejected"
)

// Statuses lists the pipeline columns in board order.
var Statuses = []Status{StatusTodo, StatusApplied, StatusInterview, StatusOffer, StatusRejected}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", common.ErrValidation, s)
	}
	return st, nil
}

// Application is one tracked job application.
type Application struct {
	ID          string    `json:"application_id"`
	CompanyName string    `json:"company_name"`
	JobTitle    string    `json:"job_title"`
	Status      Status    `json:"status"`
	Location    *string   `json:"location,omitempty"`
	Deadline    *string   `json:"deadline,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	JobURL      *string   `json:"job_url,omitempty"`
	SalaryRange *string   `json:"salary_range,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ApplicationFields is the body of create and edit requests. On edit, nil
// pointers and empty strings leave the stored value unchanged.
type ApplicationFields struct {
	CompanyName string  `json:"company_name,omitempty"`
	JobTitle    string  `json:"job_title,omitempty"`
	Status      Status  `json:"status,omitempty"`
	Location    *string `json:"location,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	JobURL      *string `json:"job_url,omitempty"`
	SalaryRange *string `json:"salary_range,omitempty"`
}

// ValidateNew checks the fields required to create an application and
// defaults the status to todo.
func (f *ApplicationFields) ValidateNew() error {
	if strings.TrimSpace(f.CompanyName) == "" {
		return fmt.Errorf("%w: company name is required", common.ErrValidation)
	}
	if strings.TrimSpace(f.JobTitle) == "" {
		return fmt.Errorf("%w: job title is required", common.ErrValidation)
	}
	if f.Status == "" {
		f.Status = StatusTodo
	}
	if !f.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", common.ErrValidation, f.Status)
	}
	return nil
}

// Column is one kanban column: a status and its applications in display order.
type Column struct {
	Status       Status
	Applications []Application
}

// Stats counts applications per status.
type Stats struct {
	Total     int `json:"total"`
	Todo      int `json:"todo"`
	Applied   int `json:"applied"`
	Interview int `json:"interview"`
	Offer     int `json:"offer"`
	Rejected  int `json:"rejected"`
}

// Add counts one application in status s.
func (st *Stats) Add(s Status) {
	st.Total++
	switch s {
	case StatusTodo:
		st.Todo++
	case StatusApplied:
		st.Applied++
	case StatusInterview:
		st.Interview++
	case StatusOffer:
		st.Offer++
	case StatusRejected:
		st.Rejected++
	}
}
