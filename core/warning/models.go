package warning

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hocba/core"
)

// Built-in rule codes, created on first scan.
const (
	CodeGPABelow = "GPA_BELOW"
	CodeDebtOver = "DEBT_OVER"
)

type Level string

const (
	LevelCritical Level = "critical"
	LevelWarning  Level = "warning"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Rule is a named threshold policy. Code is unique and upper-case.
type Rule struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Threshold   float64   `json:"threshold"`
	Active      bool      `json:"active"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Case is one raised warning for a student under a rule.
// RuleCode is empty when the rule has been deleted since.
type Case struct {
	ID        int        `json:"id"`
	RuleID    int        `json:"rule_id"`
	RuleCode  string     `json:"rule_code"`
	StudentID string     `json:"student_id"`
	Value     float64    `json:"value"`
	Level     Level      `json:"level"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`          // UTC
	ClosedAt  *time.Time `json:"closed_at,omitempty"` // UTC
}

func (c Case) IsOpen() bool { return c.Status == StatusOpen }

// CasePage is one page of a case listing; Total counts all matching cases.
type CasePage struct {
	Total int    `json:"total"`
	Items []Case `json:"items"`
}

// CaseFilter narrows a case listing.
// A nil Status means "open"; an empty Status disables status filtering.
type CaseFilter struct {
	Status    *string
	StudentID string
}

// StatusFilter returns a CaseFilter.Status value.
func StatusFilter(status string) *string { return &status }

// EffectiveStatus resolves the default and normalizes the case of Status.
func (f CaseFilter) EffectiveStatus() string {
	if f.Status == nil {
		return string(StatusOpen)
	}
	return core.CleanString(*f.Status, true /* lower */)
}

func (f *CaseFilter) Clean() error {
	status := f.EffectiveStatus()
	if status != "" && !Status(status).IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be one of: open, closed"})
	}
	f.Status = &status
	f.StudentID = core.CleanString(f.StudentID)
	return nil
}

// ScanRequest parameterizes a scan. Nil thresholds are resolved from the system settings.
// Thresholds only seed rules that do not exist yet; stored rule thresholds always win.
type ScanRequest struct {
	ClassID       string   `json:"class_id"`
	GPAThreshold  *float64 `json:"gpa_threshold"`
	DebtThreshold *float64 `json:"debt_threshold"`
}

type ScanResult struct {
	CreatedCases int `json:"created_cases"`
	Students     int `json:"students"`
}

// NewRule contains information needed to create a new Rule.
type NewRule struct {
	Code        string  `json:"code" validate:"required,max=50,alphanum_"`
	Name        string  `json:"name" validate:"required,max=255"`
	Threshold   float64 `json:"threshold"`
	Active      *bool   `json:"active"`
	Description string  `json:"description" validate:"max=1000"`
}

func (nr *NewRule) Validate(validate *validator.Validate) error {
	nr.Code = strings.ToUpper(core.CleanString(nr.Code))
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

// UpdateRule defines what information may be provided to modify an existing Rule.
type UpdateRule struct {
	Name        *string  `json:"name" validate:"omitempty,notblank,max=255"`
	Threshold   *float64 `json:"threshold"`
	Active      *bool    `json:"active"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
}

func (ur *UpdateRule) Validate(validate *validator.Validate) error {
	if ur.Name != nil {
		name := core.CleanString(*ur.Name)
		ur.Name = &name
	}
	if ur.Description != nil {
		desc := core.CleanString(*ur.Description)
		ur.Description = &desc
	}
	return validate.Struct(ur)
}

func (ur UpdateRule) apply(rule Rule) Rule {
	if ur.Name != nil {
		rule.Name = *ur.Name
	}
	if ur.Threshold != nil {
		rule.Threshold = *ur.Threshold
	}
	if ur.Active != nil {
		rule.Active = *ur.Active
	}
	if ur.Description != nil {
		rule.Description = *ur.Description
	}
	return rule
}
