package domain

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

type PermitScope string

const (
	ScopeWholeDay        PermitScope = "WHOLE_DAY"
	ScopeSpecificPeriods PermitScope = "SPECIFIC_PERIODS"
)

// PermitRequest is never stored. Its effect lives entirely in the records it cascades into.
type PermitRequest struct {
	TeacherID string           `json:"teacher_id" valid:"required~Teacher ID is required"`
	Date      string           `json:"date" valid:"required~Date is required"`
	Status    AttendanceStatus `json:"status" valid:"required~Status is required"`
	Scope     PermitScope      `json:"scope" valid:"required~Scope is required"`
	Periods   []string         `json:"periods,omitempty"`
	Note      string           `json:"note"`
}

func (p PermitRequest) Validate() error {
	if _, err := govalidator.ValidateStruct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPermit, err)
	}
	if _, err := ParseDate(p.Date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPermit, err)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPermit, p.Status)
	}
	switch p.Scope {
	case ScopeWholeDay:
	case ScopeSpecificPeriods:
		if len(p.Periods) == 0 {
			return fmt.Errorf("%w: no periods selected", ErrInvalidPermit)
		}
		for _, period := range p.Periods {
			if strings.TrimSpace(period) == "" {
				return fmt.Errorf("%w: blank period", ErrInvalidPermit)
			}
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidPermit, p.Scope)
	}
	return nil
}
