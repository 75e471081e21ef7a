package domain

import (
	"fmt"

	"github.com/asaskevich/govalidator"
)

type Teacher struct {
	ID       string   `json:"id" valid:"required~Teacher ID is required"`
	FullName string   `json:"full_name" valid:"required~Full name is required"`
	Subjects []string `json:"subjects"`
}

type SchoolClass struct {
	ID          string `json:"id" valid:"required~Class ID is required"`
	DisplayName string `json:"display_name"`
}

func (t Teacher) Validate() error {
	if _, err := govalidator.ValidateStruct(t); err != nil {
		return fmt.Errorf("%w: teacher %q: %v", ErrInvalidSettings, t.ID, err)
	}
	return nil
}
