package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-notify/core"
)

// User is the notification-side view of an account: who digests go to, and in which language.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Locale    string    `json:"locale"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	ID     int64  `json:"id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Locale string `json:"locale" validate:"omitempty,oneof=en fr"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Locale = core.CleanString(nu.Locale, true /* lower */)

	if err := core.ValidateStruct(validate, svc.trans.Default(), nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email)
}
