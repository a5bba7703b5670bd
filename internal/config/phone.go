package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// PhoneTag is the validator tag for an E.164 number written with its
// leading "+". The library's e164 rule alone treats the "+" as optional.
const PhoneTag = "phone"

// RegisterPhoneValidation adds PhoneTag to v.
func RegisterPhoneValidation(v *validator.Validate) error {
	return v.RegisterValidation(PhoneTag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "+") && v.Var(s, "e164") == nil
	})
}
