// Package validation checks form input before anything is sent to the
// backend. Failures are apperror Validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
)

const passwordSpecials = "@$!%*?&"

// PasswordMessage is shown for any password that fails the strength rule
const PasswordMessage = "Password must be 8-15 characters with an uppercase, a lowercase, a number and a special character."

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := validate.RegisterValidation("strongpassword", strongPassword); err != nil {
		panic(err)
	}
}

// fieldMessages overrides the generic messages for particular fields
var fieldMessages = map[string]map[string]string{
	"name": {
		"required": "Name is required.",
	},
	"email": {
		"required": "Email is required.",
		"email":    "Email is invalid",
	},
	"password": {
		"required":       "Password is required.",
		"strongpassword": PasswordMessage,
	},
	"newPassword": {
		"required":       "Password is required.",
		"strongpassword": PasswordMessage,
	},
	"confirmpassword": {
		"required": "Please confirm your password.",
		"eqfield":  "Passwords do not match.",
	},
	"accountType": {
		"required": "Account type is required.",
		"oneof":    "Account type must be APPLICANT or EMPLOYER.",
	},
}

var tagMessages = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"min":      "The field '%s' must be at least %s long.",
	"max":      "The field '%s' must be no longer than %s.",
	"oneof":    "The field '%s' must be one of %s.",
	"gte":      "The field '%s' must be greater than or equal to %s.",
	"lte":      "The field '%s' must be less than or equal to %s.",
}

// IsStrongPassword reports whether p is 8-15 characters drawn from letters,
// digits and @$!%*?&, with at least one of each class.
func IsStrongPassword(p string) bool {
	if n := len([]rune(p)); n < 8 || n > 15 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return upper && lower && digit && special
}

func strongPassword(fl validator.FieldLevel) bool {
	return IsStrongPassword(fl.Field().String())
}

func message(e validator.FieldError) string {
	if msgs, ok := fieldMessages[e.Field()]; ok {
		if msg, ok := msgs[e.Tag()]; ok {
			return msg
		}
	}
	if msg, ok := tagMessages[e.Tag()]; ok {
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, e.Field(), e.Param())
		}
		return fmt.Sprintf(msg, e.Field())
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", e.Field(), e.Tag())
}

// Fields validates s and returns JSON field names mapped to messages. Only
// the first failure per field is reported.
func Fields(s any) map[string]string {
	out := make(map[string]string)
	err := validate.Struct(s)
	if err == nil {
		return out
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		out["_"] = err.Error()
		return out
	}
	for _, e := range errs {
		if _, seen := out[e.Field()]; !seen {
			out[e.Field()] = message(e)
		}
	}
	return out
}

// Struct validates s, returning an apperror Validation error on failure
func Struct(s any) error {
	fields := Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return apperror.NewValidation(fields)
}
