package order

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"bakery-storefront/internal/domain"
)

// Field error messages
const (
	MsgRequired     = "required field"
	MsgInvalidEmail = "invalid email"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("basicemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidationErrors maps a form field name to its error message
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid checkout form: " + strings.Join(fields, ", ")
}

// Normalize trims surrounding whitespace from every form field
func Normalize(c domain.Customer) domain.Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Surname = strings.TrimSpace(c.Surname)
	c.Email = strings.TrimSpace(c.Email)
	c.Street = strings.TrimSpace(c.Street)
	c.Unit = strings.TrimSpace(c.Unit)
	c.Region = strings.TrimSpace(c.Region)
	c.Comune = strings.TrimSpace(c.Comune)
	c.DeliveryNotes = strings.TrimSpace(c.DeliveryNotes)
	return c
}

// Validate checks the checkout form. It returns nil when the form is valid.
func Validate(c domain.Customer) ValidationErrors {
	err := validate.Struct(Normalize(c))
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{"form": err.Error()}
	}

	out := make(ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "basicemail":
			out[fe.Field()] = MsgInvalidEmail
		default:
			out[fe.Field()] = MsgRequired
		}
	}
	return out
}
