package api

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// validate carries the custom bookdate (YYYY-MM-DD) and booktime (HH:mm)
// rules. Both are strict pattern matches, applied before any value is used
// to build a lock key or a query.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("bookdate", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !datePattern.MatchString(s) {
			return false
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	})

	_ = v.RegisterValidation("booktime", func(fl validator.FieldLevel) bool {
		return timePattern.MatchString(fl.Field().String())
	})

	return v
}
