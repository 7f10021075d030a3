// Package validation wraps go-playground/validator with the custom rules used
// by the scheduling services and flattens failures into field/message pairs.
package validation

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/speaker-scheduler/internal/scheduler"
)

// Messages produced for failed rules.
const (
	MsgRequired     = "is required"
	MsgEmail        = "email is invalid"
	MsgTooLong      = "is too long"
	MsgTooShort     = "is too short"
	MsgOneOf        = "is not an allowed value"
	MsgTalkNumber   = "talk number must be between 1 and 194"
	MsgClock        = "time must be HH:MM"
	MsgDate         = "date must be YYYY-MM-DD"
	MsgWeekend      = "date must be a saturday or sunday"
	MsgUnknownCheck = "is invalid"
)

var (
	once     sync.Once
	instance *validator.Validate
	clockRe  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// New builds a validator with the custom rules registered and field names
// reported by their json tag.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("talknumber", validateTalkNumber)
	_ = v.RegisterValidation("clock", validateClock)
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("weekend", validateWeekend)
	return v
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	once.Do(func() { instance = New() })
	return instance
}

// Struct validates s and returns a field to message map, or nil when valid.
// Nested field names are joined with dots; slice elements keep their index.
func Struct(ctx context.Context, s any) map[string]string {
	err := Validator().StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		field := fieldPath(fe.Namespace())
		if _, exists := out[field]; exists {
			continue
		}
		out[field] = message(fe)
	}
	return out
}

func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return MsgRequired
	case "email":
		return MsgEmail
	case "max", "lte", "lt":
		return MsgTooLong
	case "min", "gte", "gt":
		return MsgTooShort
	case "oneof":
		return MsgOneOf
	case "talknumber":
		return MsgTalkNumber
	case "clock":
		return MsgClock
	case "isodate":
		return MsgDate
	case "weekend":
		return MsgWeekend
	default:
		return MsgUnknownCheck
	}
}

func validateTalkNumber(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scheduler.ValidTalkNumber(int(fl.Field().Int()))
	default:
		return false
	}
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRe.MatchString(fl.Field().String())
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(scheduler.DateLayout, fl.Field().String())
	return err == nil
}

func validateWeekend(fl validator.FieldLevel) bool {
	d, err := scheduler.ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	return scheduler.ValidateWeekendDate(d) == nil
}
