// Package validation checks request payload shape with go-playground/validator
// and reports every failed field as an errors.Issue.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"banking-api/internal/domain"
	apperrors "banking-api/internal/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	vld.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// decimal.Decimal is a struct, so the field is read directly rather than
	// through a custom type func.
	if err := vld.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.IsPositive()
	}); err != nil {
		return nil, fmt.Errorf("registering positive_decimal: %w", err)
	}

	if err := vld.RegisterValidation("nonnegative_decimal", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && !d.IsNegative()
	}); err != nil {
		return nil, fmt.Errorf("registering nonnegative_decimal: %w", err)
	}

	if err := vld.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && domain.IsMoney(d)
	}); err != nil {
		return nil, fmt.Errorf("registering money: %w", err)
	}

	return vld, nil
}

func getValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

// Struct validates payload. It returns nil when every rule passes, or an
// *errors.AppError with code validation_error carrying one Issue per
// failing field (all fields are checked, not just the first).
func Struct(payload any) error {
	vld, err := getValidator()
	if err != nil {
		return apperrors.NewAppError(apperrors.InternalError, "validator unavailable").WithDetails(err.Error())
	}

	err = vld.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewAppError(apperrors.InternalError, "validation failed").WithDetails(err.Error())
	}

	issues := make([]apperrors.Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, toIssue(fe))
	}
	return apperrors.NewValidationError(issues...)
}

// Merge combines issues found while decoding with the ones from Struct.
// It returns nil if there are none.
func Merge(decodeIssues []apperrors.Issue, structErr error) error {
	if structErr != nil {
		appErr, ok := apperrors.As(structErr)
		if !ok || appErr.Code != apperrors.ValidationFailed {
			return structErr
		}
		decodeIssues = append(decodeIssues, appErr.Issues...)
	}
	if len(decodeIssues) == 0 {
		return nil
	}
	return apperrors.NewValidationError(dedupe(decodeIssues)...)
}

// dedupe keeps the first issue per field path.
func dedupe(issues []apperrors.Issue) []apperrors.Issue {
	seen := make(map[string]struct{}, len(issues))
	out := issues[:0]
	for _, is := range issues {
		key := strings.Join(is.Path, ".")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, is)
	}
	return out
}

// NumberIssue reports a field whose raw value is not a number.
func NumberIssue(field string, value any) apperrors.Issue {
	return newIssue(field, fmt.Sprintf("%q must be a number", field), "number.base", value)
}

// IntegerIssue reports a numeric field that must hold a whole number.
func IntegerIssue(field string, value any) apperrors.Issue {
	return newIssue(field, fmt.Sprintf("%q must be an integer", field), "number.integer", value)
}

// UnsafeIssue reports a whole number outside the int64 range.
func UnsafeIssue(field string, value any) apperrors.Issue {
	return newIssue(field, fmt.Sprintf("%q must be a safe number", field), "number.unsafe", value)
}

func StringIssue(field string, value any) apperrors.Issue {
	return newIssue(field, fmt.Sprintf("%q must be a string", field), "string.base", value)
}

type issueFormatter func(field, param string) (message, kind string)

var formatters = map[string]issueFormatter{
	"required": func(field, _ string) (string, string) {
		return fmt.Sprintf("%q is required", field), "any.required"
	},
	"gt": func(field, param string) (string, string) {
		if param == "0" {
			return fmt.Sprintf("%q must be a positive number", field), "number.positive"
		}
		return fmt.Sprintf("%q must be greater than %s", field, param), "number.greater"
	},
	"positive_decimal": func(field, _ string) (string, string) {
		return fmt.Sprintf("%q must be a positive number", field), "number.positive"
	},
	"nonnegative_decimal": func(field, _ string) (string, string) {
		return fmt.Sprintf("%q must be greater than or equal to 0", field), "number.min"
	},
	"money": func(field, _ string) (string, string) {
		return fmt.Sprintf("%q must have no more than %d decimal places", field, domain.MoneyScale), "number.precision"
	},
	"min": func(field, param string) (string, string) {
		return fmt.Sprintf("%q length must be at least %s characters long", field, param), "string.min"
	},
	"email": func(field, _ string) (string, string) {
		return fmt.Sprintf("%q must be a valid email", field), "string.email"
	},
	"oneof": func(field, param string) (string, string) {
		return fmt.Sprintf("%q must be one of [%s]", field, strings.ReplaceAll(param, " ", ", ")), "any.only"
	},
}

func toIssue(fe validator.FieldError) apperrors.Issue {
	field := fe.Field()
	if f, ok := formatters[fe.Tag()]; ok {
		msg, kind := f(field, fe.Param())
		return newIssue(field, msg, kind, fe.Value())
	}
	return newIssue(field, fmt.Sprintf("%q is invalid", field), "any.invalid", fe.Value())
}

func newIssue(field, message, kind string, value any) apperrors.Issue {
	if d, ok := value.(decimal.Decimal); ok {
		value = d.String()
	}
	return apperrors.Issue{
		Message: message,
		Path:    []string{field},
		Type:    kind,
		Context: apperrors.IssueContext{Label: field, Key: field, Value: value},
	}
}
