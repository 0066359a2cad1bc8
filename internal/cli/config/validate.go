package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/leapstack-labs/leaplint/pkg/lint"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("severity", validateSeverity)
}

// validateSeverity accepts "off" and any severity lint.ParseSeverity knows.
func validateSeverity(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if lint.IsOff(s) {
		return true
	}
	_, ok := lint.ParseSeverity(s)
	return ok
}

// Validate checks field constraints and rule references. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = multierr.Append(errs, fieldError(fe))
		}
	}

	seen := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if r.ID == "" {
			continue
		}
		if _, ok := lint.GetRule(r.ID); !ok {
			errs = multierr.Append(errs, fmt.Errorf("rules[%d]: unknown rule %q", i, r.ID))
		}
		if seen[r.ID] {
			errs = multierr.Append(errs, fmt.Errorf("rules[%d]: rule %q listed twice", i, r.ID))
		}
		seen[r.ID] = true
	}
	return errs
}

func fieldError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Errorf("%s is required", field)
	case "gte":
		return fmt.Errorf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of %s, got %q", field, strings.ReplaceAll(fe.Param(), " ", "|"), fe.Value())
	case "severity":
		return fmt.Errorf("%s must be off, error or warning, got %q", field, fe.Value())
	default:
		return fmt.Errorf("%s failed %s validation", field, fe.Tag())
	}
}
