package script

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field paths using JSON names so messages match the
// file the author wrote.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every schema problem found in a script.
type ValidationError struct {
	Source string
	Issues []string
}

func (e *ValidationError) Error() string {
	where := ""
	if e.Source != "" {
		where = " " + e.Source
	}
	return fmt.Sprintf("invalid script%s: %s", where, strings.Join(e.Issues, "; "))
}

// Validate checks the fields this tool relies on. It does not validate the
// base presentation format beyond that.
func Validate(s *Script) error {
	if s == nil {
		return &ValidationError{Issues: []string{"script is empty"}}
	}

	var issues []string
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate script: %w", err)
		}
		for _, fe := range verrs {
			issues = append(issues, describeFieldError(fe))
		}
	}

	seen := map[string]bool{}
	for i, b := range s.Beats {
		if b.ID == "" {
			continue
		}
		if seen[b.ID] {
			issues = append(issues, fmt.Sprintf("beats[%d]: duplicate id %q", i, b.ID))
		}
		seen[b.ID] = true
	}
	for i, b := range s.Beats {
		names := make([]string, 0, len(b.Variants))
		for name := range b.Variants {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if v := b.Variants[name]; v.Image != nil && isNullJSON(v.Image) {
				issues = append(issues, fmt.Sprintf("beats[%d].variants.%s.image: must not be null", i, name))
			}
		}
	}
	for name := range s.OutputProfiles {
		if strings.TrimSpace(name) == "" {
			issues = append(issues, "outputProfiles: empty profile name")
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		path = path[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: required", path)
	case "oneof":
		return fmt.Sprintf("%s: %q is not one of [%s]", path, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s check", path, fe.Tag())
	}
}
