package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error carries per-field issues. Operations returning it have written nothing.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func As(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Field builds a single-issue error.
func Field(field, reason string) error {
	return &Error{Issues: []Issue{{Field: field, Reason: reason}}}
}

type Issues []Issue

func (is *Issues) Add(field, reason string) {
	*is = append(*is, Issue{Field: field, Reason: reason})
}

func (is Issues) Err() error {
	if len(is) == 0 {
		return nil
	}
	return &Error{Issues: is}
}

// Struct checks the validate tags of v and adds every violation, named by the
// json field name and prefixed with prefix when set.
func (is *Issues) Struct(prefix string, v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		is.Add(prefix, err.Error())
		return
	}
	for _, fe := range verrs {
		field := jsonPath(fe)
		if prefix != "" {
			field = prefix + "." + field
		}
		is.Add(field, Reason(fe))
	}
}

// Struct validates v on its own.
func Struct(v any) error {
	var is Issues
	is.Struct("", v)
	return is.Err()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// jsonPath drops the top-level struct name from the namespace, so nested and
// slice fields read as "studentIds[0]".
func jsonPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func Reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
