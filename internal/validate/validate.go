// Package validate checks article and category input before it reaches storage.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Article is the normalized input for creating a stored article.
type Article struct {
	Title      string `json:"title" validate:"notblank"`
	URL        string `json:"url" validate:"notblank,url"`
	Source     string `json:"source" validate:"notblank"`
	ImageURL   string `json:"imageUrl" validate:"omitempty,url"`
	CategoryID string `json:"categoryId"`
}

// Category is the input for creating or updating a category.
type Category struct {
	Name        string `json:"name" validate:"notblank,max=50"`
	SearchQuery string `json:"searchQuery" validate:"notblank,max=200"`
}

// Settings is the input for updating the run settings.
type Settings struct {
	Schedule       string `json:"schedule" validate:"notblank"`
	RecencyFilter  string `json:"recencyFilter" validate:"omitempty,oneof=1day 1week 1month day week month"`
	ExpansionLimit string `json:"searchTypeExtensionLimit" validate:"omitempty,max=50"`
}

// FieldError describes a single failed rule.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	switch f.Rule {
	case "notblank", "required":
		return f.Field + " is required"
	case "url":
		return f.Field + " must be an absolute URL"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f.Field, f.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f.Field, strings.ReplaceAll(f.Param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s", f.Field, f.Rule)
	}
}

// Error lists every field that failed validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	if err := val.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}

// ValidateArticle checks that an article has a title, source and absolute URL.
func ValidateArticle(a Article) error {
	return check(a)
}

// AbsoluteURL reports whether s is an absolute URL.
func AbsoluteURL(s string) bool {
	return v.Var(s, "required,url") == nil
}

// ValidateCategory checks category name and query length bounds.
func ValidateCategory(c Category) error {
	return check(c)
}

// ValidateSettings checks a settings update. The schedule expression
// syntax is checked by the scheduler.
func ValidateSettings(s Settings) error {
	return check(s)
}

func check(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}
