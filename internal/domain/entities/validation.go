package entities

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var candidateValidator = newCandidateValidator()

func newCandidateValidator() *validator.Validate {
	v := validator.New()

	// Report json names so messages read "party_affiliation", not "PartyAffiliation"
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("social_issue", func(fl validator.FieldLevel) bool {
		return IsKnownIssue(SocialIssue(fl.Field().String()))
	})
	_ = v.RegisterValidation("stance", func(fl validator.FieldLevel) bool {
		return Stance(fl.Field().String()).IsValid()
	})

	return v
}

// Validate checks c against the admission rules and returns the first violation.
// Rules run in field order: name, age, position, party, experience, lists, stances.
func Validate(c *Candidate) error {
	if c == nil {
		return &ValidationError{Field: "candidate", Message: "candidate is required"}
	}

	err := candidateValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "candidate", Message: err.Error()}
	}
	return toValidationError(fieldErrs[0])
}

func toValidationError(fe validator.FieldError) *ValidationError {
	field := fe.Field()
	msg := ""

	switch field {
	case "name":
		if fe.Tag() == "notblank" {
			msg = "name is required"
		} else {
			msg = "name must be between 2 and 100 characters"
		}
	case "age":
		msg = "age must be between 18 and 100"
	case "position":
		msg = "position is required"
	case "party_affiliation":
		msg = "party affiliation is required"
	case "years_of_experience":
		msg = "years of experience must be between 0 and 80"
	case "platforms", "supported_issues", "opposed_issues", "notable_laws", "social_stance":
		msg = fmt.Sprintf("%s must not be nil", strings.ReplaceAll(field, "_", " "))
	}

	switch fe.Tag() {
	case "social_issue":
		field = "social_stance"
		msg = fmt.Sprintf("unknown social issue %q", fe.Value())
	case "stance":
		field = "social_stance"
		msg = fmt.Sprintf("invalid stance %q", fe.Value())
	}

	if msg == "" {
		msg = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
	return &ValidationError{Field: field, Message: msg}
}
