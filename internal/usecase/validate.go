package usecase

import (
	"errors"
	"fmt"
	"strings"

	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("storyboard_mode", func(fl validator.FieldLevel) bool {
		return entity.Mode(fl.Field().String()).Valid()
	})

	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// ValidateRequest checks a request before any phase touches the page.
func ValidateRequest(req entity.StoryboardRequest) error {
	const op = "ValidateRequest"

	err := requestValidator.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaStage: apperr.StageValidation,
		})
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}

	return apperr.InvalidReqError(op, fieldErrs[0].Namespace(), errors.New(strings.Join(msgs, "; ")))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "StoryboardRequest.")

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "nonblank":
		return field + " must not be blank"
	case "storyboard_mode":
		return fmt.Sprintf("%s %q is not a known mode", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
