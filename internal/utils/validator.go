package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/SAP-F-2025/session-engine/internal/errors"
	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the custom rules used on
// session requests and payloads.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate checks a struct against its validate tags, returning the shared
// ValidationErrors type on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// ValidateVar checks a single value against a rule expression.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

// ===== CUSTOM RULES =====

func ValidateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.QuestionSingleChoice,
		models.QuestionMultiSelect,
		models.QuestionTrueFalse,
		models.QuestionDropdown,
		models.QuestionFillBlank,
		models.QuestionDragDrop,
		models.QuestionReorder,
		models.QuestionRewrite,
		models.QuestionWriting,
		models.QuestionAudio,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateViolationCategory(fl validator.FieldLevel) bool {
	validCategories := []models.ViolationCategory{
		models.ViolationTabSwitch,
		models.ViolationCopy,
		models.ViolationPaste,
	}

	value := fl.Field().String()
	for _, validCategory := range validCategories {
		if string(validCategory) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom rules on a validator instance.
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("violation_category", ValidateViolationCategory)

	// Use json names in error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
