package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/session-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Challenge specific errors
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeEmpty    = errors.New("challenge has no questions")

	// Session specific errors
	ErrSessionNotFound    = errors.New("no active session for this challenge")
	ErrSessionNotTimed    = errors.New("session has no time limit")
	ErrSubmissionNotFound = errors.New("submission not found")

	// Mutation specific errors
	ErrUnknownAction   = errors.New("unknown mutation action")
	ErrActionMismatch  = errors.New("action does not apply to this question type")
	ErrMissingArgument = errors.New("mutation is missing a required argument")

	// Media specific errors
	ErrMediaEmpty       = errors.New("media payload is empty")
	ErrMediaTooLarge    = errors.New("media payload exceeds the size limit")
	ErrMediaUnsupported = errors.New("unsupported media type")
)

// PermissionError carries the who/what/why of a denied access.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSubmissionNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}
