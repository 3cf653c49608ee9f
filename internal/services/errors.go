package services

import (
	"errors"
	"fmt"

	apperrors "github.com/realprep/exam-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Attempt specific errors
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAccessDenied     = errors.New("access denied to attempt")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptExpired          = errors.New("attempt time has expired")
	ErrAttemptNotSubmitted     = errors.New("attempt not submitted yet")
	ErrAttemptHasNoQuestions   = errors.New("attempt has no questions")
	ErrReviewNotAvailable      = errors.New("review not available until the attempt is submitted")
	ErrQuestionNotInAttempt    = errors.New("question does not belong to this attempt")
	ErrPositionNotInAttempt    = errors.New("no question at this position")

	// Question specific errors
	ErrQuestionNotFound     = errors.New("question not found")
	ErrInvalidChoiceLabel   = errors.New("invalid choice label")
	ErrInvalidAttemptMode   = errors.New("invalid attempt mode")
	ErrInvalidQuestionCount = errors.New("question count out of range")
	ErrEmptyQuestionBank    = errors.New("question bank is empty for the requested filters")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyTaken  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Import errors
	ErrImportJobNotFound   = errors.New("import job not found")
	ErrUnsupportedFileType = errors.New("unsupported import file type")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// AssemblyError reports a bank too small to fill the requested attempt.
type AssemblyError struct {
	Requested int `json:"requested"`
	Got       int `json:"got"`
}

func (ae *AssemblyError) Error() string {
	return fmt.Sprintf("unable to assemble %d questions (got %d)", ae.Requested, ae.Got)
}

func NewAssemblyError(requested, got int) *AssemblyError {
	return &AssemblyError{Requested: requested, Got: got}
}

type PermissionError struct {
	UserID     uint   `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrImportJobNotFound) ||
		errors.Is(err, ErrPositionNotInAttempt)
}

// IsForbidden checks if error represents a permission failure
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrAttemptAccessDenied) ||
		errors.Is(err, ErrReviewNotAvailable) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAttemptAlreadySubmitted) ||
		errors.Is(err, ErrAttemptNotSubmitted) ||
		errors.Is(err, ErrEmailAlreadyTaken)
}

// IsExpired checks if error means the attempt's time limit ran out
func IsExpired(err error) bool {
	return errors.Is(err, ErrAttemptExpired)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBadRequest checks if error represents malformed or unfillable input
func IsBadRequest(err error) bool {
	if errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrInvalidChoiceLabel) ||
		errors.Is(err, ErrInvalidAttemptMode) ||
		errors.Is(err, ErrInvalidQuestionCount) ||
		errors.Is(err, ErrEmptyQuestionBank) ||
		errors.Is(err, ErrAttemptHasNoQuestions) ||
		errors.Is(err, ErrQuestionNotInAttempt) ||
		errors.Is(err, ErrUnsupportedFileType) {
		return true
	}
	var ae *AssemblyError
	return errors.As(err, &ae)
}
