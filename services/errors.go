package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error kinds. Every WorkflowError unwraps to exactly one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrValidation         = errors.New("validation failed")
)

// WorkflowError is a business-rule rejection. Message is shown to the user verbatim.
type WorkflowError struct {
	Kind    error
	Code    string
	Message string
}

func (e *WorkflowError) Error() string {
	return e.Message
}

// Unwrap returns the error kind so callers can use errors.Is
func (e *WorkflowError) Unwrap() error {
	return e.Kind
}

func notFound(code, format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Kind: ErrNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func violation(code, format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Kind: ErrInvariantViolation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Kind: ErrValidation, Code: "VALIDATION_ERROR", Message: fmt.Sprintf(format, args...)}
}

// Error codes surfaced to API callers
const (
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeStaffNotFound          = "STAFF_NOT_FOUND"
	CodeOrderCollected         = "ORDER_COLLECTED"
	CodeOrderCompleted         = "ORDER_ALREADY_COMPLETED"
	CodeOrderNotCompleted      = "ORDER_NOT_COMPLETED"
	CodeOrderAlreadyAssigned   = "ORDER_ALREADY_ASSIGNED"
	CodeNoActiveAssignment     = "NO_ACTIVE_ASSIGNMENT"
	CodeInvalidStage           = "INVALID_STAGE"
	CodeStaffInactive          = "STAFF_INACTIVE"
	CodeStaffBusy              = "STAFF_BUSY"
	CodeRoleMismatch           = "ROLE_MISMATCH"
	CodeDuplicatePhone         = "DUPLICATE_PHONE"
	CodeStaffHasActiveWork     = "STAFF_HAS_ACTIVE_ASSIGNMENT"
	CodeOrderHasActiveWork     = "ORDER_HAS_ACTIVE_ASSIGNMENT"
	CodeInconsistentAssignment = "INCONSISTENT_ASSIGNMENT"
	CodeAssignmentConflict     = "ASSIGNMENT_CONFLICT"
	CodeImportTooLarge         = "IMPORT_TOO_LARGE"
)

// ErrorCode returns the API code for err, or "" if err is not a WorkflowError
func ErrorCode(err error) string {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// isDuplicateKey detects unique index violations (works with both PostgreSQL and SQLite)
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Untranslated driver errors from raw queries
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "unique constraint failed") ||
		strings.Contains(errMsg, "duplicate key value violates unique constraint")
}
