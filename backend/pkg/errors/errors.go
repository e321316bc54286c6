package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeRelation represents friend/subscription rule violations
	ErrorTypeRelation ErrorType = "relation"
	// ErrorTypeStore represents persistence errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeNotify represents notification publishing errors
	ErrorTypeNotify ErrorType = "notify"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// Kind identifies a relation error independently of its message.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindUnauthenticated     Kind = "unauthenticated"
	KindInvalidRequest      Kind = "invalid_request"
	KindInvalidCategory     Kind = "invalid_category"
	KindAlreadyRelated      Kind = "already_related"
	KindNoAcceptableRequest Kind = "no_acceptable_request"
	KindNoRelationship      Kind = "no_relationship"
	KindInconsistentState   Kind = "inconsistent_state"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

func (e *BaseError) errorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Relation Errors

// RelationError is returned by the relationship core for every rule violation.
// Two relation errors match under errors.Is when their kinds are equal.
type RelationError struct {
	*BaseError
	Kind    Kind
	UserID  string
	OtherID string
}

// Is reports whether target is a relation error of the same kind.
func (e *RelationError) Is(target error) bool {
	t, ok := target.(*RelationError)
	return ok && t.Kind == e.Kind
}

func newRelationError(kind Kind, message, userID, otherID string) *RelationError {
	return &RelationError{
		BaseError: NewBaseError(ErrorTypeRelation, message, nil),
		Kind:      kind,
		UserID:    userID,
		OtherID:   otherID,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound            = newRelationError(KindNotFound, "user not found", "", "")
	ErrUnauthenticated     = newRelationError(KindUnauthenticated, "caller is not an authenticated user", "", "")
	ErrInvalidRequest      = newRelationError(KindInvalidRequest, "invalid request", "", "")
	ErrInvalidCategory     = newRelationError(KindInvalidCategory, "category does not exist", "", "")
	ErrAlreadyRelated      = newRelationError(KindAlreadyRelated, "already friends or a friend request is pending", "", "")
	ErrNoAcceptableRequest = newRelationError(KindNoAcceptableRequest, "no acceptable friend request", "", "")
	ErrNoRelationship      = newRelationError(KindNoRelationship, "no relationship to remove", "", "")
	ErrInconsistentState   = newRelationError(KindInconsistentState, "friend state is inconsistent", "", "")
)

// NewUserNotFound is returned when a target user id does not resolve
func NewUserNotFound(userID string) *RelationError {
	return newRelationError(KindNotFound, fmt.Sprintf("user not found: %s", userID), userID, "")
}

// NewUnauthenticated is returned when the caller identity does not resolve
func NewUnauthenticated(identity string) *RelationError {
	return newRelationError(KindUnauthenticated, fmt.Sprintf("caller is not an authenticated user: %s", identity), "", "")
}

// NewInvalidRequest is returned for self-targeting and malformed input
func NewInvalidRequest(reason string) *RelationError {
	return newRelationError(KindInvalidRequest, reason, "", "")
}

// NewInvalidCategory is returned for an unknown category token
func NewInvalidCategory(token string) *RelationError {
	return newRelationError(KindInvalidCategory, fmt.Sprintf("category does not exist: %s", token), "", "")
}

func NewAlreadyRelated(userID, otherID string) *RelationError {
	return newRelationError(KindAlreadyRelated, "already friends or a friend request is pending", userID, otherID)
}

func NewNoAcceptableRequest(requesterID, responderID string) *RelationError {
	return newRelationError(KindNoAcceptableRequest,
		fmt.Sprintf("no acceptable friend request from %s to %s", requesterID, responderID), requesterID, responderID)
}

func NewNoRelationship(userID, otherID string) *RelationError {
	return newRelationError(KindNoRelationship, "no relationship to remove", userID, otherID)
}

// NewInconsistentState is returned when friend edges exist in both directions.
// It indicates a data-integrity fault, not a user error.
func NewInconsistentState(userID, otherID string) *RelationError {
	return newRelationError(KindInconsistentState,
		fmt.Sprintf("friend edges exist in both directions between %s and %s", userID, otherID), userID, otherID)
}

// Store Errors

// ErrStoreQueryFailed is returned when a persistence round-trip fails
type ErrStoreQueryFailed struct {
	*BaseError
	Op string
}

func NewStoreQueryFailed(op string, err error) *ErrStoreQueryFailed {
	return &ErrStoreQueryFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("%s failed", op), err),
		Op:        op,
	}
}

// Notify Errors

// ErrNotifyPublishFailed is returned when a notification cannot be handed to its backend
type ErrNotifyPublishFailed struct {
	*BaseError
	Backend string
}

func NewNotifyPublishFailed(backend string, err error) *ErrNotifyPublishFailed {
	return &ErrNotifyPublishFailed{
		BaseError: NewBaseError(ErrorTypeNotify, fmt.Sprintf("publish to %s failed", backend), err),
		Backend:   backend,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typedError interface {
	errorType() ErrorType
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if te, ok := err.(typedError); ok && te.errorType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// KindOf returns the relation error kind carried by err, or "" if there is none.
func KindOf(err error) Kind {
	var re *RelationError
	if stderrors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Rule violations never succeed on retry
	if IsErrorType(err, ErrorTypeRelation) {
		return false
	}
	return IsErrorType(err, ErrorTypeNotify) || IsErrorType(err, ErrorTypeStore)
}
