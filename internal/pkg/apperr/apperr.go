package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Kind is the stable machine-checkable error category.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Conflict codes distinguish state-incompatible requests so callers (and the UI)
// can react specifically, e.g. "acknowledge first" for pending_instruction.
const (
	CodeInsufficientStock   = "insufficient_stock"
	CodeSelfPurchase        = "self_purchase"
	CodeNotAvailable        = "not_available"
	CodeInvalidTransition   = "invalid_transition"
	CodeDisputed            = "disputed"
	CodePendingInstruction  = "pending_instruction"
	CodeDuplicateSettlement = "duplicate_settlement"
	CodeActiveOrders        = "active_orders"
	CodeDisputeExists       = "dispute_exists"
)

// Error carries a category, an optional machine code, and a human-readable reason.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error with an explicit kind and code.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Internal wraps a store/collaborator failure. The original error is not
// exposed to callers; log it at the call site.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// From returns the *Error inside err, or a generic internal error. Services
// return *Error for every guard failure, so anything else is a store failure.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("Internal Server Error")
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// CodeOf returns the machine code of err, empty for non-app errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps an error to its HTTP status code.
func HTTPStatus(err error) int {
	switch From(err).Kind {
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidInput:
		return fiber.StatusBadRequest
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
