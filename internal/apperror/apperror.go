// Package apperror holds the closed set of failures the reservation and
// payment flows return to callers.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindContention     Kind = "contention"
	KindValidation     Kind = "validation"
	KindReconciliation Kind = "reconciliation"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindConflict       Kind = "conflict"
	KindExternal       Kind = "external"
	KindInternal       Kind = "internal"
)

// Action tells the client what it can do about a failure.
type Action string

const (
	ActionRetry          Action = "retry"
	ActionFixInput       Action = "fix_input"
	ActionContactSupport Action = "contact_support"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string

	// escalated is set when a compensating refund could not be completed.
	escalated bool
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on Code so wrapped copies still compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) Escalated() bool {
	return e.escalated
}

func (e *Error) Action() Action {
	if e.escalated {
		return ActionContactSupport
	}
	switch e.Kind {
	case KindContention, KindExternal, KindInternal:
		return ActionRetry
	case KindValidation, KindNotFound, KindForbidden, KindConflict:
		return ActionFixInput
	default:
		return ActionContactSupport
	}
}

// Wrap returns a copy of e carrying cause as the underlying error.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Escalate marks err as needing manual follow-up. The original code and
// message are kept so the buyer still sees why verification failed.
func Escalate(err error) error {
	var e *Error
	if errors.As(err, &e) {
		c := *e
		c.escalated = true
		return &c
	}
	c := *ErrInternal
	c.cause = err
	c.escalated = true
	return &c
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf reports the stable code of err, or INTERNAL_ERROR.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal.Code
}

func IsEscalated(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.escalated
}

// Contention
var (
	ErrSeatAlreadyHeld     = newError(KindContention, "SEAT_ALREADY_HELD", "seat is already held by another buyer")
	ErrSeatBusy            = newError(KindContention, "SEAT_BUSY", "seat is being reserved by another request, try again")
	ErrPaymentKeyCollision = newError(KindContention, "PAYMENT_KEY_COLLISION", "payment key already exists")
	ErrPaymentKeyExhausted = newError(KindContention, "PAYMENT_KEY_EXHAUSTED", "could not generate a unique payment key")
)

// Validation
var (
	ErrInvalidRequest  = newError(KindValidation, "INVALID_REQUEST", "invalid request")
	ErrInvalidClientIP = newError(KindValidation, "INVALID_CLIENT_IP", "client ip address is not acceptable")
	ErrInvalidAmount   = newError(KindValidation, "INVALID_AMOUNT", "amount must be greater than zero")
	ErrInvalidMethod   = newError(KindValidation, "INVALID_METHOD", "payment method is required")
	ErrMissingPaidAt   = newError(KindValidation, "MISSING_APPROVED_AT", "approval time is required")
)

// Reconciliation
var (
	ErrVerificationFailed  = newError(KindReconciliation, "VERIFICATION_FAILED", "payment verification failed")
	ErrAmountMismatch      = newError(KindReconciliation, "AMOUNT_MISMATCH", "charged amount does not match the expected amount")
	ErrMethodMismatch      = newError(KindReconciliation, "METHOD_MISMATCH", "payment method does not match the registered method")
	ErrBuyerMismatch       = newError(KindReconciliation, "BUYER_MISMATCH", "payment does not belong to this buyer")
	ErrChargeNotPaid       = newError(KindReconciliation, "CHARGE_NOT_PAID", "payment gateway does not report the charge as paid")
	ErrPaidAtOutOfWindow   = newError(KindReconciliation, "PAID_AT_OUT_OF_WINDOW", "payment time reported by the gateway is not plausible")
	ErrReservationNotHeld  = newError(KindReconciliation, "RESERVATION_NOT_HELD", "seat hold is no longer active")
	ErrSeatAlreadyPaid     = newError(KindReconciliation, "SEAT_ALREADY_PAID", "seat already has a completed payment")
	ErrPaymentNotPending   = newError(KindReconciliation, "PAYMENT_NOT_PENDING", "payment is not pending")
	ErrVerificationExpired = newError(KindReconciliation, "VERIFICATION_EXPIRED", "payment verification window has expired")
)

// Not found
var (
	ErrSeatNotFound        = newError(KindNotFound, "SEAT_NOT_FOUND", "seat not found")
	ErrReservationNotFound = newError(KindNotFound, "RESERVATION_NOT_FOUND", "reservation not found")
	ErrPaymentNotFound     = newError(KindNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrChargeNotFound      = newError(KindNotFound, "CHARGE_NOT_FOUND", "payment gateway has no charge for this key")
)

// Forbidden / conflict
var (
	ErrNotPaymentOwner       = newError(KindForbidden, "NOT_PAYMENT_OWNER", "payment belongs to another buyer")
	ErrAlreadyCancelled      = newError(KindConflict, "ALREADY_CANCELLED", "payment is already cancelled")
	ErrNotRefundable         = newError(KindConflict, "NOT_REFUNDABLE", "only paid payments can be refunded")
	ErrReservationConfirmed  = newError(KindConflict, "RESERVATION_CONFIRMED", "confirmed reservations must be refunded instead")
	ErrInvalidSeatTransition = newError(KindConflict, "INVALID_SEAT_TRANSITION", "seat is not in the expected status")
	ErrInvalidReservationOp  = newError(KindConflict, "INVALID_RESERVATION_TRANSITION", "reservation is not in the expected status")
)

// External
var (
	ErrGatewayUnavailable = newError(KindExternal, "GATEWAY_UNAVAILABLE", "payment gateway is unavailable")
	ErrCacheUnavailable   = newError(KindExternal, "CACHE_UNAVAILABLE", "payment cache is unavailable")
)

var ErrInternal = newError(KindInternal, "INTERNAL_ERROR", "internal error")
