// Package apperrors holds the error taxonomy shared by the ticketing services
// and its mapping onto stable codes and HTTP statuses.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrAlreadyCheckedIn    = errors.New("ticket already checked in")
	ErrSubscriptionInvalid = errors.New("push subscription invalid")
	ErrStorage             = errors.New("storage failure")
	ErrEventNotFound       = errors.New("event not found")
	ErrEventSoldOut        = errors.New("event sold out")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRequest      = errors.New("invalid request")
)

type kind struct {
	err    error
	code   string
	status int
}

var kinds = []kind{
	{ErrProfileNotFound, "PROFILE_NOT_FOUND", http.StatusNotFound},
	{ErrPaymentNotConfirmed, "PAYMENT_NOT_CONFIRMED", http.StatusPaymentRequired},
	{ErrTicketNotFound, "TICKET_NOT_FOUND", http.StatusNotFound},
	{ErrAlreadyCheckedIn, "ALREADY_CHECKED_IN", http.StatusConflict},
	{ErrSubscriptionInvalid, "SUBSCRIPTION_INVALID", http.StatusGone},
	{ErrEventNotFound, "EVENT_NOT_FOUND", http.StatusNotFound},
	{ErrEventSoldOut, "EVENT_SOLD_OUT", http.StatusConflict},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{ErrInvalidRequest, "INVALID_REQUEST", http.StatusBadRequest},
	// Storage last: a domain error wrapped together with ErrStorage keeps its own code.
	{ErrStorage, "STORAGE_ERROR", http.StatusInternalServerError},
}

// Code returns the stable machine-readable code for err, or "INTERNAL_ERROR".
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "INTERNAL_ERROR"
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Storage wraps a driver error so callers can match it with ErrStorage
// while the original error stays in the chain.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, err: err}
}

type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string { return e.op + ": " + ErrStorage.Error() + ": " + e.err.Error() }

func (e *storageError) Unwrap() []error { return []error{ErrStorage, e.err} }
