package service

import "errors"

var (
	// ErrAuthFailure covers both unknown username and wrong password so the
	// response cannot be used for username enumeration.
	ErrAuthFailure = errors.New("invalid username or password")

	// ErrNotAuthenticated marks a protected operation invoked without a
	// valid session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidDateRange marks unparseable dates or a non-positive night
	// count.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrStorage hides persistence failures from callers; the underlying
	// error is logged at the point of interaction.
	ErrStorage = errors.New("storage failure")
)
