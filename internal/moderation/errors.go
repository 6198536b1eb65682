package moderation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the target content, ledger entry, user or
	// appeal does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor may not perform the action. The
	// message never says why.
	ErrForbidden = errors.New("you do not have permission")

	// ErrInvalidReference is returned when a comment's parent does not
	// resolve to visible content.
	ErrInvalidReference = errors.New("invalid parent reference")

	// ErrAlreadyInState marks an idempotent no-op. The engine converts it to
	// OutcomeUnchanged and never returns it.
	ErrAlreadyInState = errors.New("already in requested state")

	// ErrTransaction wraps a failed multi-row mutation that was rolled back.
	ErrTransaction = errors.New("transaction failed")

	// ErrInvalidArgument is returned for malformed input such as a blank
	// reason or an unknown category.
	ErrInvalidArgument = errors.New("invalid argument")
)

func txFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrTransaction, err)
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Outcome names the effect of a write operation.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeReported    Outcome = "reported"
	OutcomeHardDeleted Outcome = "hard_deleted"
	OutcomeSoftDeleted Outcome = "soft_deleted"
	OutcomeRestored    Outcome = "restored"
	OutcomeDismissed   Outcome = "dismissed"
	OutcomeWarned      Outcome = "warned"
	OutcomeBanned      Outcome = "banned"
	OutcomeUnbanned    Outcome = "unbanned"
	OutcomeSubmitted   Outcome = "submitted"
	OutcomeAnswered    Outcome = "answered"
	OutcomeGranted     Outcome = "granted"
	OutcomeRevoked     Outcome = "revoked"
	OutcomeRead        Outcome = "read"
	OutcomeUnchanged   Outcome = "unchanged"
)

// outcomeOf maps ErrAlreadyInState to OutcomeUnchanged and passes other
// results through.
func outcomeOf(done Outcome, err error) (Outcome, error) {
	if errors.Is(err, ErrAlreadyInState) {
		return OutcomeUnchanged, nil
	}
	if err != nil {
		return "", err
	}
	return done, nil
}

// errorLabel classifies an error for metrics.
func errorLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrTransaction):
		return "transaction_failure"
	default:
		return "error"
	}
}
