package conference

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a conference error for propagation and status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidAction
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidAction:
		return "invalid_action"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is a classified conference error. Code is stable and safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches errors of the same code so that errors built by invalidf still compare
// against the sentinel of their code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrConferenceNotFound  = &Error{Kind: KindNotFound, Code: "conference_not_found", Message: "conference not found"}
	ErrParticipantNotFound = &Error{Kind: KindNotFound, Code: "participant_not_found", Message: "participant not found"}
	ErrPollNotFound        = &Error{Kind: KindNotFound, Code: "poll_not_found", Message: "poll not found"}
	ErrForbidden           = &Error{Kind: KindForbidden, Code: "forbidden", Message: "only the host or an admin can do this"}
	ErrInvalidPasscode     = &Error{Kind: KindForbidden, Code: "invalid_passcode", Message: "invalid passcode"}
	ErrConferenceLocked    = &Error{Kind: KindConflict, Code: "conference_locked", Message: "conference is locked"}
	ErrConferenceFull      = &Error{Kind: KindConflict, Code: "conference_full", Message: "conference is full"}
	ErrAlreadyJoined       = &Error{Kind: KindConflict, Code: "already_joined", Message: "connection already joined a conference"}
	ErrOwnedElsewhere      = &Error{Kind: KindConflict, Code: "conference_owned_elsewhere", Message: "conference is hosted by another instance"}
	ErrInvalidAction       = &Error{Kind: KindInvalidAction, Code: "invalid_action", Message: "invalid action"}
	ErrPollClosed          = &Error{Kind: KindInvalidAction, Code: "poll_closed", Message: "poll is closed"}
	ErrFeatureDisabled     = &Error{Kind: KindInvalidAction, Code: "feature_disabled", Message: "feature is disabled for this conference"}
	ErrUnavailable         = &Error{Kind: KindTransient, Code: "unavailable", Message: "conference is unavailable"}
)

func invalidf(format string, args ...any) error {
	return &Error{Kind: KindInvalidAction, Code: ErrInvalidAction.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or KindInternal when err is not a conference error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// StatusOf maps err to an HTTP status. A locked conference is 423, other conflicts 409.
func StatusOf(err error) int {
	if errors.Is(err, ErrConferenceLocked) {
		return http.StatusLocked
	}
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidAction:
		return http.StatusBadRequest
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
