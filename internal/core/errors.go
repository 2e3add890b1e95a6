package core

import "errors"

// Error codes for domain errors. These travel to clients verbatim in
// error frames.
const (
	ErrCodeNameConflict     = "name_conflict"
	ErrCodeUnknownUser      = "unknown_user"
	ErrCodeUnknownChat      = "unknown_chat"
	ErrCodeNotAParticipant  = "not_a_participant"
	ErrCodeAlreadyAuthed    = "already_authenticated"
	ErrCodeUnauthenticated  = "unauthenticated"
	ErrCodeMalformedCommand = "malformed_command"
	ErrCodeServerFull       = "server_full"
	ErrCodeServerLocked     = "server_locked"
)

var (
	ErrNameConflict    = errors.New("display name already taken")
	ErrUnknownUser     = errors.New("unknown user")
	ErrUnknownChat     = errors.New("unknown chat")
	ErrNotAParticipant = errors.New("not a participant")
	ErrAlreadyAuthed   = errors.New("session already authenticated")
	ErrUnauthenticated = errors.New("session not authenticated")
	ErrServerFull      = errors.New("server at user capacity")
	ErrServerLocked    = errors.New("server locked for registration")
	ErrSessionClosed   = errors.New("session closed")
)

// Error wraps a code and human-readable message for the wire.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// WireError maps a domain error to its wire representation. Unknown
// errors are reported as malformed_command rather than leaking internals.
func WireError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	code := ErrCodeMalformedCommand
	switch {
	case errors.Is(err, ErrNameConflict):
		code = ErrCodeNameConflict
	case errors.Is(err, ErrUnknownUser):
		code = ErrCodeUnknownUser
	case errors.Is(err, ErrUnknownChat):
		code = ErrCodeUnknownChat
	case errors.Is(err, ErrNotAParticipant):
		code = ErrCodeNotAParticipant
	case errors.Is(err, ErrAlreadyAuthed):
		code = ErrCodeAlreadyAuthed
	case errors.Is(err, ErrUnauthenticated):
		code = ErrCodeUnauthenticated
	case errors.Is(err, ErrServerFull):
		code = ErrCodeServerFull
	case errors.Is(err, ErrServerLocked):
		code = ErrCodeServerLocked
	}
	return &Error{Code: code, Message: err.Error()}
}
