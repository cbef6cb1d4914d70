package errs

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a rejected request.
type Kind string

const (
	RoomNotFound         Kind = "RoomNotFound"
	RoomFull             Kind = "RoomFull"
	InvalidRoomState     Kind = "InvalidRoomState"
	NotHost              Kind = "NotHost"
	NotInRoom            Kind = "NotInRoom"
	CannotKickHost       Kind = "CannotKickHost"
	CannotKickSelf       Kind = "CannotKickSelf"
	NotEnoughPlayers     Kind = "NotEnoughPlayers"
	PlayersNotReady      Kind = "PlayersNotReady"
	InvalidConfiguration Kind = "InvalidConfiguration"
	RoundLimitExceeded   Kind = "RoundLimitExceeded"
	AlreadySubmitted     Kind = "AlreadySubmitted"
	RoomCreationFailed   Kind = "RoomCreationFailed"
	InvalidPayload       Kind = "InvalidPayload"
	RateLimited          Kind = "RateLimited"
)

// Error is returned to the requesting connection only. It never carries
// partial state: an operation that fails with an Error has not mutated anything.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind carried by err. Anything that is not an *Error is
// reported as InvalidRoomState.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InvalidRoomState
}

var (
	ErrRoomNotFound         = New(RoomNotFound, "")
	ErrRoomFull             = New(RoomFull, "")
	ErrInvalidRoomState     = New(InvalidRoomState, "")
	ErrNotHost              = New(NotHost, "")
	ErrNotInRoom            = New(NotInRoom, "")
	ErrCannotKickHost       = New(CannotKickHost, "")
	ErrCannotKickSelf       = New(CannotKickSelf, "")
	ErrNotEnoughPlayers     = New(NotEnoughPlayers, "")
	ErrPlayersNotReady      = New(PlayersNotReady, "")
	ErrInvalidConfiguration = New(InvalidConfiguration, "")
	ErrRoundLimitExceeded   = New(RoundLimitExceeded, "")
	ErrAlreadySubmitted     = New(AlreadySubmitted, "")
	ErrRoomCreationFailed   = New(RoomCreationFailed, "")
	ErrInvalidPayload       = New(InvalidPayload, "")
	ErrRateLimited          = New(RateLimited, "")
)
