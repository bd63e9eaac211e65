package domain

import "errors"

var (
	// ErrMalformedInput is returned when an inbound message has a bad shape or format.
	ErrMalformedInput = errors.New("malformed input")
	// ErrRoomNotFound is returned when a room code does not resolve to a live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrParticipantNotFound is returned when a connection acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrUnauthorized is returned when a non-host attempts a host-only action.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition is returned when an action is illegal for the room status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoActiveQuestion is returned when no question is currently open.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrDuplicateSubmission is returned on a second answer to the same question.
	ErrDuplicateSubmission = errors.New("answer already submitted for this question")
	// ErrLateSubmission is returned when an answer arrives past the grace window.
	ErrLateSubmission = errors.New("submission too late")
	// ErrInvalidOption indicates a submitted option index is out of range.
	ErrInvalidOption = errors.New("invalid answer index")
	// ErrNameConflict is returned when a nickname is already taken in the room.
	ErrNameConflict = errors.New("nickname already taken")
	// ErrInvalidQuiz indicates stored quiz content violates the question constraints.
	ErrInvalidQuiz = errors.New("invalid quiz")
)

// ErrorKind is the client-facing category of a failure.
type ErrorKind string

const (
	KindMalformedInput      ErrorKind = "MalformedInput"
	KindNotFound            ErrorKind = "NotFound"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindInvalidTransition   ErrorKind = "InvalidTransition"
	KindDuplicateSubmission ErrorKind = "DuplicateSubmission"
	KindLateSubmission      ErrorKind = "LateSubmission"
	KindInvalidOption       ErrorKind = "InvalidOption"
	KindNameConflict        ErrorKind = "NameConflict"
	KindInternal            ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrMalformedInput, KindMalformedInput},
	{ErrInvalidQuiz, KindMalformedInput},
	{ErrRoomNotFound, KindNotFound},
	{ErrQuizNotFound, KindNotFound},
	{ErrParticipantNotFound, KindNotFound},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrNoActiveQuestion, KindInvalidTransition},
	{ErrDuplicateSubmission, KindDuplicateSubmission},
	{ErrLateSubmission, KindLateSubmission},
	{ErrInvalidOption, KindInvalidOption},
	{ErrNameConflict, KindNameConflict},
}

// Kind classifies err; anything outside the taxonomy is KindInternal.
func Kind(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// RejectError pairs a taxonomy sentinel with the message shown to the client.
type RejectError struct {
	Err     error
	Message string
}

func (e *RejectError) Error() string { return e.Message }
func (e *RejectError) Unwrap() error { return e.Err }

// Reject wraps a sentinel with a client-facing message.
func Reject(err error, message string) error {
	return &RejectError{Err: err, Message: message}
}
