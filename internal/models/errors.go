package models

import (
	"errors"
	"fmt"
)

var ErrSessionNotFound = errors.New("session not found or expired")
var ErrTurnInFlight = errors.New("a dialogue turn is already in progress")
var ErrOptimizeInFlight = errors.New("a route optimization is already in progress")
var ErrNotAwaitingConfirmation = errors.New("session is not awaiting a confirmation")
var ErrSessionFinalized = errors.New("flight record is already finalized for this session")
var ErrRecordNotFinalized = errors.New("flight record has not been finalized yet")
var ErrExtractionFailed = errors.New("could not extract a flight record from the conversation")
var ErrLambdaOutOfRange = errors.New("lambda must be between 0 and 2")
var ErrStaleResult = errors.New("result superseded by a newer request")
// Add other common domain errors

// TransportError reports a network or service failure while talking to an
// external collaborator (language model, optimizer, verifier).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a reply that arrived but could not be
// parsed into the expected shape.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ErrorResponse is the uniform JSON error body returned by all handlers.
// The Message field is English so the frontend can surface it directly.
type ErrorResponse struct {
	Message string `json:"message"`
}
