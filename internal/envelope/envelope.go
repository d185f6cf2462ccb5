// Package envelope parses the "response" wrapper that ifirma puts around
// every JSON reply.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CodeSuccess is the Kod value of a successful call.
const CodeSuccess = 0

var (
	// ErrRemoteFailure matches every *RemoteFailure.
	ErrRemoteFailure = errors.New("remote failure")

	// ErrMalformed is returned by Parse for bodies that are not an envelope.
	ErrMalformed = errors.New("malformed response envelope")
)

// Envelope is one parsed "response" object.
type Envelope struct {
	Code    int
	Message string

	// ID is the Identyfikator of a created document, empty when absent.
	ID string

	// Data is the raw "response" object.
	Data json.RawMessage
}

type wire struct {
	Response json.RawMessage `json:"response"`
}

type wireResponse struct {
	Kod           *json.Number `json:"Kod"`
	Informacja    string       `json:"Informacja"`
	Identyfikator any          `json:"Identyfikator"`
}

// Parse reads body's top-level "response" key. A response without Kod is
// malformed.
func Parse(body []byte) (*Envelope, error) {
	var w wire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(w.Response) == 0 || bytes.Equal(w.Response, []byte("null")) {
		return nil, fmt.Errorf("%w: missing response key", ErrMalformed)
	}

	dec := json.NewDecoder(bytes.NewReader(w.Response))
	dec.UseNumber()
	var r wireResponse
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if r.Kod == nil {
		return nil, fmt.Errorf("%w: missing Kod", ErrMalformed)
	}
	code, err := r.Kod.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid Kod %q", ErrMalformed, r.Kod.String())
	}
	env := &Envelope{
		Code:    int(code),
		Message: r.Informacja,
		Data:    w.Response,
	}
	switch id := r.Identyfikator.(type) {
	case nil:
	case json.Number:
		env.ID = id.String()
	case string:
		env.ID = id
	default:
		return nil, fmt.Errorf("%w: unexpected Identyfikator %v", ErrMalformed, id)
	}
	return env, nil
}

// Success reports whether the remote call succeeded.
func (e *Envelope) Success() bool {
	return e != nil && e.Code == CodeSuccess
}

// Err returns a *RemoteFailure for unsuccessful envelopes and nil otherwise.
func (e *Envelope) Err() error {
	if e == nil || e.Success() {
		return nil
	}
	return &RemoteFailure{Code: e.Code, Message: e.Message}
}

// RemoteFailure is an envelope that reports a non-zero Kod.
type RemoteFailure struct {
	Code    int
	Message string
}

func (f *RemoteFailure) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("ifirma error %d", f.Code)
	}
	return fmt.Sprintf("ifirma error %d: %s", f.Code, f.Message)
}

func (f *RemoteFailure) Is(target error) bool { return target == ErrRemoteFailure }
