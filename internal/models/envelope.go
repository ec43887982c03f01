package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Request envelope
// ---------------------------------------------------------------------------

// Request is the wire envelope sent by clients: {"method": ..., "params": {...}}.
// Method selects a dispatcher handler; Params is handler-specific.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// MarshalJSON always emits a params object, even when Params is nil.
func (r Request) MarshalJSON() ([]byte, error) {
	params := r.Params
	if params == nil {
		params = map[string]any{}
	}
	return json.Marshal(struct {
		Method string         `json:"method"`
		Params map[string]any `json:"params"`
	}{r.Method, params})
}

// ---------------------------------------------------------------------------
// Response envelope
// ---------------------------------------------------------------------------

// ErrMalformedResponse is returned when a decoded body carries neither a
// "result" nor an "error" key.
var ErrMalformedResponse = errors.New("response has neither result nor error")

// Response is the tagged union returned by the dispatcher and the remote
// client. Exactly one of Result or Error is meaningful: a Response with a
// non-empty Error is a failure, anything else is a success.
//
// Result is kept as raw JSON so payloads pass through the client and the
// automation driver byte-for-byte; use Decode to obtain a typed value.
type Response struct {
	Result json.RawMessage
	Error  string
}

// Success builds a success envelope by marshalling payload. A marshal
// failure is itself reported as a failure envelope.
func Success(payload any) Response {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Failure(fmt.Sprintf("encode result: %v", err))
	}
	return Response{Result: raw}
}

// Failure builds an error envelope. An empty message is replaced so the
// envelope can never serialize as a success.
func Failure(msg string) Response {
	if msg == "" {
		msg = "unknown error"
	}
	return Response{Error: msg}
}

// Failed reports whether r is an error envelope.
func (r Response) Failed() bool {
	return r.Error != ""
}

// Decode unmarshals the result payload into v. It fails for error envelopes.
func (r Response) Decode(v any) error {
	if r.Failed() {
		return fmt.Errorf("decode failed response: %s", r.Error)
	}
	if len(r.Result) == 0 {
		return errors.New("decode response: empty result")
	}
	return json.Unmarshal(r.Result, v)
}

// MarshalJSON emits {"error": ...} for failures and {"result": ...} otherwise.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	result := r.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return json.Marshal(struct {
		Result json.RawMessage `json:"result"`
	}{result})
}

// UnmarshalJSON accepts either tag. When both are present the error wins,
// since a server that reports an error must not be read as successful.
func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Non-string error payloads are kept verbatim.
			msg = string(bytes.TrimSpace(raw))
		}
		*r = Failure(msg)
		return nil
	}

	if raw, ok := fields["result"]; ok {
		*r = Response{Result: append(json.RawMessage(nil), raw...)}
		return nil
	}

	return ErrMalformedResponse
}
