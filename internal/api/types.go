package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Prompt string `json:"prompt"`
}

// Kind discriminates the result variants returned by different deployments.
type Kind string

const (
	KindPlain  Kind = "plain"
	KindCode   Kind = "code"
	KindMethod Kind = "method"
)

// Shape selects how a success body is interpreted.
type Shape string

const (
	ShapeAuto   Shape = "auto"
	ShapeCode   Shape = "code"
	ShapeMethod Shape = "method"
)

// ParseShape accepts "", auto, code and method.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case "", ShapeAuto:
		return ShapeAuto, nil
	case ShapeCode, ShapeMethod:
		return Shape(s), nil
	}
	return "", fmt.Errorf("unknown result shape %q (want auto, code or method)", s)
}

// Result is one answer from the service. Only the field named by Kind is set.
type Result struct {
	Answer string `json:"answer"`
	Kind   Kind   `json:"kind"`
	Code   string `json:"code,omitempty"`
	Method string `json:"method,omitempty"`
	// Status is the HTTP status of the reply; not part of the wire format.
	Status int `json:"-"`
}

var (
	// ErrMalformedResponse is returned when a 2xx body is not a usable result.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTimeout is returned when the client-side request timeout fires.
	ErrTimeout = errors.New("timed out")
)

// ResponseError is a 2xx reply whose body could not be decoded.
type ResponseError struct {
	Status int
	Err    error
}

func (e *ResponseError) Error() string { return e.Err.Error() }

func (e *ResponseError) Unwrap() error { return e.Err }

// StatusError is a non-2xx reply from the service.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Request failed: %d", e.Status)
}

type wireResult struct {
	Answer *string `json:"answer"`
	Code   *string `json:"code"`
	Method *string `json:"method"`
}

// DecodeResult parses a success body according to shape.
func DecodeResult(data []byte, shape Shape) (Result, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if w.Answer == nil {
		return Result{}, fmt.Errorf("%w: missing answer", ErrMalformedResponse)
	}

	res := Result{Answer: *w.Answer, Kind: KindPlain}
	code := deref(w.Code)
	method := deref(w.Method)

	switch shape {
	case ShapeCode:
		if code != "" {
			res.Kind, res.Code = KindCode, code
		}
	case ShapeMethod:
		if method != "" {
			res.Kind, res.Method = KindMethod, method
		}
	default:
		// code wins when a deployment sends both
		if code != "" {
			res.Kind, res.Code = KindCode, code
		} else if method != "" {
			res.Kind, res.Method = KindMethod, method
		}
	}
	return res, nil
}

// parseDetail extracts a string "detail" field from an error body.
func parseDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil {
		return ""
	}
	return detail
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
