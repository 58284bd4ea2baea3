package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MsgInvalidRequest is the body message used when a request cannot be tied to a field
const MsgInvalidRequest = "Invalid request"

// maxBodyBytes bounds how much of an inbound body is read
const maxBodyBytes = 10 << 20

// ErrorResponse is a ready-to-send HTTP response describing why a request was rejected.
// It implements http.Handler so callers can forward it as is.
type ErrorResponse struct {
	StatusCode int
	Header     http.Header
	// Fields is set for field-level failures; otherwise Message is used
	Fields  FieldErrors
	Message string
}

// Error implements error
func (e *ErrorResponse) Error() string {
	if len(e.Fields) > 0 {
		return e.Fields.Error()
	}
	return e.Message
}

// ServeHTTP writes the header set, status code and a JSON body
func (e *ErrorResponse) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	for key, values := range e.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)

	var body interface{} = map[string]string{"message": e.Message}
	if len(e.Fields) > 0 {
		body = e.Fields
	}
	_ = json.NewEncoder(w).Encode(body)
}

// ParseRequest reads a T from r and validates it.
//
// Requests that carry no body (GET, HEAD) are read from the query string with
// every value taken as a string; all other methods are read from the JSON body.
// On failure the returned ErrorResponse uses status 500 and a copy of header.
func ParseRequest[T any](r *http.Request, header http.Header) (*T, *ErrorResponse) {
	data, err := requestData(r)
	if err != nil {
		return nil, invalidRequest(header)
	}

	var v T
	err = Decode(data, &v)
	if err == nil {
		return &v, nil
	}

	var fields FieldErrors
	if errors.As(err, &fields) {
		return nil, &ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Header:     header.Clone(),
			Fields:     fields,
		}
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) && decodeErr.Field != "" {
		fields = FieldErrors{}
		fields.add(decodeErr.Field, fmt.Sprintf("Expected %s, received %s", decodeErr.Expected, decodeErr.Received))
		return nil, &ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Header:     header.Clone(),
			Fields:     fields,
		}
	}

	return nil, invalidRequest(header)
}

// ParseWebhook parses an inbound webhook delivery
func ParseWebhook(r *http.Request, header http.Header) (*WebhookPayload, *ErrorResponse) {
	return ParseRequest[WebhookPayload](r, header)
}

func requestData(r *http.Request) ([]byte, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		query := r.URL.Query()
		if len(query) == 0 {
			return nil, nil
		}
		values := make(map[string]string, len(query))
		for key := range query {
			values[key] = query.Get(key)
		}
		return json.Marshal(values)
	}

	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func invalidRequest(header http.Header) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Header:     header.Clone(),
		Message:    MsgInvalidRequest,
	}
}
