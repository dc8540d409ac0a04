package httpclient

import (
	"encoding/json"
	"net/http"
	"time"
)

// Request is the sent form of a request, as seen by logs and message builders.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Text returns the body as a string.
func (r *Request) Text() string {
	return string(r.Body)
}

// Response is a fully read response.
type Response struct {
	Request    *Request
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

func (r *Response) IsInfo() bool        { return r.StatusCode >= 100 && r.StatusCode < 200 }
func (r *Response) IsSuccess() bool     { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsRedirect() bool    { return r.StatusCode >= 300 && r.StatusCode < 400 }
func (r *Response) IsClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }
func (r *Response) IsServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }

// StatusClass returns the class name of the status code.
func (r *Response) StatusClass() StatusClass {
	switch {
	case r.IsInfo():
		return StatusInfo
	case r.IsSuccess():
		return StatusSuccess
	case r.IsRedirect():
		return StatusRedirect
	case r.IsClientError():
		return StatusClientError
	case r.IsServerError():
		return StatusServerError
	}
	return ""
}
