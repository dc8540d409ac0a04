package httpclient

import "net/http"

// Authenticator decorates an outgoing request with credentials.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// BasicAuth sends HTTP basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Authenticate(req *http.Request) error {
	req.SetBasicAuth(a.Username, a.Password)
	return nil
}

// BearerAuth sends a bearer token.
type BearerAuth struct {
	Token string
}

func (a BearerAuth) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// AuthFunc adapts a function to Authenticator.
type AuthFunc func(req *http.Request) error

func (f AuthFunc) Authenticate(req *http.Request) error {
	return f(req)
}
