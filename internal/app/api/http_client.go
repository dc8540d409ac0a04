package api

import (
	"net/http"
	"time"

	"aws-sqs-http-gateway/internal/pkg/httpclient"
)

// httpGlobal sends through the default profile's shared transport.
func (a *API) httpGlobal(w http.ResponseWriter, r *http.Request) {
	resp, err := httpclient.New().Get(r.Context(), "/get")
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}

// httpLocal opens a transport for this client only.
func (a *API) httpLocal(w http.ResponseWriter, r *http.Request) {
	client := httpclient.New()
	if err := client.Open(); err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	defer client.Close()

	resp, err := client.Get(r.Context(), "/get")
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}

func (a *API) httpLocalScoped(w http.ResponseWriter, r *http.Request) {
	var resp *httpclient.Response
	client := httpclient.New(httpclient.WithBaseURL(a.Config.ScopedBaseURL))
	err := client.Scoped(func(c *httpclient.Client) error {
		var err error
		resp, err = c.Get(r.Context(), "/todos", httpclient.Param("_limit", "5"))
		return err
	})
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}

// httpLocalTimeout shows the request timeout winning over the client's.
func (a *API) httpLocalTimeout(w http.ResponseWriter, r *http.Request) {
	client := httpclient.New(httpclient.WithTimeout(5 * time.Second))
	if err := client.Open(); err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	defer client.Close()

	resp, err := client.Get(r.Context(), a.Config.UpstreamURL+"/users", httpclient.Timeout(2*time.Second))
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}

func (a *API) httpLocalRetry(w http.ResponseWriter, r *http.Request) {
	strategy := httpclient.NewRetryStrategy(httpclient.RetryConfig{
		Attempts:         3,
		Delay:            time.Second,
		OnStatuses:       []httpclient.StatusClass{httpclient.StatusServerError},
		OnTimeouts:       true,
		OnNetworkErrors:  true,
		OnProtocolErrors: true,
	})
	client := httpclient.New(
		httpclient.WithBaseURL(a.Config.UpstreamURL),
		httpclient.WithTimeout(5*time.Second),
		httpclient.WithRetry(strategy),
	)

	var resp *httpclient.Response
	err := client.Scoped(func(c *httpclient.Client) error {
		var err error
		resp, err = c.Get(r.Context(), "/posts")
		return err
	})
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}
