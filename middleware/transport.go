package middleware

import (
	"errors"
	"net/http"
)

// Transport is an http.RoundTripper that decorates every request with a Decorator before
// handing it to Base. The original request is never modified.
type Transport struct {
	Decorator *Decorator
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Decorator == nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, errors.New("middleware: nil decorator")
	}

	opts := t.Decorator.Decorate(req.Context(), Options{Method: req.Method, Header: req.Header})

	r2 := req.Clone(req.Context())
	r2.Header = opts.Header
	return t.base().RoundTrip(r2)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewClient returns an *http.Client whose requests pass through d. A nil base uses a
// zero-value http.Client.
func NewClient(base *http.Client, d *Decorator) *http.Client {
	c := &http.Client{}
	if base != nil {
		*c = *base
	}
	c.Transport = &Transport{Decorator: d, Base: c.Transport}
	return c
}
