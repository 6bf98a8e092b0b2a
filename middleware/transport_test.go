package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportAttachesBearerAndKeepsRequestIntact(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, _, _ := newTestDecorator(tokenSession("abc"))
	client := NewClient(&http.Client{Timeout: 5 * time.Second}, d)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/orders", nil)
	require.NoError(t, err)
	req.Header.Set("X-Caller", "yes")

	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "yes", got.Get("X-Caller"))
	assert.NotEmpty(t, got.Get(HeaderRequestID))
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, 5*time.Second, client.Timeout)
}

func TestTransportCallerAuthorizationWins(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	d, _, _ := newTestDecorator(tokenSession("abc"))
	client := NewClient(nil, d)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer override")

	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer override", got)
}

func TestTransportAnonymousSendsNoCredential(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Values("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d, _, _ := newTestDecorator(nil)
	resp, err := NewClient(nil, d).Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Empty(t, got)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransportRequiresDecorator(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.invalid", nil)
	_, err := (&Transport{}).RoundTrip(req)
	require.Error(t, err)
}

type trackedBody struct {
	closed bool
}

func (b *trackedBody) Read([]byte) (int, error) { return 0, io.EOF }

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestTransportWithoutDecoratorClosesBody(t *testing.T) {
	body := &trackedBody{}
	req := httptest.NewRequest(http.MethodPost, "http://example.invalid", body)
	req.Body = body

	_, err := (&Transport{}).RoundTrip(req)
	require.Error(t, err)
	assert.True(t, body.closed)
}
