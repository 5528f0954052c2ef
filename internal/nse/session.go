// Package nse implements thin HTTP clients for the NSE data endpoints.
// They are the production implementations of the fetch-function contracts
// consumed by the gather pipeline; all normalization happens downstream.
package nse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"nsedata/internal/util"
)

// BaseURL is the NSE site root all endpoints hang off.
const BaseURL = "https://www.nseindia.com"

// session holds the cookie-primed HTTP state shared by the clients. The
// API endpoints refuse requests without the cookies set by a regular page
// load, so the first request primes the jar.
type session struct {
	base   string
	client *http.Client

	mu     sync.Mutex
	primed bool
}

func newSession(base string) *session {
	jar, _ := cookiejar.New(nil)
	return &session{
		base:   base,
		client: &http.Client{Jar: jar},
	}
}

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         BaseURL + "/",
}

// prime loads the site root once so the server sets the session cookies.
func (s *session) prime(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primed {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/", nil)
	if err != nil {
		return err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("priming session: %w", err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()

	s.primed = true
	return nil
}

// statusError is a non-2xx response, kept distinct so the retry predicate
// can tell transient server trouble from terminal failures.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

// isTransient reports whether an error is worth retrying: network-level
// failures, rate limiting, and server errors. Context expiry is never
// retried; it must surface unchanged so callers can classify timeouts.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// getJSON fetches path with the given query, retrying transient failures,
// and decodes the JSON body into v. A 401/403 drops the primed cookies so
// the next attempt re-primes.
func (s *session) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	return util.RetryIf(ctx, 3, 500*time.Millisecond, isTransient, func() error {
		if err := s.prime(ctx); err != nil {
			return err
		}

		u := s.base + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				s.mu.Lock()
				s.primed = false
				s.mu.Unlock()
			}
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return &statusError{code: resp.StatusCode, body: string(snippet)}
		}

		return json.NewDecoder(resp.Body).Decode(v)
	})
}

// cellString renders a decoded JSON value as a table cell. Whole-number
// floats print without the trailing ".0" JSON decoding would otherwise
// introduce.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
