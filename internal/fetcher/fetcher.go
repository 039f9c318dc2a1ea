package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"AssetDash/internal/model"
)

// Fetcher retrieves daily price rows from a remote provider.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, rng model.DateRange) ([]model.PriceRow, error)
	Name() string
}

// Kind classifies a fetch failure.
type Kind int

const (
	// Unavailable is transient: network trouble, rate limits, provider outages.
	Unavailable Kind = iota
	// NotFound means the provider does not know the symbol. Do not retry.
	NotFound
	// PartialData means only part of the range came back. Rows holds it.
	PartialData
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case NotFound:
		return "not found"
	case PartialData:
		return "partial data"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every Fetcher implementation.
type Error struct {
	Kind   Kind
	Symbol string
	Err    error
	Rows   []model.PriceRow // set for PartialData
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of a fetch error; ok is false for other errors.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsNotFound(err error) bool    { return is(err, NotFound) }
func IsUnavailable(err error) bool { return is(err, Unavailable) }
func IsPartial(err error) bool     { return is(err, PartialData) }

func unavailable(symbol string, err error) error {
	return &Error{Kind: Unavailable, Symbol: symbol, Err: err}
}

func notFound(symbol string, err error) error {
	return &Error{Kind: NotFound, Symbol: symbol, Err: err}
}

// statusError maps an HTTP status to a fetch error kind.
func statusError(symbol string, status int, body string) error {
	err := fmt.Errorf("status %d, body: %s", status, body)
	if status == http.StatusNotFound {
		return notFound(symbol, err)
	}
	return unavailable(symbol, err)
}

// newHTTPClient builds the client shared by the HTTP providers, with optional proxy.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
