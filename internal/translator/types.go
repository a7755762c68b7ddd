// Package translator provides a uniform client interface over the supported
// machine-translation backends.
package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Service identifiers accepted by New.
const (
	ServiceGoogle         = "google"
	ServiceLibreTranslate = "libretranslate"
	ServiceMyMemory       = "mymemory"
)

// Translator translates a single piece of text between two languages.
// Implementations must map blank input to blank output without touching
// the network.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// ErrorKind classifies a ServiceError for retry decisions.
type ErrorKind int

const (
	// KindTransient errors (timeouts, rate limits, 5xx) may be retried.
	KindTransient ErrorKind = iota
	// KindPermanent errors (bad language pair, malformed input) must not be.
	KindPermanent
)

func (k ErrorKind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// ServiceError is a failure reported by a translation backend.
type ServiceError struct {
	Service string
	Kind    ErrorKind
	Status  int // HTTP status, 0 for network-level failures
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s error (status %d): %s", e.Service, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Service, e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is a retryable ServiceError.
func IsTransient(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Kind == KindTransient
}

// statusKind maps an HTTP status code to an error kind. Rate limits and
// server-side failures are retryable, everything else is not.
func statusKind(status int) ErrorKind {
	if status == http.StatusTooManyRequests || status >= 500 {
		return KindTransient
	}
	return KindPermanent
}

// Config selects and configures the backend for a run.
type Config struct {
	Service string
	// LibreTranslateURL overrides the LibreTranslate endpoint.
	LibreTranslateURL string
	// MyMemoryEmail is the optional contact email that raises the MyMemory
	// daily quota.
	MyMemoryEmail string
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

const defaultTimeout = 30 * time.Second

// New returns the Translator for cfg.Service.
func New(cfg Config) (Translator, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Service {
	case ServiceGoogle, "":
		return NewGoogle(client), nil
	case ServiceLibreTranslate:
		return NewLibreTranslate(client, cfg.LibreTranslateURL), nil
	case ServiceMyMemory:
		return NewMyMemory(client, cfg.MyMemoryEmail), nil
	default:
		return nil, fmt.Errorf("unknown translation service: %s", cfg.Service)
	}
}
