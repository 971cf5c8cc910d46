package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind classifies a per-URL failure for events, retry policy and
// the progress error counters
type ErrorKind string

const (
	ErrNetworkTransient      ErrorKind = "NetworkTransient"
	ErrNetworkPermanent      ErrorKind = "NetworkPermanent"
	ErrRobotsDisallow        ErrorKind = "RobotsDisallow"
	ErrParse                 ErrorKind = "ParseError"
	ErrQuotaExceeded         ErrorKind = "QuotaExceeded"
	ErrCancelled             ErrorKind = "Cancelled"
	ErrCapabilityUnavailable ErrorKind = "CapabilityUnavailable"
	ErrInternal              ErrorKind = "Internal"
)

// CrawlFailure carries the classification alongside the cause
type CrawlFailure struct {
	Kind       ErrorKind
	StatusCode int
	Retries    int
	Err        error
}

func (f *CrawlFailure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *CrawlFailure) Unwrap() error { return f.Err }

// failure builds a CrawlFailure
func failure(kind ErrorKind, status int, err error) *CrawlFailure {
	return &CrawlFailure{Kind: kind, StatusCode: status, Err: err}
}

// classifyFetchError maps a transport error or status code onto an
// error kind. Transient: network errors, 5xx and 429. Permanent: other
// 4xx, TLS failures and malformed URLs.
func classifyFetchError(statusCode int, err error) ErrorKind {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrCancelled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrNetworkTransient
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			if urlErr.Timeout() {
				return ErrNetworkTransient
			}
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return ErrNetworkTransient
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return ErrNetworkTransient
		}
		return ErrNetworkPermanent
	}

	switch {
	case statusCode == 429 || statusCode >= 500:
		return ErrNetworkTransient
	case statusCode >= 400:
		return ErrNetworkPermanent
	}
	return ErrNetworkTransient
}

// retryable reports whether the kind may be retried with backoff
func retryable(kind ErrorKind) bool {
	return kind == ErrNetworkTransient
}
