package crawler

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFetchError_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected ErrorKind
	}{
		{"rate limited", 429, ErrNetworkTransient},
		{"server error", 500, ErrNetworkTransient},
		{"bad gateway", 502, ErrNetworkTransient},
		{"not found", 404, ErrNetworkPermanent},
		{"gone", 410, ErrNetworkPermanent},
		{"forbidden", 403, ErrNetworkPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyFetchError(tt.status, nil))
		})
	}
}

func TestClassifyFetchError_TransportErrors(t *testing.T) {
	assert.Equal(t, ErrCancelled, classifyFetchError(0, context.Canceled))
	assert.Equal(t, ErrNetworkTransient, classifyFetchError(0, context.DeadlineExceeded))
	assert.Equal(t, ErrNetworkTransient, classifyFetchError(0, &net.DNSError{Err: "no such host"}))
	assert.Equal(t, ErrNetworkPermanent, classifyFetchError(0, errors.New("x509: certificate expired")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(ErrNetworkTransient))
	assert.False(t, retryable(ErrNetworkPermanent))
	assert.False(t, retryable(ErrRobotsDisallow))
	assert.False(t, retryable(ErrCancelled))
	assert.False(t, retryable(ErrQuotaExceeded))
}

func TestCrawlFailure_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	fail := failure(ErrNetworkTransient, 0, cause)

	assert.Contains(t, fail.Error(), "NetworkTransient")
	assert.Contains(t, fail.Error(), "connection refused")
	assert.ErrorIs(t, fail, cause)

	bare := failure(ErrInternal, 0, nil)
	assert.Equal(t, "Internal", bare.Error())
}
