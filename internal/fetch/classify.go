// Package fetch retrieves pages and classifies every result into a domain.Outcome.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/user/gpumon/internal/domain"
)

// Fetcher downloads a document as the given identity.
type Fetcher interface {
	Fetch(ctx context.Context, url, userAgent string) domain.Outcome[[]byte]
}

// ClassifyStatus maps an HTTP status to an outcome kind and a report reason.
// Access denials are fatal; every other non-success ends the crawl segment.
func ClassifyStatus(status int) (domain.Kind, string) {
	switch {
	case status > 100 && status < 300:
		return domain.Success, ""
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.Fatal, fmt.Sprintf("access blocked by website (%d)", status)
	case status == http.StatusBadRequest:
		return domain.Retryable, "invalid request"
	case status == http.StatusNotFound:
		return domain.Retryable, "page not found"
	case status == http.StatusInternalServerError:
		return domain.Retryable, "internal server error"
	default:
		return domain.Retryable, fmt.Sprintf("HTTP error occurred (%d)", status)
	}
}

// ClassifyError describes a transport failure. Transport failures are always retryable.
func ClassifyError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("timeout error occurred: %v", err)
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), isDialError(err):
		return fmt.Sprintf("connection error occurred: %v", err)
	default:
		return fmt.Sprintf("an error occurred: %v", err)
	}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func outcomeFor(body []byte, status int) domain.Outcome[[]byte] {
	kind, reason := ClassifyStatus(status)
	switch kind {
	case domain.Success:
		return domain.Succeeded(body, status)
	case domain.Fatal:
		return domain.Halt[[]byte](reason, status)
	default:
		return domain.Retry[[]byte](reason, status)
	}
}
