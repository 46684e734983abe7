// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/chronos/internal/httputil"
)

var rateLimitMarkers = []string{
	"429",
	"resource_exhausted",
	"quota",
	"rate limit",
	"too many requests",
}

// delayPatterns find a server-suggested wait in an error message, most
// specific first.
var delayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"retryDelay":\s*"(\d+)(?:\.\d+)?s"`),
	regexp.MustCompile(`"retryDelay":\s*(\d+)`),
	regexp.MustCompile(`(?i)retryAfter:\s*(\d+)`),
	regexp.MustCompile(`(?i)Retry-After:\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*seconds?\b`),
}

// IsRateLimit reports whether err looks like a quota or rate-limit rejection.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// SuggestedDelay extracts the wait a server asked for, or 0.
func SuggestedDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	var se *httputil.StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter
	}
	msg := err.Error()
	for _, p := range delayPatterns {
		if m := p.FindStringSubmatch(msg); m != nil {
			if secs, convErr := strconv.Atoi(m[1]); convErr == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}

// Retryable reports whether a failed generation should be attempted again.
// Cancellation and client errors other than 429 are final.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := statusCode(err)
	switch {
	case code == 0:
		return true
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return true
	default:
		return false
	}
}

// statusCode returns the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var se *httputil.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
