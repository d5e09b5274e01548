// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	// ErrorKindUnknown unclassified non-success status.
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindRateLimit the portal throttled the request.
	ErrorKindRateLimit
	// ErrorKindForbidden missing or rejected app token.
	ErrorKindForbidden
	// ErrorKindInvalidRequest the query was rejected, usually a SoQL error.
	ErrorKindInvalidRequest
	// ErrorKindNotFound the dataset does not exist.
	ErrorKindNotFound
	// ErrorKindUnavailable the portal is down or timing out.
	ErrorKindUnavailable
	// ErrorKindNetwork the request never got a response.
	ErrorKindNetwork
)

var kindNames = map[ErrorKind]string{
	ErrorKindUnknown:        "unknown",
	ErrorKindRateLimit:      "rate limited",
	ErrorKindForbidden:      "forbidden",
	ErrorKindInvalidRequest: "invalid request",
	ErrorKindNotFound:       "not found",
	ErrorKindUnavailable:    "unavailable",
	ErrorKindNetwork:        "network error",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// FetchError is returned when a source cannot be retrieved. It always aborts
// the run.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int // zero for transport failures
	Kind       ErrorKind
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetching %s from %s: %s", e.Source, e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRateLimitError reports whether err is a throttled fetch.
func IsRateLimitError(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind == ErrorKindRateLimit
	}

	return false
}

// ClassifyStatus maps a non-success HTTP status to an ErrorKind.
func ClassifyStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case http.StatusForbidden, http.StatusUnauthorized:
		return ErrorKindForbidden
	case http.StatusBadRequest:
		return ErrorKindInvalidRequest
	case http.StatusNotFound:
		return ErrorKindNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrorKindUnavailable
	default:
		return ErrorKindUnknown
	}
}
