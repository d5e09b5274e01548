// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

const (
	traceMaxLines = 256
	traceMaxChars = 512
)

// tracingTransport dumps every request and response to Writer. A nil
// Writer disables tracing.
type tracingTransport struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// trace prefixes and truncates a dump so large JSON pages stay readable.
func trace(dump []byte, prefix rune) string {
	lines := strings.Split(string(dump), "\n")
	truncated := len(lines) > traceMaxLines

	if truncated {
		lines = lines[:traceMaxLines]
	}

	var b strings.Builder

	for _, line := range lines {
		if len(line) > traceMaxChars {
			line = line[:traceMaxChars] + "…"
		}

		fmt.Fprintf(&b, "%c %s\n", prefix, line)
	}

	if truncated {
		fmt.Fprintf(&b, "%c …\n", prefix)
	}

	return b.String()
}

// RoundTrip implements the http.RoundTripper interface.
func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	if _, err := io.WriteString(t.Writer, trace(dump, '>')); err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	dump, err = httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	if _, err := fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n%s", time.Since(start), trace(dump, '<')); err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	return resp, nil
}

// headerTransport sets fixed headers on every request.
type headerTransport struct {
	Transport http.RoundTripper
	Headers   http.Header
}

// RoundTrip implements the http.RoundTripper interface.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header[k] = v
	}

	return t.Transport.RoundTrip(req)
}
