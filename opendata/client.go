// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

// Package opendata retrieves incident records from the Gainesville open data
// portal.
package opendata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// DefaultPageSize matches the portal's default row limit.
const DefaultPageSize = 1000

// ClientOptions configuration for Client.
type ClientOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// AppToken is sent as X-App-Token, raising the portal's throttling limits
	AppToken string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Number of rows requested per page
	PageSize int

	// Transport overrides the base transport, mostly for tests
	Transport http.RoundTripper
}

// FetchResult holds the records retrieved for a source on a given day.
type FetchResult struct {
	Source  Source
	Records []Record
	Dropped int // rows rejected by the record adapter
	Pages   int
}

// Client fetches same-day records from the portal.
type Client struct {
	client   *http.Client
	pageSize int
}

// NewClient creates a new client with the provided options.
func NewClient(options *ClientOptions) *Client {
	if options == nil {
		options = &ClientOptions{}
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		httpLogWriter = os.Stderr
	}

	transport := options.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:          4,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
		}
	}

	userAgent := "canvass/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headers := http.Header{
		"User-Agent": {userAgent},
		"Accept":     {"application/json"},
	}
	if options.AppToken != "" {
		headers.Set("X-App-Token", options.AppToken)
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Client{
		client: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &headerTransport{
				Headers: headers,
				Transport: &tracingTransport{
					Writer:    httpLogWriter,
					DumpBody:  options.EnableHTTPBodyTrace,
					Transport: transport,
				},
			},
		},
		pageSize: pageSize,
	}
}

// DayFilter is the SoQL condition selecting the records of a calendar day.
func DayFilter(day time.Time) string {
	return fmt.Sprintf("date_trunc_ymd(datetime) = '%s'", day.Format(time.DateOnly))
}

func pageURL(src *Source, day time.Time, limit, offset int) (string, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return "", fmt.Errorf("parsing source URL %q: %w", src.URL, err)
	}

	q := u.Query()
	q.Set("$where", DayFilter(day))
	q.Set("$order", ":id")
	q.Set("$limit", strconv.Itoa(limit))
	q.Set("$offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Fetch retrieves every record of src for day, following pages until a
// short page is returned. Any non-success response aborts with a *FetchError.
func (c *Client) Fetch(ctx context.Context, src Source, day time.Time) (*FetchResult, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	result := &FetchResult{Source: src}

	for offset := 0; ; {
		reqURL, err := pageURL(&src, day, c.pageSize, offset)
		if err != nil {
			return nil, err
		}

		body, err := c.get(ctx, &src, reqURL)
		if err != nil {
			return nil, err
		}

		records, dropped, err := DecodeRecords(body)
		if err != nil {
			return nil, &FetchError{Source: src.Name, URL: reqURL, Kind: ErrorKindUnknown, Err: err}
		}

		result.Pages++
		result.Records = append(result.Records, records...)
		result.Dropped += dropped

		n := len(records) + dropped
		if n < c.pageSize {
			return result, nil
		}

		offset += n
	}
}

func (c *Client) get(ctx context.Context, src *Source, reqURL string) (body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: src.Name, URL: reqURL, Kind: ErrorKindNetwork, Err: err}
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Source:     src.Name,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Kind:       ClassifyStatus(resp.StatusCode),
		}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: src.Name, URL: reqURL, Kind: ErrorKindNetwork, Err: err}
	}

	return body, nil
}
