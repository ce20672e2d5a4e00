package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Error responses are only kept for diagnostics, we don't need all of them.
const maxErrorMessageLength = 512

// Answers are a few kilobytes, anything beyond this is not an answer.
const maxResponseSize = 1 << 20

// HTTPClient talks to the media server's signaling API:
//
//	POST   {url}/pull   -> 2xx {"sdp": ...} + Location header
//	PATCH  {location}   -> 2xx
//	DELETE {location}   -> 2xx
//
// Locations returned by the server may be relative, in which case they're resolved against {url}.
type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
	logger  *logrus.Entry
}

func NewHTTPClient(config Config, logger *logrus.Entry) (*HTTPClient, error) {
	baseURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid signaling URL: %w", err)
	}

	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid signaling URL: unsupported scheme %q", baseURL.Scheme)
	}

	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.Timeout},
		logger:  logger,
	}, nil
}

func (c *HTTPClient) Pull(ctx context.Context, request PullRequest) (*PullResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, &Error{Op: OpPull, Err: err}
	}

	response, body, err := c.do(ctx, OpPull, http.MethodPost, c.baseURL.JoinPath("pull").String(), request.Token, request)
	if err != nil {
		return nil, err
	}

	var answer PullResponse
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, &Error{
			Op:         OpPull,
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrInvalidResponse, err),
		}
	}

	if location := response.Header.Get("Location"); location != "" {
		answer.Location = location
	}

	if err := answer.Validate(); err != nil {
		return nil, &Error{Op: OpPull, StatusCode: response.StatusCode, Err: err}
	}

	c.logger.WithField("location", answer.Location).Debug("pull succeeded")

	return &answer, nil
}

func (c *HTTPClient) Update(ctx context.Context, token, location string, request UpdateRequest) error {
	target, err := c.resolve(location)
	if err != nil {
		return &Error{Op: OpUpdate, Err: err}
	}

	_, _, err = c.do(ctx, OpUpdate, http.MethodPatch, target, token, request)
	return err
}

func (c *HTTPClient) Delete(ctx context.Context, token, location string) error {
	target, err := c.resolve(location)
	if err != nil {
		return &Error{Op: OpDelete, Err: err}
	}

	_, _, err = c.do(ctx, OpDelete, http.MethodDelete, target, token, nil)
	return err
}

// Resolves a session location against the base URL.
func (c *HTTPClient) resolve(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("%w: empty session location", ErrInvalidRequest)
	}

	reference, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: malformed session location: %s", ErrInvalidRequest, err)
	}

	return c.baseURL.ResolveReference(reference).String(), nil
}

// Performs a single request. Any non-2xx status is turned into an `*Error`.
func (c *HTTPClient) do(
	ctx context.Context,
	op, method, target, token string,
	payload interface{},
) (*http.Response, []byte, error) {
	logger := c.logger.WithFields(logrus.Fields{"op": op, "url": target})

	var requestBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, &Error{Op: op, Err: err}
		}
		requestBody = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, requestBody)
	if err != nil {
		return nil, nil, &Error{Op: op, Err: err}
	}

	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := c.client.Do(request)
	if err != nil {
		logger.WithError(err).Warn("signaling request failed")
		return nil, nil, &Error{Op: op, Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, nil, &Error{Op: op, StatusCode: response.StatusCode, Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		message := string(body)
		if len(message) > maxErrorMessageLength {
			message = message[:maxErrorMessageLength]
		}

		logger.WithField("status", response.StatusCode).Warn("signaling request rejected")
		return nil, nil, &Error{Op: op, StatusCode: response.StatusCode, Message: message}
	}

	return response, body, nil
}
