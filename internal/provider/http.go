// Package provider contains the HTTP adapters that drive the provider under
// test: a client that replays consumer requests and a state change executor
// that calls the provider's state handler endpoint.
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/core/ports"
	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// metadataHeader carries message metadata out of a message proxy endpoint,
// base64-encoded JSON.
const metadataHeader = "Pact-Message-Metadata"

// HTTPClient replays interactions against a running provider.
type HTTPClient struct {
	baseURL     string
	messagePath string
	headers     map[string]string
	client      *http.Client
	logger      ports.Logger
}

type HTTPClientOption func(*HTTPClient)

// WithMessagePath sets the endpoint messages are requested from, relative to
// the base URL. Defaults to "/".
func WithMessagePath(path string) HTTPClientOption {
	return func(c *HTTPClient) { c.messagePath = path }
}

// WithHeaders adds headers to every replayed request.
func WithHeaders(headers map[string]string) HTTPClientOption {
	return func(c *HTTPClient) { c.headers = headers }
}

func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) { c.client = client }
}

func NewHTTPClient(baseURL string, logger ports.Logger, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		messagePath: "/",
		client:      http.DefaultClient,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Execute(ctx context.Context, request *domain.Request) (*domain.Response, error) {
	target := c.baseURL + request.Path
	if len(request.Query) > 0 {
		target += "?" + url.Values(request.Query).Encode()
	}

	var body io.Reader
	if request.Body.IsPresent() {
		body = bytes.NewReader(request.Body.Value)
	}
	req, err := http.NewRequestWithContext(ctx, request.Method, target, body)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeProviderIOError,
			"failed to build request %s %s", request.Method, target)
	}
	for key, values := range request.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if request.Body.IsPresent() && req.Header.Get("Content-Type") == "" &&
		!request.Body.ContentType.IsUnknown() {
		req.Header.Set("Content-Type", request.Body.ContentType.String())
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	c.logger.Debugf(ctx, "replaying %s %s", request.Method, target)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, transportCode(err),
			"request %s %s to the provider failed", request.Method, target)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func (c *HTTPClient) ExecuteMessage(ctx context.Context, interaction *domain.Interaction) (*domain.Message, error) {
	payload := map[string]any{"description": interaction.Description}
	if len(interaction.ProviderStates) > 0 {
		payload["providerStates"] = interaction.ProviderStates
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderIOError, "failed to encode message request")
	}

	target := c.baseURL + c.messagePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeProviderIOError,
			"failed to build message request for %s", target)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	c.logger.Debugf(ctx, "requesting message %q from %s", interaction.Description, target)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, transportCode(err),
			"message request to %s failed", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Newf(apperrors.CodeProviderIOError,
			"provider returned status %d for message %q", resp.StatusCode, interaction.Description)
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderIOError, "failed to read message contents")
	}

	contentType := domain.ParseContentType(resp.Header.Get("Content-Type"))
	message := &domain.Message{
		Contents: domain.PresentBody(contents, contentType),
		Metadata: map[string]any{},
	}
	if !contentType.IsUnknown() {
		message.Metadata["contentType"] = contentType.String()
	}
	if encoded := resp.Header.Get(metadataHeader); encoded != "" {
		if err := decodeMessageMetadata(encoded, message.Metadata); err != nil {
			return nil, err
		}
	}
	return message, nil
}

// transportCode classifies a transport failure. An exceeded client timeout
// or context deadline maps to CodeTimeout so an unresponsive provider is
// reported as such rather than as a generic I/O failure.
func transportCode(err error) apperrors.Code {
	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.CodeTimeout
	}
	return apperrors.CodeProviderIOError
}

func decodeMessageMetadata(encoded string, into map[string]any) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeProviderIOError,
			"failed to decode the %s header", metadataHeader)
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeProviderIOError,
			"failed to parse the %s header", metadataHeader)
	}
	for key, value := range metadata {
		into[key] = value
	}
	return nil
}

func decodeResponse(resp *http.Response) (*domain.Response, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderIOError, "failed to read the provider response")
	}

	headers := make(map[string][]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[key] = values
	}
	return &domain.Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    domain.PresentBody(body, domain.ParseContentType(resp.Header.Get("Content-Type"))),
	}, nil
}
