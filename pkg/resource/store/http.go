package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/driftwood-io/resource-sdk/pkg/resource/errors"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TraceAttributeResourceHref string = "resource-href"

var tracer = otel.Tracer("resource-sdk/http-store")

// Debug enables request/response dumping on failed calls when passed the
// string "true", matching how the surrounding services toggle it from the
// environment.
func Debug(enabled string) func(*httpStore) {
	return func(s *httpStore) {
		s.debug = (enabled == "true")
	}
}

func UserAgent(agent string) func(*httpStore) {
	return func(s *httpStore) {
		s.userAgent = agent
	}
}

// NewHTTPStore creates a DataStore that talks JSON over HTTP. Hrefs passed
// to it are expected to be absolute locators.
func NewHTTPStore(options ...func(*httpStore)) DataStore {
	s := &httpStore{}

	for _, option := range options {
		option(s)
	}

	return s
}

type httpStore struct {
	debug     bool
	userAgent string
}

func (s httpStore) Fetch(ctx context.Context, href string, params url.Values) (map[string]any, error) {
	var err error

	ctx, span := tracer.Start(ctx, "fetch-resource",
		trace.WithAttributes(attribute.String(TraceAttributeResourceHref, href)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	endpoint := href
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	response, responseBody, err := s.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = statusError(response.StatusCode, responseBody)
		return nil, err
	}

	return decodeProperties(responseBody)
}

func (s httpStore) Create(ctx context.Context, createPath string, properties map[string]any, params url.Values) (map[string]any, error) {
	var err error

	ctx, span := tracer.Start(ctx, "create-resource",
		trace.WithAttributes(attribute.String(TraceAttributeResourceHref, createPath)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal properties: %s (%w)", err.Error(), errors.ErrInternal)
	}

	endpoint := createPath
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	response, responseBody, err := s.call(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusCreated && response.StatusCode != http.StatusOK {
		err = statusError(response.StatusCode, responseBody)
		return nil, err
	}

	return decodeProperties(responseBody)
}

func (s httpStore) Update(ctx context.Context, href string, properties map[string]any) (map[string]any, error) {
	var err error

	ctx, span := tracer.Start(ctx, "update-resource",
		trace.WithAttributes(attribute.String(TraceAttributeResourceHref, href)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal properties: %s (%w)", err.Error(), errors.ErrInternal)
	}

	response, responseBody, err := s.call(ctx, http.MethodPost, href, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusNoContent {
		err = statusError(response.StatusCode, responseBody)
		return nil, err
	}

	if response.StatusCode == http.StatusNoContent || len(responseBody) == 0 {
		return map[string]any{}, nil
	}

	return decodeProperties(responseBody)
}

func (s httpStore) Delete(ctx context.Context, href string) error {
	var err error

	ctx, span := tracer.Start(ctx, "delete-resource",
		trace.WithAttributes(attribute.String(TraceAttributeResourceHref, href)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := s.call(ctx, http.MethodDelete, href, nil)
	if err != nil {
		return err
	}

	if response.StatusCode != http.StatusNoContent && response.StatusCode != http.StatusOK {
		err = statusError(response.StatusCode, responseBody)
		return err
	}

	return nil
}

// Invalidate is a no-op for the HTTP store since it keeps no cache of its
// own. Caching stores honor it by evicting the locator.
func (s httpStore) Invalidate(ctx context.Context, href string) error {
	return nil
}

func (s httpStore) call(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, []byte, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrInternal)
	}

	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %s (%w)", err.Error(), errors.ErrRequest)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	if s.debug && resp.StatusCode >= http.StatusBadRequest {
		reqbytes, _ := httputil.DumpRequest(req, false)
		respbytes, _ := httputil.DumpResponse(resp, false)

		log := logging.GetFromContext(ctx)
		log.Error("request failed", slog.String("request", string(reqbytes)), slog.String("response", string(respbytes)))
	}

	return resp, respBody, nil
}

func statusError(code int, body []byte) error {
	return errors.NewErrorFromProblemReport(code, body)
}

func decodeProperties(body []byte) (map[string]any, error) {
	properties := map[string]any{}

	err := json.Unmarshal(body, &properties)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	return properties, nil
}
