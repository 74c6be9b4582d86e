// Package google implements geocoding and place details lookups against the Google Maps web services.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://maps.googleapis.com"

const placeDetailFields = "place_id,name,formatted_address,address_components,website,geometry"

// APIStatusError is a non-OK status returned in a Maps API response body.
type APIStatusError struct {
	Operation string
	Status    string
	Message   string
}

func (e *APIStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("google %s: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("google %s: %s: %s", e.Operation, e.Status, e.Message)
}

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("google %s status: %d: %s", e.Operation, e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL            string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(apiKey string, options Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Geocode resolves a free-text address. ZERO_RESULTS is reported as not found.
func (c *Client) Geocode(ctx context.Context, location string) (domain.LatLng, bool, error) {
	params := url.Values{}
	params.Set("address", location)

	var response struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			Geometry domain.Geometry `json:"geometry"`
		} `json:"results"`
	}
	if err := c.get(ctx, "geocode", "/maps/api/geocode/json", params, &response); err != nil {
		return domain.LatLng{}, false, err
	}

	switch response.Status {
	case "OK":
		if len(response.Results) == 0 {
			return domain.LatLng{}, false, nil
		}
		return response.Results[0].Geometry.Location, true, nil
	case "ZERO_RESULTS":
		return domain.LatLng{}, false, nil
	default:
		return domain.LatLng{}, false, &APIStatusError{Operation: "geocode", Status: response.Status, Message: response.ErrorMessage}
	}
}

func (c *Client) LookupPlace(ctx context.Context, placeID string) (*domain.Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", placeDetailFields)

	var response struct {
		Status       string       `json:"status"`
		ErrorMessage string       `json:"error_message"`
		Result       domain.Place `json:"result"`
	}
	if err := c.get(ctx, "place details", "/maps/api/place/details/json", params, &response); err != nil {
		return nil, err
	}

	switch response.Status {
	case "OK":
		place := response.Result
		if place.AddressComponents == nil {
			place.AddressComponents = []domain.AddressComponent{}
		}
		return &place, nil
	case "NOT_FOUND", "ZERO_RESULTS", "INVALID_REQUEST":
		return nil, domain.WrapError(domain.ErrPlaceNotFound, "google place details", fmt.Errorf("place %q: %s", placeID, response.Status))
	default:
		return nil, &APIStatusError{Operation: "place details", Status: response.Status, Message: response.ErrorMessage}
	}
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out any) error {
	return resilience.Run(ctx, c.executor, "google."+strings.ReplaceAll(operation, " ", "_"), func(callCtx context.Context) error {
		return c.getJSON(callCtx, operation, path, params, out)
	}, classifyGoogleError)
}

func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, out any) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = c.baseURL + path
		}
		return fmt.Errorf("google %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{Operation: operation, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func classifyGoogleError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ClassifyHTTPStatus(statusErr.StatusCode)
	}

	// Quota and server-side hiccups arrive as 200s with a status field.
	var apiErr *APIStatusError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
			return resilience.Transient
		default:
			return resilience.Rejected
		}
	}
	return resilience.ClassifyNetwork(err)
}
