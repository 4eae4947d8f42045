// Package healthapi is a client for the health record services that persist
// schedules, vaccines, supplements and health scores.
package healthapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/health-assistant/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// Client calls the downstream REST services with the caller's bearer credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the response wrapper every service returns.
type envelope struct {
	Status     bool            `json:"status"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Body       json.RawMessage `json:"body"`
}

// APIError reports a non-success response together with the service message.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("healthapi: %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("healthapi: %s returned status %d: %s", e.Path, e.StatusCode, e.Message)
}

var conflictPhrases = []string{"already schedule", "already exists", "already exist"}

// IsConflict reports whether err is a duplicate or conflict reported by a service.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	for _, phrase := range conflictPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// ErrorMessage returns the service-supplied message carried by err, if any.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

func bearer(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return token
	}
	return "Bearer " + token
}

func (c *Client) do(ctx context.Context, method, path, token string, payload any, out any) (string, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("healthapi: marshal %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("healthapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := bearer(token); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("healthapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("healthapi: read %s: %w", path, err)
	}
	c.logger.Debug("healthapi call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 || (decodeErr == nil && env.StatusCode >= 400) {
		status := resp.StatusCode
		if status < 400 {
			status = env.StatusCode
		}
		msg := env.Message
		if decodeErr != nil {
			msg = strings.TrimSpace(string(raw))
		}
		return "", &APIError{StatusCode: status, Path: path, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("healthapi: decode %s: %w", path, decodeErr)
	}
	if out != nil && len(env.Body) > 0 && string(env.Body) != "null" {
		if err := json.Unmarshal(env.Body, out); err != nil {
			return "", fmt.Errorf("healthapi: decode %s body: %w", path, err)
		}
	}
	return env.Message, nil
}

// ListMedicines returns the user's medicine and supplement catalog.
func (c *Client) ListMedicines(ctx context.Context, token string) ([]Medicine, error) {
	var out []Medicine
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/medicine/list", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVaccines returns the vaccine catalog.
func (c *Client) ListVaccines(ctx context.Context, token string) ([]Vaccine, error) {
	var out []Vaccine
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/vaccine", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMedicineSchedule(ctx context.Context, token string, req MedicineScheduleRequest) (Result, error) {
	msg, err := c.do(ctx, http.MethodPost, "/api/v1/medicine-schedule", token, req, nil)
	return Result{Message: msg}, err
}

func (c *Client) CreateVaccineSchedule(ctx context.Context, token string, req VaccineScheduleRequest) (Result, error) {
	msg, err := c.do(ctx, http.MethodPost, "/api/v1/vaccine-schedule", token, req, nil)
	return Result{Message: msg}, err
}

func (c *Client) CreateVaccine(ctx context.Context, token string, req VaccineRequest) (Result, error) {
	msg, err := c.do(ctx, http.MethodPost, "/api/v1/vaccine", token, req, nil)
	return Result{Message: msg}, err
}

func (c *Client) CreateSupplement(ctx context.Context, token string, req SupplementRequest) (Result, error) {
	msg, err := c.do(ctx, http.MethodPost, "/api/v1/medicine/add", token, req, nil)
	return Result{Message: msg}, err
}

// LatestHealthScore returns the most recent saved score, or nil when none exists.
func (c *Client) LatestHealthScore(ctx context.Context, token string) (*float64, error) {
	var scores []HealthScore
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/health-score/list", token, nil, &scores); err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}
	v := float64(scores[0].Score)
	return &v, nil
}

func (c *Client) CreateHealthScore(ctx context.Context, token string, score float64) (Result, error) {
	msg, err := c.do(ctx, http.MethodPost, "/api/v1/health-score/add", token, map[string]float64{"score": score}, nil)
	return Result{Message: msg}, err
}

// DosesByDate lists medicine doses scheduled on date (YYYY-MM-DD).
func (c *Client) DosesByDate(ctx context.Context, token, date string) ([]map[string]any, error) {
	var out []map[string]any
	path := "/api/v1/medicine-schedule/get-doses-by-date?date=" + url.QueryEscape(date)
	if _, err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VaccinationsByDate lists vaccinations scheduled on date (YYYY-MM-DD).
func (c *Client) VaccinationsByDate(ctx context.Context, token, date string) ([]map[string]any, error) {
	var out []map[string]any
	path := "/api/v1/vaccine-schedule/by-date?date=" + url.QueryEscape(date)
	if _, err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
