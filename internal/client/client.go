// Package client talks to the signal-link server: the pairing store over
// HTTP and SSE, and the notification relay.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/httputil"
	"github.com/sxk/signal-link/internal/model"
)

const (
	requestTimeout = 5 * time.Second
	ReconnectDelay = 5 * time.Second
)

type Client struct {
	baseURL        string
	clientID       string
	http           *http.Client
	stream         *http.Client
	reconnectDelay time.Duration
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: requestTimeout,
		},
		// Event streams stay open indefinitely.
		stream:         &http.Client{},
		reconnectDelay: ReconnectDelay,
	}
}

// WithClientID stamps id on every write so the server can attribute it.
func (c *Client) WithClientID(id string) *Client {
	c.clientID = id
	return c
}

func (c *Client) setWriteHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.clientID != "" {
		req.Header.Set(httputil.ClientIDHeader, c.clientID)
	}
}

func (c *Client) pairingURL(code string) string {
	return c.baseURL + "/v1/pairings/" + url.PathEscape(code)
}

// UpsertMine writes p into the slot owned by role. Any failure is reported as
// SYNC_WRITE_FAILED.
func (c *Client) UpsertMine(ctx context.Context, code string, role model.Role, p model.LocationPoint, synced *bool) (*model.PairingRecord, error) {
	lat, lng := p.Lat, p.Lng
	body, err := json.Marshal(model.UpsertPairingRequest{
		Role:     role,
		Lat:      &lat,
		Lng:      &lng,
		IsSynced: synced,
	})
	if err != nil {
		return nil, apperrors.SyncWriteFailed(fmt.Errorf("marshal request: %w", err))
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.pairingURL(code), bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.SyncWriteFailed(fmt.Errorf("create request: %w", err))
	}
	c.setWriteHeaders(req)

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("role", string(role)).Dur("elapsed", elapsed).Msg("pairing upsert error")
		return nil, apperrors.SyncWriteFailed(fmt.Errorf("upsert request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		remote := decodeError(resp)
		log.Error().
			Int("status", resp.StatusCode).
			Str("role", string(role)).
			Dur("elapsed", elapsed).
			Msg("pairing upsert rejected")
		return nil, apperrors.SyncWriteFailed(remote)
	}

	var record model.PairingRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, apperrors.SyncWriteFailed(fmt.Errorf("decode response: %w", err))
	}

	log.Debug().Str("role", string(role)).Dur("elapsed", elapsed).Msg("pairing upserted")
	return &record, nil
}

// ReadOnce returns the current row, or nil when none exists yet.
func (c *Client) ReadOnce(ctx context.Context, code string) (*model.PairingRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pairingURL(code), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, decodeError(resp)
	}

	var record model.PairingRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &record, nil
}

type notifyRequest struct {
	Message string `json:"message"`
}

// Notify asks the server relay to deliver message. Server-side failures are
// returned as the AppError the relay reported.
func (c *Client) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(notifyRequest{Message: message})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/notify", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setWriteHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.DeliveryFailed("Relay", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// decodeError turns a server error body into an AppError, falling back to the
// status line when the body is not the standard shape.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body httputil.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		code := body.Code
		if code == "" {
			code = apperrors.ErrCodeExternal
		}
		appErr := apperrors.New(code, body.Error)
		if body.Details != nil {
			appErr = appErr.WithDetails(body.Details)
		}
		return appErr
	}

	return apperrors.New(apperrors.ErrCodeExternal, fmt.Sprintf("unexpected status %d", resp.StatusCode))
}
