package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/config"
	apperrors "github.com/sxk/signal-link/internal/errors"
)

const maxTelegramErrorBody = 4 << 10

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// TelegramService relays messages to one fixed chat through the Bot API.
type TelegramService struct {
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

func NewTelegramService(baseURL, token, chatID string) *TelegramService {
	return &TelegramService{
		client: &http.Client{
			Timeout: config.TelegramTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
	}
}

func (s *TelegramService) Configured() bool {
	return s.token != "" && s.chatID != ""
}

// Send posts text to the configured chat. Blank text is INVALID_MESSAGE,
// missing credentials are NOT_CONFIGURED and any non-2xx answer is
// DELIVERY_FAILED carrying the upstream body.
func (s *TelegramService) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.InvalidMessage()
	}
	if !s.Configured() {
		return apperrors.NotConfigured("Telegram")
	}

	body, err := json.Marshal(telegramMessage{ChatID: s.chatID, Text: text})
	if err != nil {
		return apperrors.Internal("failed to encode message").WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Internal("failed to build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)

	// The request URL embeds the token; only the elapsed time is logged.
	if err != nil {
		log.Error().
			Dur("elapsed", elapsed).
			Msg("telegram request error")
		return apperrors.DeliveryFailed("Telegram", "request could not be sent")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxTelegramErrorBody))
		log.Error().
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("telegram request failed")
		return apperrors.DeliveryFailed("Telegram", string(raw))
	}

	log.Info().
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("telegram message sent")

	return nil
}
