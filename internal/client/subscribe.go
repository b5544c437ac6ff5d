package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/model"
)

const pairingEvent = "pairing"

// Subscribe streams row changes for code to onChange until ctx ends or the
// returned function is called. Dropped streams reconnect after ReconnectDelay.
func (c *Client) Subscribe(ctx context.Context, code string, onChange func(*model.PairingRecord)) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			err := c.streamOnce(ctx, code, onChange)
			if ctx.Err() != nil {
				return
			}
			log.Debug().Err(err).Dur("retryIn", c.reconnectDelay).Msg("pairing stream dropped")

			timer := time.NewTimer(c.reconnectDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (c *Client) streamOnce(ctx context.Context, code string, onChange func(*model.PairingRecord)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pairingURL(code)+"/events", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return readEvents(resp.Body, func(eventType string, data []byte) {
		if eventType != pairingEvent {
			return
		}
		var record model.PairingRecord
		if err := json.Unmarshal(data, &record); err != nil {
			log.Warn().Err(err).Msg("malformed pairing event")
			return
		}
		onChange(&record)
	})
}

// readEvents parses a text/event-stream body, calling fn once per dispatched
// event. Comment lines (heartbeats) are skipped.
func readEvents(r io.Reader, fn func(eventType string, data []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	var eventType string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if eventType == "" {
					eventType = "message"
				}
				fn(eventType, []byte(strings.Join(data, "\n")))
			}
			eventType, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
