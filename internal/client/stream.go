// File: internal/client/stream.go
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
)

// fallbackMessage is shown while the blocking fallback call is in flight,
// so progress does not appear frozen after the stream dies.
const fallbackMessage = "Analyzing (this may take a moment)..."

// streamFrame is the wire shape of one streaming-channel frame. Progress
// fields are populated on every frame; Result only on the complete frame.
type streamFrame struct {
	schemas.ProgressUpdate
	Result *schemas.AnalysisResult `json:"result,omitempty"`
}

// AnalyzeStream initiates target analysis over the streaming channel and
// reports the exchange as a sequence of AnalysisEvents. The channel is
// closed after the terminal event.
//
// If the streaming channel cannot be established, or fails before a
// terminal frame is observed, exactly one blocking Analyze call is issued
// instead and its outcome becomes the terminal event. Once a terminal
// frame has been delivered no fallback fires, so at most one terminal
// event is ever emitted per call.
//
// Cancelling ctx releases the connection; no events are emitted after.
func (c *Client) AnalyzeStream(ctx context.Context, targetURL string) (<-chan AnalysisEvent, error) {
	if err := ValidateTargetURL(targetURL); err != nil {
		return nil, err
	}

	events := make(chan AnalysisEvent, 8)
	go c.pump(ctx, targetURL, events)
	return events, nil
}

// pump drives one analysis attempt end to end and closes events when done.
func (c *Client) pump(ctx context.Context, targetURL string, events chan<- AnalysisEvent) {
	defer close(events)

	wsURL, err := c.streamURL()
	if err != nil {
		c.logger.Warn("cannot derive stream URL, using blocking channel", zap.Error(err))
		c.fallback(ctx, targetURL, events)
		return
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("stream dial failed, falling back to blocking channel",
			zap.String("ws_url", wsURL), zap.Error(err))
		c.fallback(ctx, targetURL, events)
		return
	}
	defer conn.Close()

	// Release the socket as soon as the caller walks away. The read loop
	// below then fails, but the ctx check keeps it from emitting anything.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(map[string]string{"url": targetURL}); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("stream write failed, falling back to blocking channel", zap.Error(err))
		c.fallback(ctx, targetURL, events)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Closed abnormally before a terminal frame: this is the
			// stream_error case and the one place fallback triggers
			// mid-exchange.
			c.logger.Warn("stream broke before terminal frame, falling back",
				zap.Error(fmt.Errorf("%w: %v", ErrStreamClosed, err)))
			c.fallback(ctx, targetURL, events)
			return
		}

		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("dropping malformed progress frame", zap.Error(err))
			continue
		}

		switch {
		case frame.Status == schemas.StatusComplete && frame.Result != nil:
			c.emit(ctx, events, AnalysisEvent{Result: frame.Result})
			return
		case frame.Status == schemas.StatusError:
			// Explicit server error frame: terminal, never falls back.
			c.emit(ctx, events, AnalysisEvent{Err: &ServerError{Message: frame.Message}})
			return
		default:
			update := frame.ProgressUpdate
			c.emit(ctx, events, AnalysisEvent{Progress: &update})
		}
	}
}

// fallback substitutes one blocking Analyze call for the dead stream. The
// progress snapshot is reset first so the caller can show why the step
// count jumped back.
func (c *Client) fallback(ctx context.Context, targetURL string, events chan<- AnalysisEvent) {
	c.emit(ctx, events, AnalysisEvent{Progress: &schemas.ProgressUpdate{
		Status:     schemas.StatusAnalyzing,
		Step:       1,
		TotalSteps: schemas.DefaultTotalSteps,
		Message:    fallbackMessage,
	}})

	result, err := c.Analyze(ctx, targetURL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.emit(ctx, events, AnalysisEvent{Err: err})
		return
	}
	c.emit(ctx, events, AnalysisEvent{Result: result})
}

// emit delivers an event unless the caller has already gone away.
func (c *Client) emit(ctx context.Context, events chan<- AnalysisEvent, ev AnalysisEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// streamURL derives the websocket endpoint from the REST base URL.
func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/analyze/ws"
	return u.String(), nil
}
