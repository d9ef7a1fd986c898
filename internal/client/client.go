// File: internal/client/client.go
// Package client talks to the phishlet generation service: stateless REST
// calls for each remote operation, plus the dual-channel analysis transport
// in stream.go.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
	"github.com/rtlsec/phishletgen-cli/internal/config"
)

// Client issues requests against the generation service. It is stateless
// and safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

// New builds a Client from API configuration.
func New(cfg config.APIConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
		logger: logger.Named("client"),
	}
}

// GenerateRequest asks for a phishlet from a previously obtained analysis.
type GenerateRequest struct {
	Analysis   *schemas.AnalysisResult `json:"analysis"`
	Author     string                  `json:"author,omitempty"`
	UseAI      bool                    `json:"use_ai,omitempty"`
	CustomName string                  `json:"custom_name,omitempty"`
}

// GenerateFromURLRequest asks for a one-shot analyze-and-generate run.
type GenerateFromURLRequest struct {
	URL        string `json:"url"`
	Author     string `json:"author,omitempty"`
	UseAI      bool   `json:"use_ai,omitempty"`
	CustomName string `json:"custom_name,omitempty"`
}

// Analyze performs the blocking analysis call. It is also the fallback leg
// of the dual-channel transport.
func (c *Client) Analyze(ctx context.Context, targetURL string) (*schemas.AnalysisResult, error) {
	if err := ValidateTargetURL(targetURL); err != nil {
		return nil, err
	}
	var result schemas.AnalysisResult
	body := map[string]string{"url": targetURL}
	if err := c.doJSON(ctx, http.MethodPost, "/analyze/", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateFromAnalysis requests phishlet generation from an analysis result.
func (c *Client) GenerateFromAnalysis(ctx context.Context, req GenerateRequest) (*schemas.GenerationResult, error) {
	if req.Analysis == nil {
		return nil, errors.New("generate: analysis result is required")
	}
	var result schemas.GenerationResult
	if err := c.doJSON(ctx, http.MethodPost, "/generate/from-analysis", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateFromURL requests a one-shot analyze-and-generate run.
func (c *Client) GenerateFromURL(ctx context.Context, req GenerateFromURLRequest) (*schemas.GenerationResult, error) {
	if err := ValidateTargetURL(req.URL); err != nil {
		return nil, err
	}
	var result schemas.GenerationResult
	if err := c.doJSON(ctx, http.MethodPost, "/generate/from-url", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AIStatus reports whether server-side AI enhancement is available.
func (c *Client) AIStatus(ctx context.Context) (*schemas.AIStatus, error) {
	var status schemas.AIStatus
	if err := c.doJSON(ctx, http.MethodGet, "/generate/ai-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Validate submits YAML text for server-side validation. The text is sent
// as-is and never modified.
func (c *Client) Validate(ctx context.Context, yamlContent string) (*schemas.ValidationResult, error) {
	var result schemas.ValidationResult
	body := map[string]string{"yaml_content": yamlContent}
	if err := c.doJSON(ctx, http.MethodPost, "/validate/", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPhishlets fetches the full library collection.
func (c *Client) ListPhishlets(ctx context.Context) (*schemas.SavedPhishletList, error) {
	var list schemas.SavedPhishletList
	if err := c.doJSON(ctx, http.MethodGet, "/phishlets/", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SavePhishlet persists a phishlet and returns the server-assigned entity.
func (c *Client) SavePhishlet(ctx context.Context, create schemas.SavedPhishletCreate) (*schemas.SavedPhishlet, error) {
	var saved schemas.SavedPhishlet
	if err := c.doJSON(ctx, http.MethodPost, "/phishlets/", create, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetPhishlet fetches one saved phishlet by id.
func (c *Client) GetPhishlet(ctx context.Context, id string) (*schemas.SavedPhishlet, error) {
	var saved schemas.SavedPhishlet
	if err := c.doJSON(ctx, http.MethodGet, "/phishlets/"+url.PathEscape(id), nil, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeletePhishlet deletes one saved phishlet by id.
func (c *Client) DeletePhishlet(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/phishlets/"+url.PathEscape(id), nil, nil)
}

// Bootstrap fetches the AI status and the library collection concurrently.
// An unreachable AI endpoint degrades to "disabled" rather than failing the
// whole startup; a failing library list is a real error.
func (c *Client) Bootstrap(ctx context.Context) (*schemas.AIStatus, *schemas.SavedPhishletList, error) {
	var (
		status *schemas.AIStatus
		list   *schemas.SavedPhishletList
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.AIStatus(ctx)
		if err != nil {
			c.logger.Warn("AI status check failed, assuming disabled", zap.Error(err))
			s = &schemas.AIStatus{}
		}
		status = s
		return nil
	})
	g.Go(func() error {
		l, err := c.ListPhishlets(ctx)
		if err != nil {
			return fmt.Errorf("listing phishlet library: %w", err)
		}
		list = l
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return status, list, nil
}

// errorBody matches the service's error payload shape.
type errorBody struct {
	Detail string `json:"detail"`
}

// doJSON performs one JSON request/response exchange. Transport failures
// wrap ErrConnectionFailed; non-2xx statuses and timeouts become a
// *ServerError, which is always terminal.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return &ServerError{Message: "request timed out"}
		}
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err := json.Unmarshal(data, &eb); err != nil || eb.Detail == "" {
			eb.Detail = strings.TrimSpace(string(data))
		}
		if eb.Detail == "" {
			eb.Detail = http.StatusText(resp.StatusCode)
		}
		return &ServerError{Status: resp.StatusCode, Message: eb.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
