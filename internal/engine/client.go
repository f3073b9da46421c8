// Package engine talks to the call-engine sidecar that holds an assistant's
// user session and its native voice chat library.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/service"
)

var (
	_ service.CallEngine = (*Client)(nil)
	_ service.Account    = (*Client)(nil)
)

// Client is one sidecar: the call engine and the account of one assistant.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	dialer         *websocket.Dialer
	events         chan domain.Event
	reconnectDelay time.Duration
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          token,
		httpClient:     &http.Client{Timeout: config.EngineRequestTimeout},
		dialer:         websocket.DefaultDialer,
		events:         make(chan domain.Event, config.EngineEventBuffer),
		reconnectDelay: config.EngineReconnectDelay,
	}
}

type playRequest struct {
	Stream domain.StreamDescriptor `json:"stream"`
	Config callConfig              `json:"config"`
}

type callConfig struct {
	Kind      domain.CallKind `json:"kind"`
	AutoStart bool            `json:"auto_start"`
	TimeoutMs int64           `json:"timeout_ms,omitempty"`
}

func (c *Client) Play(ctx context.Context, chatID int64, stream domain.StreamDescriptor, cfg domain.CallConfig) error {
	req := playRequest{
		Stream: stream,
		Config: callConfig{
			Kind:      cfg.Kind,
			AutoStart: cfg.AutoStart,
			TimeoutMs: cfg.Timeout.Milliseconds(),
		},
	}
	return c.do(ctx, http.MethodPost, callPath(chatID, "play"), req, nil)
}

func (c *Client) Leave(ctx context.Context, chatID int64) error {
	return c.do(ctx, http.MethodPost, callPath(chatID, "leave"), nil, nil)
}

func (c *Client) Pause(ctx context.Context, chatID int64) error {
	return c.do(ctx, http.MethodPost, callPath(chatID, "pause"), nil, nil)
}

func (c *Client) Resume(ctx context.Context, chatID int64) error {
	return c.do(ctx, http.MethodPost, callPath(chatID, "resume"), nil, nil)
}

func (c *Client) Mute(ctx context.Context, chatID int64) error {
	return c.do(ctx, http.MethodPost, callPath(chatID, "mute"), nil, nil)
}

func (c *Client) Unmute(ctx context.Context, chatID int64) error {
	return c.do(ctx, http.MethodPost, callPath(chatID, "unmute"), nil, nil)
}

func (c *Client) ChangeVolume(ctx context.Context, chatID int64, volume int) error {
	body := map[string]int{"volume": volume}
	return c.do(ctx, http.MethodPost, callPath(chatID, "volume"), body, nil)
}

func (c *Client) Time(ctx context.Context, chatID int64) (int, error) {
	var resp struct {
		Seconds int `json:"seconds"`
	}
	if err := c.do(ctx, http.MethodGet, callPath(chatID, "time"), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Seconds, nil
}

func (c *Client) Participants(ctx context.Context, chatID int64) ([]domain.Participant, error) {
	var resp struct {
		Participants []domain.Participant `json:"participants"`
	}
	if err := c.do(ctx, http.MethodGet, callPath(chatID, "participants"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

func (c *Client) Ping(ctx context.Context) (float64, error) {
	var resp struct {
		Ms float64 `json:"ms"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/ping", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Ms, nil
}

func (c *Client) CPUUsage(ctx context.Context) (float64, error) {
	var resp struct {
		Percent float64 `json:"percent"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/cpu", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Percent, nil
}

func (c *Client) Me(ctx context.Context) (service.AccountInfo, error) {
	var resp struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/me", nil, &resp); err != nil {
		return service.AccountInfo{}, err
	}
	return service.AccountInfo{ID: resp.ID, Username: resp.Username}, nil
}

func (c *Client) JoinChat(ctx context.Context, inviteLink string) error {
	body := map[string]string{"link": inviteLink}
	return c.do(ctx, http.MethodPost, "/v1/chats/join", body, nil)
}

func (c *Client) LeaveChat(ctx context.Context, chatID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/chats/%d/leave", chatID), nil, nil)
}

func (c *Client) Dialogs(ctx context.Context) ([]int64, error) {
	var resp struct {
		ChatIDs []int64 `json:"chat_ids"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/dialogs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ChatIDs, nil
}

func callPath(chatID int64, op string) string {
	return fmt.Sprintf("/v1/calls/%d/%s", chatID, op)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error apiError `json:"error"`
		}
		if err := json.Unmarshal(data, &e); err != nil || (e.Error.Code == "" && e.Error.Message == "") {
			return &domain.RPCError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		if e.Error.Status == 0 {
			e.Error.Status = resp.StatusCode
		}
		return toDomainError(e.Error)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
