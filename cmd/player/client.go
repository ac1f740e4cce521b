package main

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

	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/service"
)

// pollInterval is how often WaitIdle re-reads the state
const pollInterval = 100 * time.Millisecond

// Client talks to the game server's REST API for one session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client plays in
func (c *Client) SessionID() string {
	return c.sessionID
}

// Resume points the client at an existing session
func (c *Client) Resume(ctx context.Context, sessionID string) (*engine.GameState, error) {
	c.sessionID = sessionID
	return c.GetState(ctx)
}

// CreateSession creates a session, with a server-generated ID when id is
// empty
func (c *Client) CreateSession(ctx context.Context, id string) (*engine.GameState, error) {
	var body interface{}
	if id != "" {
		body = map[string]string{"session_id": id}
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.sessionID = session.ID
	return session.GameState, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

// Select flips the card at position
func (c *Client) Select(ctx context.Context, position int) (*service.SelectResult, error) {
	var result service.SelectResult
	req := map[string]int{"position": position}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/select"), req, &result); err != nil {
		return nil, fmt.Errorf("select %d: %w", position, err)
	}
	return &result, nil
}

type resetResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

// NewGame deals a fresh shuffled game
func (c *Client) NewGame(ctx context.Context) (*engine.GameState, error) {
	var resp resetResponse
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/new-game"), nil, &resp); err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	return resp.State, nil
}

func (c *Client) BestScore(ctx context.Context) (*service.BestScoreInfo, error) {
	var best service.BestScoreInfo
	if err := c.do(ctx, http.MethodGet, "/api/best-score", nil, &best); err != nil {
		return nil, fmt.Errorf("best score: %w", err)
	}
	return &best, nil
}

// WaitIdle polls until the pending pair has resolved
func (c *Client) WaitIdle(ctx context.Context) (*engine.GameState, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		state, err := c.GetState(ctx)
		if err != nil {
			return nil, err
		}
		if state.Phase == engine.Idle {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// do sends a JSON request and decodes the JSON response into out. Error
// responses are turned into errors carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
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
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
