package mcp

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

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/service"
)

// boardColumns is how many cards formatBoard prints per row
const boardColumns = 4

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Concentration",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Concentration - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Sixteen face-down cards hide eight pairs. Flip two cards per turn; a pair of
identical cards stays face up. Find all eight pairs in as few moves as possible.

AVAILABLE TOOLS:
- create_session: Create new game session
- get_session: Get session details
- list_sessions: List all active sessions
- delete_session: Delete a session
- game_state: Get the board, moves and timer
- select_card: Flip the card at a position (0-15) - requires intent explanation
- new_game: Deal a freshly shuffled game
- reshuffle: Re-permute the current deck, turning every card face down
- best_score: Lowest winning move count so far
- catalog: The eight items in play
- game_instructions: Get comprehensive game instructions and rules

NOTE: The 'intent' parameter on select_card serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

func sessionSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	properties := map[string]interface{}{
		"session_id": map[string]interface{}{
			"type":        "string",
			"description": "Session ID",
		},
	}
	for k, v := range extra {
		properties[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   append([]string{"session_id"}, required...),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally with a chosen ID",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to use (optional, lowercase letters, digits, '-' and '_')",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionSchema(nil),
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and its saved game",
		InputSchema: sessionSchema(nil),
	}, c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, move count and timer",
		InputSchema: sessionSchema(nil),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_card",
		Description: "Flip the card at a board position. The second card of a turn resolves after a short delay: 500ms for a match, 1s for a mismatch.",
		InputSchema: sessionSchema(map[string]interface{}{
			"position": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"maximum":     engine.DeckSize - 1,
				"description": "Board position of the card (0-based, row-major)",
			},
			"intent": map[string]interface{}{
				"type":        "string",
				"description": "Brief explanation of why you are flipping this card (serves as a rubber duck to help explain your reasoning)",
			},
		}, "position"),
	}, c.handleSelectCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Start a new game with a freshly shuffled deck",
		InputSchema: sessionSchema(nil),
	}, c.handleNewGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reshuffle",
		Description: "Re-permute the current deck. Every card, including matched ones, goes face down and the move count resets.",
		InputSchema: sessionSchema(nil),
	}, c.handleReshuffle)

	// Shared data
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "best_score",
		Description: "Get the lowest move count of any won game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleBestScore)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "catalog",
		Description: "List the eight items that appear on the cards",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleCatalog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// sessionPath builds an API path for a session, escaping the ID
func sessionPath(sessionID string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func requireSession(args map[string]interface{}) (string, *mcp.CallToolResult) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return sessionID, nil
}

// intArgument reads a JSON number argument
func intArgument(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	body := map[string]string{}
	if sessionID != "" {
		body["session_id"] = sessionID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Active Sessions (%d):\n\n", response.Count))
	for _, s := range response.Sessions {
		progress := ""
		if s.GameState != nil {
			progress = fmt.Sprintf(", Pairs: %d/%d, Moves: %d", s.GameState.MatchedPairs, engine.CatalogSize, s.GameState.Moves)
		}
		result.WriteString(fmt.Sprintf("- %s (Created: %s%s)\n", s.ID, s.CreatedAt.Format("15:04:05"), progress))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, ""), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSelectCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	position, ok := intArgument(args, "position")
	if !ok {
		return mcp.NewToolResultError("position must be an integer"), nil
	}

	intent, _ := args["intent"].(string)

	var result service.SelectResult
	body := map[string]int{"position": position}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/select"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatSelectResult(&result)
	if intent != "" {
		text = fmt.Sprintf("Intent: %s\n%s", intent, text)
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.resetCall(ctx, request, "/new-game")
}

func (c *Client) handleReshuffle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.resetCall(ctx, request, "/reshuffle")
}

// resetCall runs one of the deal operations and formats the new state
func (c *Client) resetCall(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, suffix), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleBestScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var best service.BestScoreInfo
	if err := c.apiCall(ctx, "GET", "/api/best-score", nil, &best); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !best.Present {
		return mcp.NewToolResultText("No best score yet. Win a game to set one."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Best score: %d moves", best.Moves)), nil
}

func (c *Client) handleCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Items []engine.Item `json:"items"`
	}
	if err := c.apiCall(ctx, "GET", "/api/catalog", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Catalog (%d items, each appears twice):\n", len(response.Items)))
	for _, item := range response.Items {
		result.WriteString(fmt.Sprintf("• %s\n", item.Identity))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🃏 Concentration - Complete Instructions

GAME OBJECTIVE:
Find all 8 pairs among 16 face-down cards using as few moves as possible.

GAME MECHANICS:
• Turn: Flip one card, then a second one. Flipping the second card counts as one move.
• Match: Two identical cards stay face up after 500ms.
• Mismatch: The two cards turn face down again after 1 second.
• While two cards are face up, further selections are ignored until they resolve.
• Selecting a card that is already face up or matched is ignored.
• Timer: Starts with your first flip and stops when the last pair is found.
• Victory: All 8 pairs matched. A win with fewer moves than the best score replaces it.

BOARD LEGEND:
• ??   - Face-down card
• name - Face-up card waiting to resolve
• ✓    - Matched card
Positions run 0-15, four cards per row.

🤖 AI AGENTS - SUCCESS STRATEGIES:

1. **Remember every card you have seen**: A mismatch still tells you where two
   items are. Keep a position → item map and update it after every flip.

2. **Flip unknown cards first**: Start each turn with a card you have never seen.
   If its partner is already known, flip the partner next for a guaranteed match.

3. **Wait for resolution**: After the second flip, call game_state before the
   next selection. Selections made while a pair is pending are rejected.

4. **Reshuffle resets everything**: Matched cards go face down and positions
   change, so your memory map is no longer valid.

Eight moves is a perfect game; nobody can do better.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nCreated: %s\nLast accessed: %s\n\n%s",
		session.ID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.LastAccessedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	result.WriteString(fmt.Sprintf("Pairs: %d/%d | Moves: %d | Time: %s | Phase: %s\n",
		state.MatchedPairs, engine.CatalogSize, state.Moves, state.Timer, state.Phase))
	if state.BestScore != nil {
		result.WriteString(fmt.Sprintf("Best score: %d moves\n", *state.BestScore))
	}
	result.WriteString("\n")
	result.WriteString(formatBoard(state.Cards))

	if state.Won {
		result.WriteString("\n🎉 VICTORY!")
	}

	return result.String()
}

// formatBoard prints the cards in rows. Face-down identities are never
// printed.
func formatBoard(cards []engine.Card) string {
	var b strings.Builder
	for i, card := range cards {
		b.WriteString(fmt.Sprintf("[%2d] %-20s", card.Position, cardLabel(card)))
		if (i+1)%boardColumns == 0 || i == len(cards)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func cardLabel(card engine.Card) string {
	switch card.State {
	case engine.Flipped:
		return card.Item.Identity
	case engine.Matched:
		return "✓ " + card.Item.Identity
	default:
		return "??"
	}
}

func formatSelectResult(result *service.SelectResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Card flipped\n")
	} else {
		b.WriteString("✗ Selection ignored\n")
	}

	if result.Card != nil && result.Success {
		b.WriteString(fmt.Sprintf("Position %d: %s\n", result.Card.Position, result.Card.Item.Identity))
	}
	if result.Selection.PairComplete {
		if result.Selection.Matched {
			b.WriteString("Pair complete: MATCH (stays face up in 500ms)\n")
		} else {
			b.WriteString("Pair complete: no match (turns face down in 1s)\n")
		}
	}
	if result.Message != "" {
		b.WriteString(fmt.Sprintf("Message: %s\n", result.Message))
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			b.WriteString(fmt.Sprintf("- %s: %s\n", event.Type, event.Message))
		}
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}
