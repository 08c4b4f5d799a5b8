package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
)

// answerSpacing separates tiles laid out by spell_answer
const answerSpacing = 120.0

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
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
		"Spell Ground",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Spell Ground - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Each question is a word or phrase split into scattered tiles. Order the tiles
left to right and merge them to answer. Wrong answers cost one health point,
health never drops below 1. Solve every question to win.

AVAILABLE TOOLS:
- create_session: Start a puzzle from a question set or your own questions
- list_sessions: List active sessions
- puzzle_state: Current word, health and tiles (sorted left to right)
- move_tile: Drag one tile to a position
- click_tile: Tap a tile to toggle its highlight
- spell_answer: Lay tiles out in the given order and merge in one step
- merge: Submit the tiles in their current left to right order
- arrange: Lay tiles out (scatter, spiral, row_pack)
- speak: The word to pronounce for the current question
- get_result: Final score once every question is solved
- list_question_sets: Available question sets
- list_results: Archived results of finished puzzles
- game_instructions: Full rules and strategy`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session from a question set or a list of questions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"set_name": map[string]any{
					"type":        "string",
					"description": "Question set to use (optional, see list_question_sets)",
				},
				"questions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Your own questions, overrides set_name",
				},
				"split": map[string]any{
					"type":        "string",
					"enum":        []string{string(engine.SplitChar), string(engine.SplitWord)},
					"description": "One tile per character (default) or per word",
				},
				"player_name": map[string]any{
					"type":        "string",
					"description": "Name recorded in the result",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	// Puzzle operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_state",
		Description: "Get the current puzzle state with tiles sorted left to right",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handlePuzzleState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_tile",
		Description: "Drag a tile so its center lands on (x, y)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"tile_id":    map[string]any{"type": "integer", "description": "Tile ID from puzzle_state"},
				"x":          map[string]any{"type": "number", "description": "Target center x"},
				"y":          map[string]any{"type": "number", "description": "Target center y"},
			},
			Required: []string{"session_id", "tile_id", "x", "y"},
		},
	}, c.handleMoveTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click_tile",
		Description: "Tap a tile, toggling its highlight",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"tile_id":    map[string]any{"type": "integer", "description": "Tile ID from puzzle_state"},
			},
			Required: []string{"session_id", "tile_id"},
		},
	}, c.handleClickTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "spell_answer",
		Description: "Place the given tiles left to right in order, then merge and check the answer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"tile_ids": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer"},
					"description": "Tile IDs in answer order",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the answer you are spelling (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "tile_ids"},
		},
	}, c.handleSpellAnswer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "merge",
		Description: "Merge the tiles in their current left to right order and check the answer",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleMerge)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "arrange",
		Description: "Lay the tiles out with a strategy",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"strategy": map[string]any{
					"type": "string",
					"enum": []string{
						string(engine.StrategyScatter),
						string(engine.StrategySpiral),
						string(engine.StrategyRowPack),
					},
					"description": "Arrangement strategy",
				},
			},
			Required: []string{"session_id", "strategy"},
		},
	}, c.handleArrange)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "speak",
		Description: "Get the word to pronounce for the current question",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleSpeak)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_result",
		Description: "Get the final result of a won puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetResult)

	// Question sets and results
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_question_sets",
		Description: "List available question sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListQuestionSets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_results",
		Description: "List archived results of finished puzzles, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"limit": map[string]any{"type": "integer", "description": "Maximum results to return"},
			},
		},
	}, c.handleListResults)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules and strategy guide",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
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
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool call arguments, tolerating a missing map
func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := service.CreateSessionRequest{}
	req.SetName, _ = args["set_name"].(string)
	if split, ok := args["split"].(string); ok {
		req.Split = engine.SplitMode(split)
	}
	if name, ok := args["player_name"].(string); ok {
		req.Player.Name = name
	}
	if raw, ok := args["questions"].([]any); ok {
		for _, q := range raw {
			if s, ok := q.(string); ok {
				req.Questions = append(req.Questions, s)
			}
		}
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", req, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionList(response.Sessions)), nil
}

func (c *Client) handlePuzzleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var snap engine.Snapshot
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/state"), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleMoveTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	tileID, ok := intArg(args, "tile_id")
	if !ok {
		return mcp.NewToolResultError("tile_id is required"), nil
	}
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)

	var result service.ActionResult
	body := map[string]any{"tile_id": tileID, "x": x, "y": y}
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleClickTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	tileID, ok := intArg(args, "tile_id")
	if !ok {
		return mcp.NewToolResultError("tile_id is required"), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/click"), map[string]int{"tile_id": tileID}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleSpellAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	raw, _ := args["tile_ids"].([]any)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = args["intent"]

	ids := make([]int, 0, len(raw))
	for _, v := range raw {
		if id, ok := intArg(map[string]any{"id": v}, "id"); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("tile_ids must list at least one tile"), nil
	}

	// Lay the tiles out on one row, centered on the origin
	start := -answerSpacing * float64(len(ids)-1) / 2
	for i, id := range ids {
		body := map[string]any{"tile_id": id, "x": start + answerSpacing*float64(i), "y": 0.0}
		if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/move"), body, nil); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("placing tile %d: %v", id, err)), nil
		}
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/merge"), map[string]bool{"settle": true}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleMerge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	// Agents cannot watch animations, so always settle
	var result service.ActionResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/merge"), map[string]bool{"settle": true}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleArrange(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	strategy, _ := args["strategy"].(string)

	var result service.ActionResult
	body := map[string]any{"strategy": strategy, "settle": true}
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/arrange"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleSpeak(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.SpeakResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/speak"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Say: %q (played %d times)", result.Word, result.AudioPlays)), nil
}

func (c *Client) handleGetResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result engine.Result
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/result"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResult(&result)), nil
}

func (c *Client) handleListQuestionSets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sets []service.QuestionSetInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/question-sets", nil, &sets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatQuestionSets(sets)), nil
}

func (c *Client) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/results"
	if limit, ok := intArg(arguments(request), "limit"); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Count   int                     `json:"count"`
		Results []service.ResultSummary `json:"results"`
	}
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResultSummaries(response.Results)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Spell Ground - Complete Instructions

GAME OBJECTIVE:
Every question is a word (or a phrase) cut into tiles that are scattered over
the board. Put the tiles in the right order, left to right, and merge them.
Solve every question in the set to win.

HOW A QUESTION IS CHECKED:
• Merge slides every tile into one row, ordered by the tiles' current x position
• The row is read left to right and compared with the target
• Correct: the next question loads with fresh tiles
• Wrong: one health point is lost and the row opens up slightly so the
  misplaced tiles can be told apart

READING THE FEEDBACK:
• After a wrong answer the highlighted tiles (marked * in puzzle_state) are the
  misplaced ones; the others form the longest run already in the right
  relative order
• Keep the plain tiles where they are and move the highlighted ones between them

HEALTH AND SCORE:
• Health starts at the set's maximum (10 unless the set says otherwise)
• Each wrong answer costs 1 health, but health never drops below 1
• Final score = remaining health x number of questions

TILE OPERATIONS:
• puzzle_state lists tiles sorted by x, so the listing order is the answer order
• move_tile drags one tile; spell_answer places many tiles and merges in one go
• click_tile toggles a highlight you can use as a marker
• arrange scatters the tiles, winds them into a spiral or packs them into rows

STRATEGY:
1. Call speak to learn the word (the word is also shown in puzzle_state)
2. Find the tile for each unit of the word; repeated letters have several tiles
   and any of them will do
3. Call spell_answer with the tile IDs in order
4. On a miss, read the highlights and try again

SPLIT MODES:
• char: one tile per character ("cat" -> c, a, t)
• word: one tile per word ("see you soon" -> see, you, soon)

SESSION MANAGEMENT:
- Multiple sessions can run simultaneously
- Each session has a unique 4-character ID
- Finished puzzles are archived, see list_results

Good luck spelling!`
