package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/tile-grid-game/game/engine"
	"github.com/wricardo/tile-grid-game/game/service"
)

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
		"Tile Grid Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tile Grid Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

THE BOARD:
A square grid of numbered tiles. Cells are addressed as (x, y) with x the column and y the row,
both 0-based. Empty cells are "available" and are where new tiles spawn.

AVAILABLE TOOLS:
- create_session: Create a new board session
- list_sessions: List all active sessions
- get_session: Get session details
- get_grid: Show the current board
- insert_tile: Place a tile with a value at (x, y)
- remove_tile: Remove the tile at (x, y)
- spawn_tile: Spawn a 2 or 4 into a random empty cell
- reset_grid: Reset the board to its starting tiles
- available_cells: List empty cells, optionally for one row
- describe_cell: Inspect a single cell
- hints: Lookahead hints (combine diagonally, combine down, availability per row)
- history: View past operations
- list_configs: List available board presets
- board_instructions: Full instructions`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func coordinateProperties() map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionProperty(),
		"x": map[string]interface{}{
			"type":        "integer",
			"description": "X coordinate (column) of the cell, 0-based",
		},
		"y": map[string]interface{}{
			"type":        "integer",
			"description": "Y coordinate (row) of the cell, 0-based",
		},
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
		},
		Required: []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new board session with optional preset selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the preset to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active board sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnlySchema(),
	}, c.handleGetSession)

	// Board operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_grid",
		Description: "Get the current board",
		InputSchema: sessionOnlySchema(),
	}, c.handleGetGrid)

	insertProps := coordinateProperties()
	insertProps["value"] = map[string]interface{}{
		"type":        "integer",
		"description": "Tile value, a power of two such as 2, 4 or 8",
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "insert_tile",
		Description: "Insert a tile at (x, y). An existing tile at that cell is replaced.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: insertProps,
			Required:   []string{"session_id", "x", "y", "value"},
		},
	}, c.handleInsertTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_tile",
		Description: "Remove the tile at (x, y)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: coordinateProperties(),
			Required:   []string{"session_id", "x", "y"},
		},
	}, c.handleRemoveTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "spawn_tile",
		Description: "Spawn a new tile (2, or sometimes 4) into a random empty cell",
		InputSchema: sessionOnlySchema(),
	}, c.handleSpawnTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_grid",
		Description: "Reset the board to a fresh set of starting tiles",
		InputSchema: sessionOnlySchema(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "available_cells",
		Description: "List the empty cells of the board, or of a single row",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Only list cells in this row (y), optional",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAvailableCells)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about a specific cell: bounds, occupancy and tile value",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: coordinateProperties(),
			Required:   []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hints",
		Description: "Get lookahead hints for the board",
		InputSchema: sessionOnlySchema(),
	}, c.handleHints)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "history",
		Description: "Get operation history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order, newest first by default",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_instructions",
		Description: "Get complete instructions for working with the board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleBoardInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
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

// intArg reads an integer argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	err := c.apiCall("POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Config: %s, Grid: %dx%d, Created: %s)\n",
			s.ID, s.ConfigName, s.Grid.Size, s.Grid.Size, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	err := c.apiCall("GET", sessionPath(sessionID, ""), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGetGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var view service.GridView
	err := c.apiCall("GET", sessionPath(sessionID, "/grid"), nil, &view)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGridView(&view)), nil
}

func (c *Client) handleInsertTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	value, okV := intArg(args, "value")
	if !okX || !okY || !okV {
		return mcp.NewToolResultError("x, y and value are required integers"), nil
	}

	body := map[string]int{"x": x, "y": y, "value": value}

	var result service.TileResult
	err := c.apiCall("POST", sessionPath(sessionID, "/tiles"), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTileResult(&result)), nil
}

func (c *Client) handleRemoveTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var result service.TileResult
	err := c.apiCall("DELETE", sessionPath(sessionID, fmt.Sprintf("/tiles/%d/%d", x, y)), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTileResult(&result)), nil
}

func (c *Client) handleSpawnTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.TileResult
	err := c.apiCall("POST", sessionPath(sessionID, "/spawn"), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTileResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		Grid    *service.GridView `json:"grid"`
	}

	err := c.apiCall("POST", sessionPath(sessionID, "/reset"), nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGridView(response.Grid))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleAvailableCells(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	path := sessionPath(sessionID, "/available")
	if row, ok := intArg(args, "row"); ok {
		path += fmt.Sprintf("?row=%d", row)
	}

	var available service.AvailableCellsResult
	err := c.apiCall("GET", path, nil, &available)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAvailableCells(&available)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var cell service.CellInfo
	err := c.apiCall("GET", sessionPath(sessionID, fmt.Sprintf("/tiles/%d/%d", x, y)), nil, &cell)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellInfo(&cell)), nil
}

func (c *Client) handleHints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var hints engine.Hints
	err := c.apiCall("GET", sessionPath(sessionID, "/hints"), nil, &hints)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHints(&hints)), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", strconv.Itoa(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", strconv.Itoa(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	err := c.apiCall("GET", path, nil, &history)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	err := c.apiCall("GET", "/api/configs", nil, &configs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (id: %s)\n  %s\n  Grid: %dx%d, Start tiles: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.GridSize, config.GridSize, config.StartTiles)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleBoardInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Tile Grid Game - Complete Instructions

THE BOARD:
• A square grid, 4x4 by default, between 2x2 and 16x16 depending on the preset
• Each cell is empty or holds one tile with a value (2, 4, 8, 16, ...)
• Cells are addressed (x, y): x is the column, y is the row, both start at 0
• The grid display prints one line per row y, columns x left to right, "." for empty

OPERATIONS:
• insert_tile places a tile at (x, y); a tile already there is replaced
• remove_tile clears (x, y); removing an empty cell fails
• spawn_tile puts a 2 (or, with the preset's probability, a 4) into a random empty cell
• reset_grid empties the board and spawns the preset's starting tiles
• Coordinates outside the board are rejected, never wrapped

AVAILABILITY:
• A cell is available when it is empty
• available_cells lists them column by column (x ascending, then y ascending)
• With a row, it lists that row's empty cells by ascending x; a row outside the board is empty
• When no cells are available, spawn_tile reports that the board is full

HINTS:
• combine_diagonally: a tile in row 2 has the same value as a tile further right in row 3,
  and the number of empty cells in row 2 equals the distance between their columns
• combine_down: a tile in row 2 has the same value as the tile directly below it in row 3
• available_by_row: empty cells in each row, row 0 first

HISTORY:
• Every insert, remove, spawn and reset is recorded with its position, value and success
• history is paginated, newest first unless order=asc

SESSION MANAGEMENT:
• Multiple board sessions can run simultaneously
• Each session has a unique 4-character ID (case-insensitive)
• Sessions are saved after every operation and survive restarts
• Use list_configs to pick a preset for create_session`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"))
	if session.Message != "" {
		result += fmt.Sprintf("Message: %s\n", session.Message)
	}
	return result + "\n" + formatGrid(session.Grid)
}

func formatGridView(view *service.GridView) string {
	if view == nil {
		return "No board available"
	}

	var b strings.Builder
	b.WriteString(formatGrid(view.Grid))
	b.WriteString("\n")
	b.WriteString(formatHints(&view.Hints))
	if view.Message != "" {
		b.WriteString(fmt.Sprintf("\nMessage: %s", view.Message))
	}
	return b.String()
}

// formatGrid renders one line per row y, columns x left to right
func formatGrid(state engine.GridState) string {
	if state.Size == 0 || len(state.Cells) != state.Size {
		return "No board available"
	}

	width := 1
	for _, column := range state.Cells {
		for _, tile := range column {
			if tile != nil && len(strconv.Itoa(tile.Value)) > width {
				width = len(strconv.Itoa(tile.Value))
			}
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Grid %dx%d\n", state.Size, state.Size))
	for y := 0; y < state.Size; y++ {
		cells := make([]string, state.Size)
		for x := 0; x < state.Size; x++ {
			cell := "."
			if y < len(state.Cells[x]) && state.Cells[x][y] != nil {
				cell = strconv.Itoa(state.Cells[x][y].Value)
			}
			cells[x] = fmt.Sprintf("%*s", width, cell)
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func formatTileResult(result *service.TileResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString(fmt.Sprintf("✓ %s successful\n", result.Action))
	} else {
		b.WriteString(fmt.Sprintf("✗ %s failed\n", result.Action))
	}

	if result.Tile != nil {
		b.WriteString(fmt.Sprintf("Tile: %d at (%d,%d)\n",
			result.Tile.Value, result.Tile.Position.X, result.Tile.Position.Y))
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

	if result.Grid.Size > 0 {
		b.WriteString("\n")
		b.WriteString(formatGrid(result.Grid))
	}
	return b.String()
}

func formatAvailableCells(result *service.AvailableCellsResult) string {
	var b strings.Builder
	if result.Row != nil {
		b.WriteString(fmt.Sprintf("Available cells in row %d: %d\n", *result.Row, result.Count))
	} else {
		b.WriteString(fmt.Sprintf("Available cells: %d\n", result.Count))
	}

	positions := make([]string, 0, len(result.Cells))
	for _, pos := range result.Cells {
		positions = append(positions, fmt.Sprintf("(%d,%d)", pos.X, pos.Y))
	}
	if len(positions) > 0 {
		b.WriteString(strings.Join(positions, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func formatCellInfo(cell *service.CellInfo) string {
	state := "empty (available)"
	switch {
	case !cell.WithinBounds:
		state = "outside the board"
	case cell.Occupied && cell.Tile != nil:
		state = fmt.Sprintf("occupied by %d", cell.Tile.Value)
	case cell.Occupied:
		state = "occupied"
	}

	return fmt.Sprintf(`Cell at position (%d, %d):
━━━━━━━━━━━━━━━━━━━━━━━━
Within bounds: %v
Occupied: %v
State: %s`,
		cell.Position.X, cell.Position.Y,
		cell.WithinBounds,
		cell.Occupied,
		state)
}

func formatHints(hints *engine.Hints) string {
	rows := make([]string, len(hints.AvailableByRow))
	for i, n := range hints.AvailableByRow {
		rows[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("Hints: combine diagonally=%v | combine down=%v | available=%d | by row=[%s]\n",
		hints.CombineDiagonally, hints.CombineDown, hints.AvailableCount, strings.Join(rows, ","))
}

func formatHistory(history *service.HistoryResponse) string {
	result := fmt.Sprintf("Operation History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalOperations)

	for _, op := range history.Operations {
		status := "✓"
		if !op.Success {
			status = "✗"
		}
		switch op.Action {
		case engine.ActionReset:
			result += fmt.Sprintf("%d. reset %s\n", op.OpNumber, status)
		case engine.ActionRemove:
			result += fmt.Sprintf("%d. remove (%d,%d) %s\n", op.OpNumber, op.Position.X, op.Position.Y, status)
		default:
			result += fmt.Sprintf("%d. %s %d at (%d,%d) %s\n",
				op.OpNumber, op.Action, op.Value, op.Position.X, op.Position.Y, status)
		}
	}

	return result
}
