// Command inspect prints a human-readable view of a stored board: the grid
// itself, empty cells per row, lookahead hints, and the most recent operations.
//
// It reads either a JSON file (a saved session or a bare serialized grid) or a
// session row from the SQLite session store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/tile-grid-game/game/engine"
	"github.com/wricardo/tile-grid-game/game/session"
)

// Snapshot is a board loaded for inspection
type Snapshot struct {
	SessionID  string
	ConfigName string
	Grid       *engine.Grid
	History    []engine.OperationEntry
}

// loadSnapshotFile reads a saved session, or a bare serialized grid, from path.
func loadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}

	// Saved sessions nest the grid; a bare grid carries size and cells at the top
	if _, nested := probe["grid"]; nested {
		var stored session.PersistedSessionData
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("error parsing session: %w", err)
		}
		grid, err := engine.NewGridFromState(stored.Grid.Size, stored.Grid)
		if err != nil {
			return nil, err
		}
		return &Snapshot{
			SessionID:  stored.ID,
			ConfigName: stored.ConfigName,
			Grid:       grid,
			History:    stored.History,
		}, nil
	}

	var state engine.GridState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("error parsing grid: %w", err)
	}
	grid, err := engine.NewGridFromState(state.Size, state)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Grid: grid}, nil
}

// loadSnapshotDB reads a session from the SQLite session store.
func loadSnapshotDB(dbPath, sessionID string) (*Snapshot, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("session database: %w", err)
	}

	store, err := session.NewSQLitePersistence(dbPath, nil)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sess, err := store.Load(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	return &Snapshot{
		SessionID:  sess.ID,
		ConfigName: sess.Config.Name,
		Grid:       sess.Engine.GetGrid(),
		History:    sess.Engine.GetHistory(),
	}, nil
}

// renderBoard draws the grid one row per line with column and row labels.
func renderBoard(grid *engine.Grid) string {
	size := grid.Size()

	width := 1
	grid.EachCell(func(x, y int, tile *engine.Tile) {
		if tile != nil && len(strconv.Itoa(tile.Value)) > width {
			width = len(strconv.Itoa(tile.Value))
		}
	})
	if l := len(strconv.Itoa(size - 1)); l > width {
		width = l
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", 4))
	for x := 0; x < size; x++ {
		b.WriteString(fmt.Sprintf(" %*d", width, x))
	}
	b.WriteString("\n")

	for y := 0; y < size; y++ {
		b.WriteString(fmt.Sprintf("%3d ", y))
		grid.EachCellInRow(func(x, _ int, tile *engine.Tile) {
			cell := "."
			if tile != nil {
				cell = strconv.Itoa(tile.Value)
			}
			b.WriteString(fmt.Sprintf(" %*s", width, cell))
		}, y)
		b.WriteString("\n")
	}
	return b.String()
}

// renderAvailability lists the empty cells of every row.
func renderAvailability(grid *engine.Grid) string {
	var b strings.Builder
	for y := 0; y < grid.Size(); y++ {
		cells := grid.AvailableCellsInRow(y)
		columns := make([]string, len(cells))
		for i, pos := range cells {
			columns[i] = strconv.Itoa(pos.X)
		}
		b.WriteString(fmt.Sprintf("Row %d: %d empty", y, len(cells)))
		if len(columns) > 0 {
			b.WriteString(" (x=" + strings.Join(columns, ",") + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderHistory(history []engine.OperationEntry, limit int) string {
	if len(history) == 0 || limit <= 0 {
		return ""
	}
	start := 0
	if len(history) > limit {
		start = len(history) - limit
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Last %d of %d operations:\n", len(history)-start, len(history)))
	for _, op := range history[start:] {
		status := "✓"
		if !op.Success {
			status = "✗"
		}
		switch op.Action {
		case engine.ActionReset:
			b.WriteString(fmt.Sprintf("  %d. reset %s\n", op.OpNumber, status))
		case engine.ActionRemove:
			b.WriteString(fmt.Sprintf("  %d. remove (%d,%d) %s\n", op.OpNumber, op.Position.X, op.Position.Y, status))
		default:
			b.WriteString(fmt.Sprintf("  %d. %s %d at (%d,%d) %s\n", op.OpNumber, op.Action, op.Value, op.Position.X, op.Position.Y, status))
		}
	}
	return b.String()
}

// inspect writes the full report for a snapshot
func inspect(w io.Writer, snap *Snapshot, historyLimit int) {
	if snap.SessionID != "" {
		fmt.Fprintf(w, "Session: %s\n", snap.SessionID)
	}
	if snap.ConfigName != "" {
		fmt.Fprintf(w, "Config: %s\n", snap.ConfigName)
	}
	size := snap.Grid.Size()
	fmt.Fprintf(w, "Grid Size: %d x %d\n\n", size, size)

	fmt.Fprint(w, renderBoard(snap.Grid))
	fmt.Fprintln(w)

	available := len(snap.Grid.AvailableCells())
	if available == 0 {
		fmt.Fprintln(w, "⚠️  Board is full: no cell can take a new tile")
	} else {
		fmt.Fprintf(w, "Available cells: %d/%d\n", available, size*size)
	}
	fmt.Fprint(w, renderAvailability(snap.Grid))
	fmt.Fprintln(w)

	hints := snap.Grid.Hints()
	fmt.Fprintf(w, "Combine diagonally: %v\n", hints.CombineDiagonally)
	fmt.Fprintf(w, "Combine down: %v\n", hints.CombineDown)

	if h := renderHistory(snap.History, historyLimit); h != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, h)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print a stored board",
		ArgsUsage: "[snapshot.json]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "SQLite session store to read from"},
			&cli.StringFlag{Name: "session", Usage: "Session ID to read from --db"},
			&cli.IntFlag{Name: "history", Value: 10, Usage: "Number of recent operations to show"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var snap *Snapshot
			var err error

			switch {
			case cmd.String("db") != "":
				if cmd.String("session") == "" {
					return errors.New("--session is required with --db")
				}
				snap, err = loadSnapshotDB(cmd.String("db"), cmd.String("session"))
			case cmd.Args().Len() > 0:
				snap, err = loadSnapshotFile(cmd.Args().First())
			default:
				return errors.New("a snapshot file or --db and --session are required")
			}
			if err != nil {
				return err
			}

			inspect(out, snap, cmd.Int("history"))
			return nil
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
