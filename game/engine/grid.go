package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize    = errors.New("grid size must be positive")
	ErrMalformedState = errors.New("malformed grid state")
	ErrOutOfBounds    = errors.New("position out of bounds")
	ErrTileMismatch   = errors.New("cell does not hold this tile")
)

// Grid is a size x size board of optional tiles.
// Cells are stored in a flat buffer indexed by x*size+y.
type Grid struct {
	size  int
	cells []*Tile
}

// NewGrid creates an empty grid
func NewGrid(size int) (*Grid, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	return &Grid{
		size:  size,
		cells: make([]*Tile, size*size),
	}, nil
}

// NewGridFromState rebuilds a grid from a serialized state, copying every
// non-empty cell into a fresh tile.
func NewGridFromState(size int, state GridState) (*Grid, error) {
	if err := validateState(size, state); err != nil {
		return nil, err
	}

	g, err := NewGrid(size)
	if err != nil {
		return nil, err
	}

	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if ts := state.Cells[x][y]; ts != nil {
				g.cells[g.index(x, y)] = NewTile(ts.Position, ts.Value)
			}
		}
	}

	return g, nil
}

func validateState(size int, state GridState) error {
	if state.Size != size {
		return fmt.Errorf("%w: size %d does not match expected %d", ErrMalformedState, state.Size, size)
	}
	if len(state.Cells) != size {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrMalformedState, size, len(state.Cells))
	}
	for x, column := range state.Cells {
		if len(column) != size {
			return fmt.Errorf("%w: column %d has %d cells, expected %d", ErrMalformedState, x, len(column), size)
		}
		for y, ts := range column {
			if ts != nil && (ts.Position.X != x || ts.Position.Y != y) {
				return fmt.Errorf("%w: tile in cell (%d,%d) claims position (%d,%d)",
					ErrMalformedState, x, y, ts.Position.X, ts.Position.Y)
			}
		}
	}
	return nil
}

// Size returns the grid's side length
func (g *Grid) Size() int {
	return g.size
}

func (g *Grid) index(x, y int) int {
	return x*g.size + y
}

// EachCell calls fn for every cell, x outer ascending, y inner ascending
func (g *Grid) EachCell(fn func(x, y int, tile *Tile)) {
	for x := 0; x < g.size; x++ {
		for y := 0; y < g.size; y++ {
			fn(x, y, g.cells[g.index(x, y)])
		}
	}
}

// EachCellInRow calls fn for every cell of the given row, x ascending.
// A row outside the grid visits nothing.
func (g *Grid) EachCellInRow(fn func(x, y int, tile *Tile), row int) {
	if row < 0 || row >= g.size {
		return
	}
	for x := 0; x < g.size; x++ {
		fn(x, row, g.cells[g.index(x, row)])
	}
}

// AvailableCells returns the positions of all empty cells
func (g *Grid) AvailableCells() []Position {
	var cells []Position

	g.EachCell(func(x, y int, tile *Tile) {
		if tile == nil {
			cells = append(cells, Position{X: x, Y: y})
		}
	})

	return cells
}

// AvailableCellsInRow returns the positions of the empty cells in a row
func (g *Grid) AvailableCellsInRow(row int) []Position {
	var cells []Position

	g.EachCellInRow(func(x, y int, tile *Tile) {
		if tile == nil {
			cells = append(cells, Position{X: x, Y: y})
		}
	}, row)

	return cells
}

// RandomAvailableCell picks an empty cell uniformly at random.
// The boolean is false when the grid is full.
func (g *Grid) RandomAvailableCell(rng RandomSource) (Position, bool) {
	cells := g.AvailableCells()
	if len(cells) == 0 {
		return Position{}, false
	}
	return cells[rng.IntN(len(cells))], true
}

// CellsAvailable reports whether any cell is empty
func (g *Grid) CellsAvailable() bool {
	return len(g.AvailableCells()) > 0
}

// CellsAvailableInRow returns how many cells are empty in a row
func (g *Grid) CellsAvailableInRow(row int) int {
	return len(g.AvailableCellsInRow(row))
}

// CellAvailable reports whether the cell holds no tile
func (g *Grid) CellAvailable(cell Position) bool {
	return !g.CellOccupied(cell)
}

// CellOccupied reports whether the cell holds a tile
func (g *Grid) CellOccupied(cell Position) bool {
	return g.CellContent(cell) != nil
}

// CellContent returns the tile at cell, or nil when the cell is empty or out of bounds
func (g *Grid) CellContent(cell Position) *Tile {
	if !g.WithinBounds(cell) {
		return nil
	}
	return g.cells[g.index(cell.X, cell.Y)]
}

// WithinBounds reports whether both coordinates lie in [0, size)
func (g *Grid) WithinBounds(position Position) bool {
	return position.X >= 0 && position.X < g.size &&
		position.Y >= 0 && position.Y < g.size
}

// InsertTile places the tile at its own position, replacing whatever was there
func (g *Grid) InsertTile(tile *Tile) error {
	if tile == nil {
		return fmt.Errorf("tile cannot be nil")
	}
	if !g.WithinBounds(tile.Position) {
		return fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrOutOfBounds, tile.Position.X, tile.Position.Y, g.size, g.size)
	}

	g.cells[g.index(tile.Position.X, tile.Position.Y)] = tile
	return nil
}

// RemoveTile clears the tile's cell. The cell must hold this exact tile.
func (g *Grid) RemoveTile(tile *Tile) error {
	if tile == nil {
		return fmt.Errorf("tile cannot be nil")
	}
	if !g.WithinBounds(tile.Position) {
		return fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrOutOfBounds, tile.Position.X, tile.Position.Y, g.size, g.size)
	}

	idx := g.index(tile.Position.X, tile.Position.Y)
	if g.cells[idx] != tile {
		return fmt.Errorf("%w at (%d,%d)", ErrTileMismatch, tile.Position.X, tile.Position.Y)
	}

	g.cells[idx] = nil
	return nil
}

// ClearCell empties the cell and returns the tile it held, if any
func (g *Grid) ClearCell(cell Position) (*Tile, error) {
	if !g.WithinBounds(cell) {
		return nil, fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrOutOfBounds, cell.X, cell.Y, g.size, g.size)
	}

	idx := g.index(cell.X, cell.Y)
	tile := g.cells[idx]
	g.cells[idx] = nil
	return tile, nil
}

// Serialize returns the grid as a plain snapshot, cells[x][y]
func (g *Grid) Serialize() GridState {
	cells := make([][]*TileState, g.size)

	for x := 0; x < g.size; x++ {
		column := make([]*TileState, g.size)
		for y := 0; y < g.size; y++ {
			if tile := g.cells[g.index(x, y)]; tile != nil {
				ts := tile.Serialize()
				column[y] = &ts
			}
		}
		cells[x] = column
	}

	return GridState{
		Size:  g.size,
		Cells: cells,
	}
}
