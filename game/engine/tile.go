package engine

// Tile is a numbered piece occupying one cell of a grid
type Tile struct {
	Position Position
	Value    int
}

// NewTile creates a tile at the given position
func NewTile(position Position, value int) *Tile {
	return &Tile{Position: position, Value: value}
}

// Serialize returns a plain snapshot of the tile
func (t *Tile) Serialize() TileState {
	return TileState{Position: t.Position, Value: t.Value}
}
