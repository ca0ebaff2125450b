package engine

// Rows probed by the combine hints. They are fixed for the classic 4x4 board
// and are not scaled with the grid size.
const (
	HintUpperRow = 2
	HintLowerRow = 3
)

// CanCombineDiagonally reports whether some occupied cell in the upper row at
// column x1 matches the value of the cell in the lower row at a later column
// x2, with exactly x2-x1 empty cells in the upper row.
func (g *Grid) CanCombineDiagonally(upper, lower int) bool {
	for x1 := 0; x1 < g.size-1; x1++ {
		for x2 := x1 + 1; x2 < g.size; x2++ {
			top := g.CellContent(Position{X: x1, Y: upper})
			if top == nil {
				continue
			}
			bottom := g.CellContent(Position{X: x2, Y: lower})
			if bottom == nil {
				continue
			}
			if top.Value == bottom.Value && g.CellsAvailableInRow(upper) == x2-x1 {
				return true
			}
		}
	}

	return false
}

// CanCombineDown reports whether an occupied cell in the upper row has the
// same value as the cell directly below it in the lower row.
func (g *Grid) CanCombineDown(upper, lower int) bool {
	for x := 0; x < g.size; x++ {
		top := g.CellContent(Position{X: x, Y: upper})
		if top == nil {
			continue
		}
		bottom := g.CellContent(Position{X: x, Y: lower})
		if bottom != nil && top.Value == bottom.Value {
			return true
		}
	}

	return false
}

// TimeToCombineDiagonally probes rows 2 and 3
func (g *Grid) TimeToCombineDiagonally() bool {
	return g.CanCombineDiagonally(HintUpperRow, HintLowerRow)
}

// TimeToCombineDown probes rows 2 and 3
func (g *Grid) TimeToCombineDown() bool {
	return g.CanCombineDown(HintUpperRow, HintLowerRow)
}

// Hints collects the combine predicates and availability counts
func (g *Grid) Hints() Hints {
	byRow := make([]int, g.size)
	for row := 0; row < g.size; row++ {
		byRow[row] = g.CellsAvailableInRow(row)
	}
	available := len(g.AvailableCells())

	return Hints{
		CombineDiagonally: g.TimeToCombineDiagonally(),
		CombineDown:       g.TimeToCombineDown(),
		CellsAvailable:    available > 0,
		AvailableCount:    available,
		AvailableByRow:    byRow,
	}
}
