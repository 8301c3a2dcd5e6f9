package game

// Board is the ordered tile sequence of one round.
type Board [TotalTiles]TileState

// NewBoard returns an all-empty board with mineCount mines placed by
// rejection sampling: draw a uniform index, redraw if it already holds a mine.
func NewBoard(mineCount int, r Rand) (Board, error) {
	var b Board
	if !ValidMineCount(mineCount) {
		return b, ErrInvalidMineCount
	}

	for i := range b {
		b[i] = TileEmpty
	}

	placed := 0
	for placed < mineCount {
		pos := r.IntN(TotalTiles)
		if b[pos] == TileMine {
			continue
		}
		b[pos] = TileMine
		placed++
	}

	return b, nil
}

// Count returns how many tiles are in the given state.
func (b Board) Count(state TileState) int {
	n := 0
	for _, t := range b {
		if t == state {
			n++
		}
	}
	return n
}

// Mines returns the number of tiles holding a mine, revealed or not.
func (b Board) Mines() int {
	n := 0
	for _, t := range b {
		if t.IsMine() {
			n++
		}
	}
	return n
}

// MinePositions lists mine indices in ascending order.
func (b Board) MinePositions() []int {
	positions := make([]int, 0, len(b))
	for i, t := range b {
		if t.IsMine() {
			positions = append(positions, i)
		}
	}
	return positions
}

// discloseAll reveals every remaining tile.
func (b *Board) discloseAll() {
	for i, t := range b {
		switch t {
		case TileMine:
			b[i] = TileRevealedMine
		case TileEmpty:
			b[i] = TileRevealedSafe
		}
	}
}

// String renders the board as rows of five, for debugging and test output.
func (b Board) String() string {
	const cols = 5
	buf := make([]byte, 0, TotalTiles*2+TotalTiles/cols)
	for i, t := range b {
		var c byte
		switch t {
		case TileEmpty:
			c = '-'
		case TileMine:
			c = 'm'
		case TileRevealedSafe:
			c = '.'
		case TileRevealedMine:
			c = '*'
		default:
			c = '?'
		}
		buf = append(buf, c)
		if (i+1)%cols == 0 {
			buf = append(buf, '\n')
		} else {
			buf = append(buf, ' ')
		}
	}
	return string(buf)
}
