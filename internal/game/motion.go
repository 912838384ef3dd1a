package game

// NextHead returns the cell the head would enter moving in dir
func NextHead(snake Snake, dir Direction) Position {
	return snake[0].Position.Add(dir)
}

// Move advances the snake one cell. The new head is prepended and the last
// position is dropped; body colors stay at their indices. Length is unchanged.
func Move(snake Snake, dir Direction) Snake {
	out := make(Snake, len(snake))
	out[0] = Segment{Position: NextHead(snake, dir)}
	for i := 1; i < len(snake); i++ {
		out[i] = Segment{Position: snake[i-1].Position, Color: snake[i].Color}
	}
	return out
}

// Grow advances the snake one cell keeping every existing position.
// color becomes the color of body index 1 and the old colors shift back one.
func Grow(snake Snake, dir Direction, color Color) Snake {
	out := make(Snake, len(snake)+1)
	out[0] = Segment{Position: NextHead(snake, dir)}
	out[1] = Segment{Position: snake[0].Position, Color: color}
	for i := 2; i < len(out); i++ {
		out[i] = snake[i-1]
	}
	return out
}

// Collides reports whether the head of candidate is out of bounds or shares
// a cell with any other segment of the same slice.
//
// The machine passes the next head prepended to the full pre-move body, so
// the cell the tail is about to vacate still counts as occupied.
func Collides(candidate Snake, width, height int) bool {
	head := candidate[0].Position
	if !InBounds(head, width, height) {
		return true
	}
	for i := 1; i < len(candidate); i++ {
		if candidate[i].Position == head {
			return true
		}
	}
	return false
}

// candidateSnake builds the collision-test slice: next head + full current body
func candidateSnake(snake Snake, next Position) Snake {
	out := make(Snake, 0, len(snake)+1)
	out = append(out, Segment{Position: next})
	return append(out, snake...)
}
