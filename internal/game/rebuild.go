package game

import "color-snake/internal/game/spatial"

// spiralDirections is the turn order of the fallback spiral: right, down, left, up
var spiralDirections = [4]Direction{DirRight, DirDown, DirLeft, DirUp}

// RebuildSnake lays colors out as body segments around a fixed head after the
// body changed shape by removal.
//
// Placement happens in two passes:
//  1. Straight lines out of the head, first opposite to dir, then the other
//     cardinal directions (UP, DOWN, LEFT, RIGHT order). Each line stops at the
//     wall or at a used cell; the next line continues with the next color.
//  2. An outward square spiral around the head for whatever is left.
//
// If the grid runs out of free cells the remaining colors are not placed and
// their count is returned as dropped.
func RebuildSnake(head Position, colors []Color, dir Direction, width, height int) (Snake, int) {
	snake := make(Snake, 1, len(colors)+1)
	snake[0] = Segment{Position: head}
	if len(colors) == 0 {
		return snake, 0
	}

	used := spatial.NewOccupancy(width, height)
	used.Mark(head.X, head.Y)
	placed := 0

	for _, d := range placementOrder(dir) {
		v := d.Vector()
		for k := 1; placed < len(colors); k++ {
			p := Position{X: head.X + v.X*k, Y: head.Y + v.Y*k}
			if !used.Mark(p.X, p.Y) {
				break
			}
			snake = append(snake, Segment{Position: p, Color: colors[placed]})
			placed++
		}
		if placed == len(colors) {
			return snake, 0
		}
	}

	for _, p := range spiralCells(head, width, height) {
		if placed == len(colors) {
			break
		}
		if !used.Mark(p.X, p.Y) {
			continue
		}
		snake = append(snake, Segment{Position: p, Color: colors[placed]})
		placed++
	}

	return snake, len(colors) - placed
}

// placementOrder puts the reverse of the travel direction first and keeps
// the canonical order for the rest
func placementOrder(dir Direction) []Direction {
	preferred := dir.Opposite()
	order := make([]Direction, 0, len(cardinalDirections))
	if preferred.Valid() {
		order = append(order, preferred)
	}
	for _, d := range cardinalDirections {
		if d != preferred {
			order = append(order, d)
		}
	}
	return order
}

// spiralCells walks an outward square spiral from center (run lengths
// 1,1,2,2,3,3,...) and returns every in-bounds cell it visits once, in order.
// The center itself is excluded.
func spiralCells(center Position, width, height int) []Position {
	total := width*height - 1
	cells := make([]Position, 0, total)
	if !InBounds(center, width, height) || total <= 0 {
		return cells
	}

	seen := spatial.NewOccupancy(width, height)
	seen.Mark(center.X, center.Y)

	x, y := center.X, center.Y
	dirIdx := 0
	// Once the run length exceeds twice the larger dimension every cell has been covered.
	maxSteps := 2*max(width, height) + 2
	for steps := 1; len(cells) < total && steps <= maxSteps; steps++ {
		for turn := 0; turn < 2; turn++ {
			v := spiralDirections[dirIdx].Vector()
			for s := 0; s < steps; s++ {
				x += v.X
				y += v.Y
				if seen.Mark(x, y) {
					cells = append(cells, Position{X: x, Y: y})
				}
			}
			dirIdx = (dirIdx + 1) % len(spiralDirections)
		}
	}
	return cells
}
