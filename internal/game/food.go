package game

import (
	"math/rand"

	"github.com/zyedidia/generic/mapset"
)

// occupiedCells collects every cell taken by the snake, foods and special items
func occupiedCells(snake Snake, foods []Food, items []SpecialItem) mapset.Set[Position] {
	occupied := mapset.New[Position]()
	for _, seg := range snake {
		occupied.Put(seg.Position)
	}
	for _, f := range foods {
		occupied.Put(f.Position)
	}
	for _, it := range items {
		occupied.Put(it.Position)
	}
	return occupied
}

// sampleFreeCell draws uniform cells until one is not occupied.
// Returns false once the attempt budget is spent.
func sampleFreeCell(rng *rand.Rand, width, height, attempts int, occupied mapset.Set[Position]) (Position, bool) {
	for i := 0; i < attempts; i++ {
		p := Position{X: rng.Intn(width), Y: rng.Intn(height)}
		if !occupied.Has(p) {
			return p, true
		}
	}
	return Position{}, false
}

// FoodSpawner places normal foods on unoccupied cells
type FoodSpawner struct {
	width, height int
	count         int
	attempts      int
	colors        []Color
	rng           *rand.Rand
}

// NewFoodSpawner creates a spawner drawing from rng
func NewFoodSpawner(width, height, count, attempts int, colors []Color, rng *rand.Rand) *FoodSpawner {
	return &FoodSpawner{
		width:    width,
		height:   height,
		count:    count,
		attempts: attempts,
		colors:   colors,
		rng:      rng,
	}
}

// Spawn returns a food on a random free cell with a random palette color.
// On a saturated board it returns the fallback food at (0,0) with the first
// palette color; the caller accepts the overlap.
func (fs *FoodSpawner) Spawn(snake Snake, foods []Food, items []SpecialItem) Food {
	occupied := occupiedCells(snake, foods, items)
	if p, ok := sampleFreeCell(fs.rng, fs.width, fs.height, fs.attempts, occupied); ok {
		return Food{Position: p, Color: fs.colors[fs.rng.Intn(len(fs.colors))]}
	}
	return Food{Position: Position{X: 0, Y: 0}, Color: fs.colors[0]}
}

// SpawnInitial fills the board up to the configured food count.
// Each spawn sees the foods placed before it.
func (fs *FoodSpawner) SpawnInitial(snake Snake, items []SpecialItem) []Food {
	foods := make([]Food, 0, fs.count)
	for len(foods) < fs.count {
		foods = append(foods, fs.Spawn(snake, foods, items))
	}
	return foods
}

// Replace removes the food at eaten and spawns a new one against snake.
// Order of the remaining foods is preserved and the new one is appended.
func (fs *FoodSpawner) Replace(foods []Food, eaten Position, snake Snake, items []SpecialItem) []Food {
	remaining := make([]Food, 0, len(foods))
	for _, f := range foods {
		if f.Position != eaten {
			remaining = append(remaining, f)
		}
	}
	return append(remaining, fs.Spawn(snake, remaining, items))
}

// FoodAt returns the food on p, if any
func FoodAt(foods []Food, p Position) (Food, bool) {
	for _, f := range foods {
		if f.Position == p {
			return f, true
		}
	}
	return Food{}, false
}
