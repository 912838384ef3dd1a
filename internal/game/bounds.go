package game

// InBounds reports whether p lies within [0,width) x [0,height)
func InBounds(p Position, width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}
