package highlight

// Next returns the evidence cursor that follows cursor in a list of n links, wrapping to
// the start. It never returns an index outside [0, n).
func Next(cursor, n int) int {
	if n <= 1 || cursor < 0 {
		return 0
	}
	return (cursor + 1) % n
}
