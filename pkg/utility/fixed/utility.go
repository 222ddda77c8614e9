package fixed

// Min returns the smaller of a and b.
func Min(a, b Point) Point {
	if a.Lte(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Point) Point {
	if a.Gte(b) {
		return a
	}
	return b
}
