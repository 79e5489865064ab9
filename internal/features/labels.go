package features

// Labels assigns a training class to each vector from its forward return
// horizon rows ahead: +1 above +threshold, -1 below -threshold, 0 between.
// The trailing horizon rows have no forward close yet and are dropped, so
// the result is len(vectors)-horizon classes aligned with the head of the
// input. Labeling looks into the future and must therefore never run on the
// live row; only the trainer calls it.
func Labels(vectors []Vector, horizon int, threshold float64) []int {
	if horizon <= 0 || len(vectors) <= horizon {
		return nil
	}
	out := make([]int, 0, len(vectors)-horizon)
	for t := 0; t+horizon < len(vectors); t++ {
		forward := vectors[t+horizon].Close/vectors[t].Close - 1
		switch {
		case forward > threshold:
			out = append(out, 1)
		case forward < -threshold:
			out = append(out, -1)
		default:
			out = append(out, 0)
		}
	}
	return out
}
