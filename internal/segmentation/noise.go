package segmentation

// filterNoise drops candidate flights with too few records. Spurious reports
// produce one- or two-point "flights" when an aircraft's declared route
// briefly flips; a candidate must have more than minPoints records to
// survive. Returns the survivors in order and the number of dropped
// candidates. Renumbering to dense flight ids happens when the survivors are
// rebased onto the global counter.
func filterNoise(cands []candidate, minPoints int) (kept []candidate, dropped int) {
	kept = cands[:0]
	for _, cand := range cands {
		if cand.count() > minPoints {
			kept = append(kept, cand)
		} else {
			dropped++
		}
	}
	return kept, dropped
}
