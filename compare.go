package ctph

// Compare computes a similarity score in [0,100] between two ssdeep-wire
// digests. Incompatible block sizes are not an error - they are a valid
// similarity of zero.
func Compare(hash1, hash2 string) (int, error) {
	d1, err := ParseDigest(hash1)
	if err != nil {
		return 0, err
	}
	d2, err := ParseDigest(hash2)
	if err != nil {
		return 0, err
	}

	b1, b2 := d1.BlockSize, d2.BlockSize
	if b1 != b2 && b1 != b2*2 && b2 != b1*2 {
		return 0, nil
	}

	s1a, s2a := stripRuns(d1.S1), stripRuns(d1.S2)
	s1b, s2b := stripRuns(d2.S1), stripRuns(d2.S2)

	if b1 == b2 && s1a == s1b {
		return 100, nil
	}

	switch {
	case b1 == b2:
		score1 := score(s1a, s1b, uint32(b1))
		score2 := score(s2a, s2b, uint32(b1)*2)

		// Saturated-hash tie-break: if both first fields hit the 64-char
		// cap they may be truncated, so a positive second-field score takes
		// precedence over the max.
		if len(d1.S1) >= spamSumLength && len(d2.S1) >= spamSumLength && score2 > 0 {
			return score2, nil
		}
		return max(score1, score2), nil

	case b1 == b2*2:
		return score(s1a, s2b, uint32(b1)), nil

	default: // b2 == b1*2
		return score(s2a, s1b, uint32(b2)), nil
	}
}

// score implements the single-field similarity scorer: a common-substring
// gate, Levenshtein distance scaled by block size, and a block-size-dependent
// clamp.
func score(x, y string, bs uint32) int {
	if !commonSubstring(x, y) {
		return 0
	}

	d := levenshtein(x, y)

	s := uint32(d) * spamSumLength / uint32(len(x)+len(y))
	s = 100 * s / spamSumLength
	result := 100 - int(s)

	if clamp := int(bs/blockSizeMin) * min(len(x), len(y)); result > clamp {
		result = clamp
	}
	if result < 0 {
		result = 0
	}
	return result
}

// commonSubstring implements the rolling-hash common-7-gram pre-filter: roll
// through x recording every trigger value, then roll through y and look for
// a verified collision at index j>=rollWindow-1. Returns on the first
// verified match, not the best - the contract is boolean, so order does not
// change the result.
func commonSubstring(x, y string) bool {
	hashes := make([]uint32, len(x))
	var rx rollState
	for i := 0; i < len(x); i++ {
		hashes[i] = rx.feed(x[i])
	}

	var ry rollState
	for i := 0; i < len(y); i++ {
		rh := ry.feed(y[i])
		if i < rollWindow-1 {
			continue
		}
		for j := rollWindow - 1; j < len(x); j++ {
			if hashes[j] == 0 || hashes[j] != rh {
				continue
			}
			ir := i - (rollWindow - 1)
			jr := j - (rollWindow - 1)
			if len(y)-ir >= rollWindow && y[ir:ir+rollWindow] == x[jr:jr+rollWindow] {
				return true
			}
		}
	}
	return false
}

// levenshtein computes classical single-character insert/delete/substitute
// edit distance with a two-row dynamic program.
func levenshtein(s, t string) int {
	if s == t {
		return 0
	}
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prevRow := make([]int, len(t)+1)
	for j := range prevRow {
		prevRow[j] = j
	}
	curRow := make([]int, len(t)+1)

	for i := 0; i < len(s); i++ {
		curRow[0] = i + 1
		for j := 0; j < len(t); j++ {
			cost := 1
			if s[i] == t[j] {
				cost = 0
			}
			curRow[j+1] = min3(curRow[j]+1, prevRow[j+1]+1, prevRow[j]+cost)
		}
		prevRow, curRow = curRow, prevRow
	}
	return prevRow[len(t)]
}

func min3(a, b, c int) int {
	return min(a, min(b, c))
}
