package game

// Evaluate compares a guess against the secret and returns the marker counts:
// black for symbols matching in both value and position, white for symbols
// present in the secret at a different position. Pairing is one-to-one: each
// secret position contributes to at most one marker, so duplicated guess
// symbols never outscore the secret's actual occurrences (secret "AB" vs
// guess "AA" is (1, 0), not (1, 1)).
//
// The sequences must be equal length; the caller validates that before
// calling (a length mismatch is a protocol error, not a zero-marker guess).
func Evaluate(secret, guess string) (black, white int) {
	s := []rune(secret)
	g := []rune(guess)

	// Exact positional matches, collecting the residual symbols as we go.
	var residualSecret, residualGuess []rune
	for i := range g {
		if g[i] == s[i] {
			black++
			continue
		}
		residualSecret = append(residualSecret, s[i])
		residualGuess = append(residualGuess, g[i])
	}

	// One-to-one pairing over the residue: each guess symbol consumes at
	// most one matching secret occurrence.
	remaining := make(map[rune]int, len(residualSecret))
	for _, c := range residualSecret {
		remaining[c]++
	}
	for _, c := range residualGuess {
		if remaining[c] > 0 {
			white++
			remaining[c]--
		}
	}

	return black, white
}
