package entropy

import (
	"math"
)

// Shannon returns the Shannon entropy of the input over its own character
// frequency distribution, in bits per character. An empty string has an
// entropy of 0.
func Shannon(input string) (result float64) {
	if input == "" {
		return 0
	}

	frequencies := make(map[rune]int)
	var total int
	for _, c := range input {
		frequencies[c]++
		total++
	}

	for _, count := range frequencies {
		px := float64(count) / float64(total)
		result += -px * math.Log2(px)
	}

	return
}
