package entropy_test

import (
	"math"
	"testing"

	. "github.com/canarysec/canary-scanner/pkg/entropy"
	"github.com/stretchr/testify/require"
)

func TestShannonEmptyString(t *testing.T) {
	require.Equal(t, 0.0, Shannon(""))
}

func TestShannonRepeatedCharacter(t *testing.T) {
	require.Equal(t, 0.0, Shannon("aaaaaaaaaa"))
}

func TestShannonUniformDistribution(t *testing.T) {
	// 16 distinct characters, each appearing once: entropy is log2(16) = 4
	response := Shannon("0123456789abcdef")

	require.InDelta(t, 4.0, response, 1e-9)
}

func TestShannonTwoCharacters(t *testing.T) {
	// Even split between two characters: exactly 1 bit per character
	response := Shannon("ababababab")

	require.InDelta(t, 1.0, response, 1e-9)
}

func TestShannonBoundedByAlphabetSize(t *testing.T) {
	input := "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"

	response := Shannon(input)

	require.Greater(t, response, 0.0)
	require.LessOrEqual(t, response, math.Log2(float64(len(input))))
}
