package anagram

import "math/big"

// Permutations returns the number of distinct arrangements of the letters
// of word: n! / (f1! * f2! * ...), where fi are the letter multiplicities.
// The result is exact for any length.
func Permutations(word string) *big.Int {
	freq := make(map[rune]int64)
	var n int64
	for _, r := range word {
		freq[r]++
		n++
	}

	numerator := new(big.Int).MulRange(1, n)
	denominator := big.NewInt(1)
	for _, f := range freq {
		if f > 1 {
			denominator.Mul(denominator, new(big.Int).MulRange(1, f))
		}
	}
	return numerator.Quo(numerator, denominator)
}
