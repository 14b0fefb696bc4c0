package game

import (
	"crypto/rand"
	"math/big"
)

// Rand draws integers uniformly from [0, n). *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// RandFunc adapts a plain function to Rand.
type RandFunc func(n int) int

func (f RandFunc) IntN(n int) int { return f(n) }

// CryptoRand draws from crypto/rand.
type CryptoRand struct{}

func (CryptoRand) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return int(v.Int64())
}

// between returns a uniform integer in [lo, hi].
func between(r Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}
