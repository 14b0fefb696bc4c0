package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/robalobadob/numguess/internal/game"
)

// Difficulty is the tier every daily challenge is played at.
const Difficulty = game.Medium

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Rand returns the day's generator: PCG seeded from HMAC(salt, YYYY-MM-DD).
// Every player drawing from a fresh Rand for the same date gets the same target.
func Rand(date time.Time, salt string) game.Rand {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(sum[:8]),
		binary.BigEndian.Uint64(sum[8:16]),
	))
}
