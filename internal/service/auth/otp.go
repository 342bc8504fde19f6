package auth

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mzalewski/secadmin-api/internal/model"
)

// The random multiplier is drawn from [100, 1000).
const (
	otpRandMin = 100
	otpRandMax = 1000
)

// NewChallenge derives the second-factor challenge for a pending login:
// a is the username length, x a fresh random multiplier. Both are fixed for
// the lifetime of this one challenge.
func NewChallenge(username string) *model.OTPChallenge {
	return &model.OTPChallenge{
		ID:        uuid.New(),
		Username:  username,
		A:         utf8.RuneCountInString(username),
		X:         otpRandMin + rand.Intn(otpRandMax-otpRandMin),
		CreatedAt: time.Now().UTC(),
	}
}

// ExpectedAnswer computes round(log10(a*x), 2). Callers must reject a == 0
// or x == 0 before calling; log10 of zero is undefined.
func ExpectedAnswer(a, x int) float64 {
	return math.Round(math.Log10(float64(a*x))*100) / 100
}

// VerifyAnswer parses the user-supplied answer as a culture-invariant
// decimal and compares it to the expected value. The comparison is exact
// floating-point equality; both sides go through the same round-to-two-places
// path, so "3.4" and "3.40" both verify while "3.3999" does not.
func VerifyAnswer(answer string, a, x int) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil {
		return false
	}
	return v == ExpectedAnswer(a, x)
}
