package envelope

import (
	"crypto/rand"
	"math/big"
)

// DefaultChallengeLength is the length of the challenge nonce sent on initialize.
const DefaultChallengeLength = 40

const alphanumeric = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomChallenge returns n random alphanumeric characters from crypto/rand.
func RandomChallenge(n int) string {
	return randomString(n, alphanumeric)
}

// RandomDigits returns n random decimal digits, the first one non-zero.
func RandomDigits(n int) string {
	if n <= 0 {
		return ""
	}
	return randomString(1, alphanumeric[1:10]) + randomString(n-1, alphanumeric[:10])
}

// RandomInt returns a uniform integer in [min, max].
func RandomInt(min, max int64) int64 {
	if max <= min {
		return min
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		panic("envelope: read entropy: " + err.Error())
	}
	return min + n.Int64()
}

func randomString(n int, alphabet string) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[RandomInt(0, int64(len(alphabet)-1))]
	}
	return string(out)
}
