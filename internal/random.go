package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const digits = "0123456789"

// RandomString draws n characters uniformly from alphabet using crypto/rand.
func RandomString(alphabet string, n int) (string, error) {
	if alphabet == "" || n <= 0 {
		return "", errors.New("invalid random string request")
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewOTP returns a numeric passcode of length 6 to 10. Leading zeros are
// kept, so every code of that length is equally likely.
func NewOTP(length int) (string, error) {
	if length < 6 || length > 10 {
		return "", errors.New("invalid otp digits")
	}
	return RandomString(digits, length)
}
