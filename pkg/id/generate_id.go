package id

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID32 returns a random (v4) UUID as 32 lowercase hex characters.
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

const (
	trackingAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I
	trackingSuffixLen = 6
)

// NewTrackingNumber returns prefix + base36 millisecond clock + random suffix,
// e.g. "LN-MB3K2Q9Z-7HX4QD". Uniqueness is checked by the caller.
func NewTrackingNumber(prefix string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(prefix))
	sb.WriteByte('-')
	sb.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	sb.WriteByte('-')
	sb.WriteString(RandomString(trackingAlphabet, trackingSuffixLen))
	return sb.String()
}

// RandomString draws n symbols uniformly from alphabet.
func RandomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		out[i] = alphabet[v.Int64()]
	}
	return string(out)
}
