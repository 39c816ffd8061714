package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a ULID string, used for payment references.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}

// NewToken returns an unguessable download token: a ULID whose random part
// comes straight from crypto/rand.
func NewToken() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
