// Package mrand provides cryptographically random identifiers, used for
// generating a server's replication id (replid).
package mrand

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/redikeep/redikeep/internal/merr"
	"github.com/redikeep/redikeep/internal/mctx"
)

// Hex returns a random hex-encoded string of length n. n must be even.
func Hex(n int) string {
	b := make([]byte, n/2)
	if _, err := rand.Read(b); err != nil {
		panic(merr.Wrap(err, mctx.Annotated("component", "mrand")))
	}
	return hex.EncodeToString(b)
}
