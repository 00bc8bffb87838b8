// Package id generates the ULIDs used for fill-journal records and API
// request nonces. ULIDs are time-sortable, so the journal's natural order
// follows execution order without a separate sequence column, and every
// nonce is unique across restarts.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// newGenerator seeds a monotonic entropy source from crypto/rand so IDs
// are unpredictable while staying lexicographically increasing within a
// millisecond.
func newGenerator() *generator {
	var seed int64
	if err := binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed); err != nil || seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

var defaultGen = newGenerator()

func (g *generator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}

// New returns a fresh ULID string.
func New() string { return defaultGen.next() }
