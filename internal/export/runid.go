package export

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// RunIDs issues ULIDs that sort in generation order. Within one millisecond
// (or if the clock steps back) the previous ID is incremented instead of
// drawing new randomness.
type RunIDs struct {
	mu     sync.Mutex
	now    func() time.Time
	lastMS uint64
	last   [16]byte
}

func NewRunIDs(now func() time.Time) *RunIDs {
	if now == nil {
		now = time.Now
	}
	return &RunIDs{now: now}
}

// Next returns a 26-character Crockford base32 ULID.
func (g *RunIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := uint64(g.now().UnixMilli())
	var b [16]byte
	if ms <= g.lastMS {
		b = g.last
		increment(b[6:])
	} else {
		g.lastMS = ms
		b[0] = byte(ms >> 40)
		b[1] = byte(ms >> 32)
		b[2] = byte(ms >> 24)
		b[3] = byte(ms >> 16)
		b[4] = byte(ms >> 8)
		b[5] = byte(ms)
		rand.Read(b[6:])
	}
	g.last = b
	return encodeULID(b)
}

func increment(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])
	var out [26]byte
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
