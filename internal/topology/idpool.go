package topology

import (
	"crypto/rand"
	"encoding/binary"
)

// IdPoolMax is the bounded ring capacity for recently observed message ids.
const IdPoolMax = 2000

// idPool is the sole loop-suppression mechanism: a bounded ring of the
// most recently observed 64-bit message ids. Membership test is linear
// scan; the pool is small enough that this stays bounded-time in
// practice without needing a fancier structure.
type idPool struct {
	ids  [IdPoolMax]uint64
	size int
	next int
}

func newIdPool() *idPool {
	return &idPool{}
}

// has reports whether id has been observed recently.
func (p *idPool) has(id uint64) bool {
	for i := 0; i < p.size; i++ {
		if p.ids[i] == id {
			return true
		}
	}
	return false
}

// store inserts id, overwriting the oldest entry once the ring is full.
func (p *idPool) store(id uint64) {
	p.ids[p.next] = id
	p.next = (p.next + 1) % IdPoolMax
	if p.size < IdPoolMax {
		p.size++
	}
}

// newId draws a fresh 64-bit id from the platform's non-blocking
// cryptographic RNG. Random-id generation must not depend on a blocking
// entropy source that can stall the single dispatcher thread; on read
// failure this reports failure and the caller falls back to id=0. No
// warning is logged for the fallback.
func newId() (uint64, bool) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, false
	}
	return binary.BigEndian.Uint64(buf[:]), true
}
