package recognize

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sync"

	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// DefaultCacheSize bounds the number of remembered masks.
const DefaultCacheSize = 256

// Cached wraps an Engine and remembers its answer per mask, so the same
// reward screen seen on consecutive cycles is recognized only once.
type Cached struct {
	inner   Engine
	max     int
	mu      sync.Mutex
	entries map[[32]byte]reward.Hypothesis
}

// NewCached creates a cached engine holding at most max entries.
func NewCached(inner Engine, max int) *Cached {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cached{inner: inner, max: max, entries: make(map[[32]byte]reward.Hypothesis)}
}

// fingerprint hashes the mask size and pixels. The size is included so masks
// with equal pixel data but different shapes do not collide.
func fingerprint(crop Crop) [32]byte {
	h, _ := blake2b.New256(nil)
	b := crop.Mask.Bounds()
	binary.Write(h, binary.LittleEndian, int64(b.Dx()))
	binary.Write(h, binary.LittleEndian, int64(b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := y * crop.Mask.Stride
		h.Write(crop.Mask.Pix[off : off+b.Dx()])
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func (c *Cached) Recognize(ctx context.Context, crop Crop) (reward.Hypothesis, error) {
	key := fingerprint(crop)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		log.Debug().Str("hash", hex.EncodeToString(key[:8])).Int("slot", crop.Slot).Msg("recognition cache hit")
		cached.Slot = crop.Slot
		return cached, nil
	}

	h, err := c.inner.Recognize(ctx, crop)
	if err != nil {
		return h, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.max {
		c.entries = make(map[[32]byte]reward.Hypothesis)
	}
	c.entries[key] = h
	c.mu.Unlock()
	return h, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
