package election

import (
	"math/rand"
	"time"
)

// probeBackoff implements spec.md §4.I's follower probe schedule: initial
// 5s, factor 1.5, cap 30s, plus up to 2s of jitter. A successful probe
// resets it.
type probeBackoff struct {
	interval time.Duration
}

const (
	probeInitialInterval = 5 * time.Second
	probeMaxInterval     = 30 * time.Second
	probeFactor          = 1.5
	probeMaxJitter       = 2 * time.Second
)

func newProbeBackoff() *probeBackoff {
	return &probeBackoff{interval: probeInitialInterval}
}

func (b *probeBackoff) reset() {
	b.interval = probeInitialInterval
}

func (b *probeBackoff) next() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(probeMaxJitter)))
	wait := b.interval + jitter

	b.interval = time.Duration(float64(b.interval) * probeFactor)
	if b.interval > probeMaxInterval {
		b.interval = probeMaxInterval
	}
	return wait
}
