package mrcpv2

import (
	"time"

	"github.com/unimrcp-go/core/internal/collections"
)

// DefaultPendingChannelTTL bounds how long a channel may sit in the
// pending/"null" connection (offered but not yet associated with a real
// TCP connection) before it is evicted. spec.md describes the
// offer-creates-a-pending-channel mechanism but is silent on a cleanup
// policy for a client that never opens the expected connection; this is
// the supplemental hardening internal/collections.TTLStore exists for (see
// DESIGN.md).
const DefaultPendingChannelTTL = 30 * time.Second

// pendingTracker bounds the lifetime of channels sitting in the agent's
// pending connection. It does not own channel storage — Connection's own
// channels map remains the source of truth — it only arranges for a
// channel identifier to be evicted (and the agent notified) if
// association never happens.
type pendingTracker struct {
	store *collections.TTLStore[string, *Channel]
}

func newPendingTracker(sweepInterval time.Duration, onExpire func(ch *Channel)) *pendingTracker {
	if sweepInterval <= 0 {
		sweepInterval = DefaultPendingChannelTTL / 2
	}
	return &pendingTracker{
		store: collections.NewWithEvict(sweepInterval, func(_ string, ch *Channel) {
			onExpire(ch)
		}),
	}
}

func (p *pendingTracker) track(ch *Channel, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultPendingChannelTTL
	}
	p.store.Set(ch.Identifier, ch, ttl)
}

func (p *pendingTracker) cancel(identifier string) {
	p.store.Delete(identifier)
}

func (p *pendingTracker) close() {
	p.store.Close()
}
