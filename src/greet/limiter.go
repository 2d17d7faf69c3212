package greet

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// peerLimiter applies a token bucket per peer and periodically evicts idle
// peers. A nil peerLimiter allows everything.
type peerLimiter struct {
	sync.Mutex
	limit   rate.Limit
	burst   int
	byPeer  map[string]*peerEntry
	hits    uint64
	idleTTL time.Duration
}

type peerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newPeerLimiter(perSecond float64, burst int) *peerLimiter {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	return &peerLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		byPeer:  make(map[string]*peerEntry),
		idleTTL: 10 * time.Minute,
	}
}

func (l *peerLimiter) allow(peer string, now time.Time) bool {
	if l == nil || peer == "" {
		return true
	}

	l.Lock()
	defer l.Unlock()

	e, ok := l.byPeer[peer]
	if !ok {
		e = &peerEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byPeer[peer] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byPeer {
			if v.lastSeen.Before(cutoff) {
				delete(l.byPeer, k)
			}
		}
	}
	return allowed
}
