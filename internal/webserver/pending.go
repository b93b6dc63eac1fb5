package webserver

import (
	"sync"
	"time"
)

// pendingLink is the transient context of one authorization attempt. It is
// created on /start, keyed by the state token, and consumed exactly once
// by the matching callback.
type pendingLink struct {
	ProjectID    string
	Provider     string
	OwnerID      string
	RedirectURI  string
	CodeVerifier string
	Nonce        string
	CreatedAt    time.Time
}

// pendingStore holds in-flight authorization attempts. Entries expire
// after the TTL; abandoned attempts are pruned on insert.
type pendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]pendingLink
}

func newPendingStore(ttl time.Duration) *pendingStore {
	return &pendingStore{
		ttl:     ttl,
		entries: make(map[string]pendingLink),
	}
}

func (p *pendingStore) add(state string, link pendingLink) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for key, entry := range p.entries {
		if now.Sub(entry.CreatedAt) > p.ttl {
			delete(p.entries, key)
		}
	}

	link.CreatedAt = now
	p.entries[state] = link
}

// consume removes and returns the entry for a state token. A state is
// valid at most once; replays and expired entries both miss.
func (p *pendingStore) consume(state string) (pendingLink, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	link, ok := p.entries[state]
	if !ok {
		return pendingLink{}, false
	}
	delete(p.entries, state)

	if time.Since(link.CreatedAt) > p.ttl {
		return pendingLink{}, false
	}
	return link, true
}
