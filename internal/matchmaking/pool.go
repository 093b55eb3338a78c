package matchmaking

import (
	"time"

	"github.com/cheildo/pong-lobby/internal/protocol"
)

// WaitingPlayer is one queue entry. It is owned by the Queue actor.
type WaitingPlayer struct {
	ID       string
	Nickname string
	GroupTag string
	Peer     protocol.Notifier
	JoinedAt time.Time
}

// Pool is the ordered set of waiting players. Order is insertion order;
// removals keep the relative order of the rest.
type Pool interface {
	// Add appends p unless its ID is already present, and reports whether it did.
	Add(p *WaitingPlayer) bool
	Get(playerID string) (*WaitingPlayer, bool)
	Remove(playerID string) (*WaitingPlayer, bool)
	// PopPair removes and returns the two longest-waiting players.
	PopPair() (first, second *WaitingPlayer, ok bool)
	Len() int
	Each(fn func(p *WaitingPlayer))
}

type memoryPool struct {
	players []*WaitingPlayer
	byID    map[string]*WaitingPlayer
}

// NewPool returns an in-memory pool. It is not safe for concurrent use; the
// Queue actor is its only caller.
func NewPool() Pool {
	return &memoryPool{byID: make(map[string]*WaitingPlayer)}
}

func (p *memoryPool) Add(w *WaitingPlayer) bool {
	if _, ok := p.byID[w.ID]; ok {
		return false
	}
	p.players = append(p.players, w)
	p.byID[w.ID] = w
	return true
}

func (p *memoryPool) Get(playerID string) (*WaitingPlayer, bool) {
	w, ok := p.byID[playerID]
	return w, ok
}

func (p *memoryPool) Remove(playerID string) (*WaitingPlayer, bool) {
	w, ok := p.byID[playerID]
	if !ok {
		return nil, false
	}
	delete(p.byID, playerID)
	for i, cur := range p.players {
		if cur == w {
			copy(p.players[i:], p.players[i+1:])
			p.players[len(p.players)-1] = nil
			p.players = p.players[:len(p.players)-1]
			break
		}
	}
	return w, true
}

func (p *memoryPool) PopPair() (*WaitingPlayer, *WaitingPlayer, bool) {
	if len(p.players) < 2 {
		return nil, nil, false
	}
	first, second := p.players[0], p.players[1]
	p.players[0], p.players[1] = nil, nil
	p.players = p.players[2:]
	delete(p.byID, first.ID)
	delete(p.byID, second.ID)
	return first, second, true
}

func (p *memoryPool) Len() int { return len(p.players) }

func (p *memoryPool) Each(fn func(*WaitingPlayer)) {
	for _, w := range p.players {
		fn(w)
	}
}
