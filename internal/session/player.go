package session

import "sync"

// Player is one connected participant. Outbound frames queue on a bounded
// channel drained by the connection's writer goroutine.
type Player struct {
	ID string

	mu      sync.Mutex
	send    chan []byte
	closed  bool
	evicted bool
}

// NewPlayer creates a player whose outbox holds up to buffer frames.
func NewPlayer(id string, buffer int) *Player {
	if buffer < 1 {
		buffer = 1
	}
	return &Player{ID: id, send: make(chan []byte, buffer)}
}

// Outbox is drained by the connection writer. It is closed by Close.
func (p *Player) Outbox() <-chan []byte {
	return p.send
}

// Deliver queues msg without blocking. It reports false when the outbox is
// full or already closed; the frame is dropped in both cases.
func (p *Player) Deliver(msg []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

// Close closes the outbox. Safe to call more than once.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

// Evict closes the outbox of a peer that fell too far behind. The
// connection handler drops evicted connections, which ends their battle.
// It reports false when the outbox was already closed.
func (p *Player) Evict() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.evicted = true
	p.closed = true
	close(p.send)
	return true
}

// Evicted reports whether Evict closed the outbox.
func (p *Player) Evicted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evicted
}
