package battle

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the randomness combat draws from: the hit roll, the damage
// variance and the AI's move choice. Tests substitute a scripted source.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand seeded with seed.
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeSeededRand returns a Rand seeded from the clock.
func NewTimeSeededRand() Rand {
	return NewRand(time.Now().UnixNano())
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
