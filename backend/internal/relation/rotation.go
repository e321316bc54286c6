package relation

import (
	"math/rand/v2"
	"time"
)

// OrderPolicy selects how lists are ordered for presentation variety.
type OrderPolicy string

const (
	// OrderDayParity sorts by one key on even dates and another on odd dates.
	OrderDayParity OrderPolicy = "day_parity"
	// OrderShuffle permutes lists with a seed derived from the date.
	OrderShuffle OrderPolicy = "shuffle"
)

// Rotation decides the ordering state for the current day. Clock is injected
// so tests can pin the date.
type Rotation struct {
	Policy OrderPolicy
	Clock  func() time.Time
}

// NewRotation returns a rotation on the wall clock.
func NewRotation(policy OrderPolicy) Rotation {
	return Rotation{Policy: policy, Clock: time.Now}
}

func (r Rotation) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock()
}

// Seed is the date as yyyymmdd.
func (r Rotation) Seed() uint64 {
	t := r.now()
	return uint64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// Even reports whether today's yyyymmdd is even.
func (r Rotation) Even() bool {
	return r.Seed()%2 == 0
}

// shuffle permutes items deterministically for the current day.
func shuffle[T any](r Rotation, items []T) {
	rng := rand.New(rand.NewPCG(r.Seed(), 0x5eed))
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
