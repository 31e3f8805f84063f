// Package primitives defines the leaf value types shared by every other
// game package: EntityId, Position, Tick, ResourceMeter and ItemHandle.
// Every type here is a plain value: comparable, JSON-serializable, and
// free of pointers so it diffs and clones cheaply.
package primitives

import "fmt"

// EntityId tags an actor, prop, or ground item. Two values are reserved:
// Player always refers to the single player character, System always
// authors system actions.
type EntityId uint32

const (
	Player EntityId = 0
	System EntityId = ^EntityId(0) // 2^32 - 1
)

func (id EntityId) String() string {
	switch id {
	case Player:
		return "player"
	case System:
		return "system"
	default:
		return fmt.Sprintf("npc:%d", uint32(id))
	}
}

// Position is a tile coordinate. Arithmetic on Position never saturates:
// world bounds are enforced by pre_validate, not by the type.
type Position struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Add returns p shifted by (dx, dy).
func (p Position) Add(dx, dy int32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// ChebyshevDistance is the distance metric used by activation radius
// checks: max(|dx|, |dy|).
func (p Position) ChebyshevDistance(other Position) int64 {
	dx := int64(p.X) - int64(other.X)
	dy := int64(p.Y) - int64(other.Y)
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Tick is a monotonic discrete unit of in-world time.
type Tick uint64

// AddSaturating returns t+delta, clamped to the Tick maximum instead of
// wrapping.
func (t Tick) AddSaturating(delta uint64) Tick {
	sum := uint64(t) + delta
	if sum < uint64(t) { // overflow
		return Tick(^uint64(0))
	}
	return Tick(sum)
}

// ResourceMeter is a {current, maximum} pair with saturating arithmetic,
// used for HP, stamina, mana, and any other depletable stat.
type ResourceMeter struct {
	Current uint32 `json:"current"`
	Maximum uint32 `json:"maximum"`
}

// NewResourceMeter builds a meter at full capacity.
func NewResourceMeter(maximum uint32) ResourceMeter {
	return ResourceMeter{Current: maximum, Maximum: maximum}
}

// Sub subtracts amount, saturating at zero.
func (m ResourceMeter) Sub(amount uint32) ResourceMeter {
	if amount >= m.Current {
		m.Current = 0
		return m
	}
	m.Current -= amount
	return m
}

// Add adds amount, saturating at Maximum.
func (m ResourceMeter) Add(amount uint32) ResourceMeter {
	sum := uint64(m.Current) + uint64(amount)
	if sum > uint64(m.Maximum) {
		m.Current = m.Maximum
		return m
	}
	m.Current = uint32(sum)
	return m
}

// IsDepleted reports whether Current has reached zero.
func (m ResourceMeter) IsDepleted() bool { return m.Current == 0 }

// Percent returns current/maximum scaled to 0-100, saturating at 100 when
// Maximum is zero (treated as always-full to avoid division by zero).
func (m ResourceMeter) Percent() uint32 {
	if m.Maximum == 0 {
		return 100
	}
	return uint32(uint64(m.Current) * 100 / uint64(m.Maximum))
}

// ItemHandle is an opaque reference into the item oracle; it carries no
// semantics of its own beyond equality and lookup.
type ItemHandle uint32

// HealthBucket buckets a resource meter's percent into the five
// qualitative bands used by HealthThresholdCrossed.
type HealthBucket string

const (
	BucketFull     HealthBucket = "full"     // 100%
	BucketHealthy  HealthBucket = "healthy"  // 75-99%
	BucketWounded  HealthBucket = "wounded"  // 25-74%
	BucketCritical HealthBucket = "critical" // 1-24%
	BucketDead     HealthBucket = "dead"     // 0%
)

// Bucket classifies a resource meter's current percent.
func (m ResourceMeter) Bucket() HealthBucket {
	p := m.Percent()
	switch {
	case m.IsDepleted():
		return BucketDead
	case p >= 100:
		return BucketFull
	case p >= 75:
		return BucketHealthy
	case p >= 25:
		return BucketWounded
	default:
		return BucketCritical
	}
}
