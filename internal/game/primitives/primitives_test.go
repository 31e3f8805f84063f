package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityIDString(t *testing.T) {
	assert.Equal(t, "player", Player.String())
	assert.Equal(t, "system", System.String())
	assert.Equal(t, "npc:7", EntityId(7).String())
}

func TestPositionAdd(t *testing.T) {
	p := Position{X: 1, Y: 2}
	assert.Equal(t, Position{X: 2, Y: 2}, p.Add(1, 0))
	assert.Equal(t, Position{X: 1, Y: 1}, p.Add(0, -1))
}

func TestPositionChebyshevDistance(t *testing.T) {
	a := Position{X: 0, Y: 0}
	b := Position{X: 3, Y: 5}
	assert.Equal(t, int64(5), a.ChebyshevDistance(b))
	assert.Equal(t, int64(5), b.ChebyshevDistance(a))
	assert.Equal(t, int64(0), a.ChebyshevDistance(a))
}

func TestTickAddSaturating(t *testing.T) {
	t.Run("normal add", func(t *testing.T) {
		assert.Equal(t, Tick(150), Tick(100).AddSaturating(50))
	})
	t.Run("saturates at max", func(t *testing.T) {
		max := Tick(^uint64(0))
		assert.Equal(t, max, max.AddSaturating(1))
	})
}

func TestResourceMeterSub(t *testing.T) {
	m := NewResourceMeter(100)
	m = m.Sub(30)
	assert.Equal(t, uint32(70), m.Current)

	t.Run("saturates at zero", func(t *testing.T) {
		m := NewResourceMeter(10)
		m = m.Sub(50)
		assert.Equal(t, uint32(0), m.Current)
		assert.True(t, m.IsDepleted())
	})
}

func TestResourceMeterAdd(t *testing.T) {
	m := ResourceMeter{Current: 90, Maximum: 100}
	m = m.Add(5)
	assert.Equal(t, uint32(95), m.Current)

	t.Run("saturates at maximum", func(t *testing.T) {
		m := ResourceMeter{Current: 90, Maximum: 100}
		m = m.Add(50)
		assert.Equal(t, uint32(100), m.Current)
	})
}

func TestResourceMeterPercent(t *testing.T) {
	assert.Equal(t, uint32(100), ResourceMeter{}.Percent())
	assert.Equal(t, uint32(50), ResourceMeter{Current: 50, Maximum: 100}.Percent())
}

func TestResourceMeterBucket(t *testing.T) {
	cases := []struct {
		current, maximum uint32
		want             HealthBucket
	}{
		{100, 100, BucketFull},
		{80, 100, BucketHealthy},
		{50, 100, BucketWounded},
		{10, 100, BucketCritical},
		{0, 100, BucketDead},
	}
	for _, c := range cases {
		m := ResourceMeter{Current: c.current, Maximum: c.maximum}
		assert.Equal(t, c.want, m.Bucket(), "current=%d maximum=%d", c.current, c.maximum)
	}
}
