package motion

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzauk/sixarm/pkg/domain"
)

func uniform(v uint16) domain.Pose {
	var p domain.Pose
	for i := range p {
		p[i] = v
	}
	return p
}

func TestSmootherConverges(t *testing.T) {
	rng := domain.DefaultPulseRange()
	s := NewSmoother(rng, DefaultDeadzone)

	cases := []struct {
		start, target uint16
	}{
		{600, 2400},
		{2400, 600},
		{1500, 1500},
		{1500, 1510},
		{700, 713},
		{2399, 601},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d to %d", tc.start, tc.target), func(t *testing.T) {
			current := uniform(tc.start)
			target := uniform(tc.target)

			maxDiff := int(tc.target) - int(tc.start)
			if maxDiff < 0 {
				maxDiff = -maxDiff
			}

			prevGap := maxDiff
			settled := false
			for tick := 0; tick <= maxDiff+10; tick++ {
				var done bool
				current, done = s.Advance(current, target)

				for i := range current {
					assert.GreaterOrEqual(t, current[i], rng.Min)
					assert.LessOrEqual(t, current[i], rng.Max)
				}

				gap := int(target[0]) - int(current[0])
				if gap < 0 {
					gap = -gap
				}
				assert.LessOrEqual(t, gap, prevGap, "gap must never grow")
				prevGap = gap

				if done {
					settled = true
					break
				}
			}

			require.True(t, settled, "should settle within %d ticks", maxDiff+10)
			assert.True(t, current.Within(target, DefaultDeadzone))
		})
	}
}

func TestSmootherSettledIsFixedPoint(t *testing.T) {
	s := NewSmoother(domain.DefaultPulseRange(), DefaultDeadzone)

	current := uniform(1200)
	target := uniform(1205)

	next, done := s.Advance(current, target)
	assert.True(t, done)
	assert.Equal(t, current, next, "channels inside the deadzone stay put")

	again, done := s.Advance(next, target)
	assert.True(t, done)
	assert.Equal(t, next, again)
}

func TestSmootherStepSizing(t *testing.T) {
	s := NewSmoother(domain.DefaultPulseRange(), DefaultDeadzone)

	cases := []struct {
		name          string
		start, target uint16
		want          uint16
	}{
		{"large diff capped at max step", 600, 2400, 615},
		{"large negative diff capped", 2400, 600, 2385},
		{"eighth of remaining distance", 1000, 1072, 1009},
		{"small diff floors to one unit", 1000, 1009, 1001},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, _ := s.Advance(uniform(tc.start), uniform(tc.target))
			assert.Equal(t, tc.want, next[0])
		})
	}
}

func TestSmootherZeroDeadzoneReachesExactTarget(t *testing.T) {
	s := NewSmoother(domain.DefaultPulseRange(), 0)

	current := uniform(1000)
	target := uniform(1003)

	settled := false
	for tick := 0; tick < 10; tick++ {
		var done bool
		current, done = s.Advance(current, target)
		if done {
			settled = true
			break
		}
	}

	require.True(t, settled)
	assert.Equal(t, target, current)
}

func TestSmootherMixedChannels(t *testing.T) {
	s := NewSmoother(domain.DefaultPulseRange(), DefaultDeadzone)

	current := domain.Pose{600, 2400, 1500, 1500, 1000, 2000}
	target := domain.Pose{2400, 600, 1500, 1505, 1100, 1900}

	for tick := 0; tick < 2000; tick++ {
		var done bool
		current, done = s.Advance(current, target)
		if done {
			break
		}
	}

	assert.True(t, current.Within(target, DefaultDeadzone))
	assert.Equal(t, uint16(1500), current[2], "settled channel untouched")
	assert.Equal(t, uint16(1500), current[3], "in-deadzone channel untouched")
}
