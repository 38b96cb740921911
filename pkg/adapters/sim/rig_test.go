package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzauk/sixarm/pkg/adapters/sim"
	"github.com/buzzauk/sixarm/pkg/domain"
)

func TestRigStartsCentered(t *testing.T) {
	rng := domain.DefaultPulseRange()
	rig := sim.New(rng)

	pots, err := rig.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Mid(rng), pots)
}

func TestPotsClampIntoRange(t *testing.T) {
	rig := sim.New(domain.DefaultPulseRange())

	rig.SetPot(0, 100)
	rig.SetPot(1, 9000)
	rig.NudgePot(2, -5000)
	rig.NudgePot(3, 5000)

	pots := rig.Pots()
	assert.Equal(t, uint16(600), pots[0])
	assert.Equal(t, uint16(2400), pots[1])
	assert.Equal(t, uint16(600), pots[2])
	assert.Equal(t, uint16(2400), pots[3])
}

func TestTapPressesThenReleases(t *testing.T) {
	rig := sim.New(domain.DefaultPulseRange())
	ctx := context.Background()

	rig.Tap(sim.ButtonRecord, 20*time.Millisecond)

	lv, err := rig.Levels(ctx)
	require.NoError(t, err)
	assert.True(t, lv.Record)

	assert.Eventually(t, func() bool {
		lv, err := rig.Levels(ctx)
		return err == nil && !lv.Record
	}, time.Second, 5*time.Millisecond)
}

func TestOfflineFailsEveryPort(t *testing.T) {
	rig := sim.New(domain.DefaultPulseRange())
	ctx := context.Background()

	rig.SetOffline(true)

	assert.ErrorIs(t, rig.Apply(ctx, domain.Pose{}), sim.ErrOffline)
	_, err := rig.Sample(ctx)
	assert.ErrorIs(t, err, sim.ErrOffline)
	_, err = rig.Levels(ctx)
	assert.ErrorIs(t, err, sim.ErrOffline)
	assert.ErrorIs(t, rig.Set(ctx, domain.ColorRed), sim.ErrOffline)

	rig.SetOffline(false)
	assert.NoError(t, rig.Apply(ctx, domain.Mid(domain.DefaultPulseRange())))
}
