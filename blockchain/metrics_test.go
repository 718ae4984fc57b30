package blockchain

import (
	"testing"
	"time"

	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/events"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/require"
)

func TestBlockMetrics_CountsOutcomes(t *testing.T) {
	registry := metrics.NewRegistry()
	m := newBlockMetrics(registry)

	m.blockApplied(time.Now(), &blockResult{
		events: []eventbus.Event{
			&events.ReferendumApprovedEvent{},
			&events.ReferendumApprovedEvent{},
			&events.TransferEvent{},
		},
		applied: 2,
		failed:  1,
		weight:  100,
	})

	require.Equal(t, int64(1), registry.Get("chain.blocks").(metrics.Counter).Count())
	require.Equal(t, int64(2), registry.Get("chain.extrinsics.applied").(metrics.Counter).Count())
	require.Equal(t, int64(3), registry.Get("chain.events").(metrics.Counter).Count())
	require.Equal(t, int64(2), registry.Get("chain.events."+string(events.ReferendumApprovedEventID)).(metrics.Counter).Count())
	require.Zero(t, registry.Get("chain.events."+string(events.ReferendumRejectedEventID)).(metrics.Counter).Count())
	require.Nil(t, registry.Get("chain.events."+string(events.TransferEventID)))
	require.Equal(t, int64(100), registry.Get("chain.block.weight").(metrics.Gauge).Value())
}
