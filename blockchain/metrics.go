package blockchain

import (
	"time"

	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/events"
	"github.com/rcrowley/go-metrics"
)

// governance outcomes counted per block, keyed by event id
var trackedEvents = []eventbus.EventID{
	events.ReferendumApprovedEventID,
	events.ReferendumRejectedEventID,
	events.ReferendumTimedOutEventID,
	events.ReferendumCancelledEventID,
	events.ReferendumKilledEventID,
	events.DispatchedEventID,
	events.DispatchFailedEventID,
	events.TaskPostponedEventID,
}

type blockMetrics struct {
	blocks     metrics.Counter
	applied    metrics.Counter
	failed     metrics.Counter
	excluded   metrics.Counter
	events     metrics.Counter
	outcomes   map[eventbus.EventID]metrics.Counter
	usedWeight metrics.Gauge
	blockTime  metrics.Timer
}

func newBlockMetrics(registry metrics.Registry) *blockMetrics {
	outcomes := make(map[eventbus.EventID]metrics.Counter, len(trackedEvents))
	for _, id := range trackedEvents {
		outcomes[id] = metrics.GetOrRegisterCounter("chain.events."+string(id), registry)
	}
	return &blockMetrics{
		blocks:     metrics.GetOrRegisterCounter("chain.blocks", registry),
		applied:    metrics.GetOrRegisterCounter("chain.extrinsics.applied", registry),
		failed:     metrics.GetOrRegisterCounter("chain.extrinsics.failed", registry),
		excluded:   metrics.GetOrRegisterCounter("chain.extrinsics.excluded", registry),
		events:     metrics.GetOrRegisterCounter("chain.events", registry),
		outcomes:   outcomes,
		usedWeight: metrics.GetOrRegisterGauge("chain.block.weight", registry),
		blockTime:  metrics.GetOrRegisterTimer("chain.block.time", registry),
	}
}

func (m *blockMetrics) blockApplied(started time.Time, result *blockResult) {
	m.blocks.Inc(1)
	m.applied.Inc(int64(result.applied))
	m.failed.Inc(int64(result.failed))
	m.excluded.Inc(int64(result.excluded))
	m.events.Inc(int64(len(result.events)))
	for _, e := range result.events {
		if counter, ok := m.outcomes[e.EventID()]; ok {
			counter.Inc(1)
		}
	}
	m.usedWeight.Update(int64(result.weight))
	m.blockTime.UpdateSince(started)
}
