package scheduler

import (
	"testing"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/callstore"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
)

type testExecutor struct {
	s       *state.StateDB
	weight  types.Weight
	fail    map[byte]bool
	origins []types.Origin
}

func (e *testExecutor) Dispatch(origin types.Origin, call []byte) error {
	e.s.Set([]byte{0xAA, call[0]}, call)
	if e.fail[call[0]] {
		return errors.New("call failed")
	}
	e.origins = append(e.origins, origin)
	return nil
}

func (e *testExecutor) CallWeight(call []byte) (types.Weight, error) {
	return e.weight, nil
}

func newTestScheduler(t *testing.T, maxPerBlock uint32) (*Scheduler, *state.StateDB, *callstore.Store) {
	s, err := state.NewLazy(dbm.NewMemDB())
	require.NoError(t, err)
	calls := callstore.New(s, &config.CommunitiesConfig{MaxCallLen: 64, MaxInlineCallLen: 4})
	return New(s, calls, &config.SchedulerConfig{MaxScheduledPerBlock: maxPerBlock, MaxRetries: 2}), s, calls
}

func bind(t *testing.T, calls *callstore.Store, data ...byte) types.BoundedCall {
	call, err := calls.Bind(data)
	require.NoError(t, err)
	return call
}

func TestScheduler_AgendaCapacity(t *testing.T) {
	sched, _, calls := newTestScheduler(t, 2)
	origin := types.RootOrigin()
	_, err := sched.Schedule(5, origin, bind(t, calls, 1))
	require.NoError(t, err)
	idx, err := sched.Schedule(5, origin, bind(t, calls, 2))
	require.NoError(t, err)
	require.Equal(t, uint32(1), idx)
	_, err = sched.Schedule(5, origin, bind(t, calls, 3))
	require.Equal(t, ErrAgendaFull, err)
	require.Len(t, sched.Agenda(5), 2)
}

func TestScheduler_ServiceAgendaIsolatesFailures(t *testing.T) {
	sched, s, calls := newTestScheduler(t, 10)
	community := types.CommunityOrigin(types.RawOrigin{Community: 1, BodyPart: types.Voice()})
	signed := types.SignedOrigin(common.AccountId{0x9})
	_, err := sched.Schedule(3, community, bind(t, calls, 1))
	require.NoError(t, err)
	_, err = sched.Schedule(3, signed, bind(t, calls, 2, 2, 2, 2, 2, 2))
	require.NoError(t, err)
	s.TakeEvents()

	executor := &testExecutor{s: s, weight: 10, fail: map[byte]bool{2: true}}
	used := sched.ServiceAgenda(3, 100, executor)
	require.Equal(t, types.Weight(20), used)
	require.Equal(t, []types.Origin{community}, executor.origins)
	require.NotNil(t, s.Get([]byte{0xAA, 1}))
	require.Nil(t, s.Get([]byte{0xAA, 2}))
	require.Empty(t, sched.Agenda(3))

	evs := s.TakeEvents()
	require.Len(t, evs, 2)
	require.Equal(t, events.DispatchedEventID, evs[0].EventID())
	require.Equal(t, events.DispatchFailedEventID, evs[1].EventID())
}

func TestScheduler_PostponesOverBudget(t *testing.T) {
	sched, s, calls := newTestScheduler(t, 10)
	origin := types.RootOrigin()
	_, err := sched.Schedule(1, origin, bind(t, calls, 1))
	require.NoError(t, err)
	_, err = sched.Schedule(1, origin, bind(t, calls, 2))
	require.NoError(t, err)

	executor := &testExecutor{s: s, weight: 60}
	require.Equal(t, types.Weight(60), sched.ServiceAgenda(1, 100, executor))
	postponed := sched.Agenda(2)
	require.Len(t, postponed, 1)
	require.Equal(t, uint32(1), postponed[0].Retries)

	require.Equal(t, types.Weight(60), sched.ServiceAgenda(2, 100, executor))
	require.Len(t, executor.origins, 2)
}

func TestCalculateRetryBlock(t *testing.T) {
	require.Equal(t, uint64(11), calculateRetryBlock(10, 1))
	require.Equal(t, uint64(12), calculateRetryBlock(10, 2))
	require.Equal(t, uint64(14), calculateRetryBlock(10, 3))
	require.Equal(t, uint64(18), calculateRetryBlock(10, 7))
}
