package referenda

import (
	"math/big"
	"testing"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/common/math"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/events"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
)

type testHooks struct {
	maxAyes     int64
	requirement bool
	fail        bool
	concluded   map[types.PollIndex]ReferendumInfo
}

func (h *testHooks) MaxAyes(class types.CommunityId) *big.Int {
	return big.NewInt(h.maxAyes)
}

func (h *testHooks) MeetsRequirement(class types.CommunityId, tally Tally) bool {
	return h.requirement
}

func (h *testHooks) OnConcluded(index types.PollIndex, info ReferendumInfo) error {
	h.concluded[index] = info
	if h.fail {
		return errors.New("dispatch failed")
	}
	return nil
}

func linear(ceil, floor string) config.CurveConfig {
	return config.CurveConfig{Kind: config.LinearDecreasing, Length: d("1"), Ceil: d(ceil), Floor: d(floor)}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testTrack(id uint16, maxDeciding uint32, decision, timeout uint64) config.TrackConfig {
	return config.TrackConfig{
		Id:                id,
		Name:              "test",
		MaxDeciding:       maxDeciding,
		PreparePeriod:     1,
		DecisionPeriod:    decision,
		ConfirmPeriod:     2,
		UndecidingTimeout: timeout,
		MinApproval:       linear("1", "0.500000001"),
		MinSupport:        linear("0.5", "0"),
	}
}

func newTestReferenda(t *testing.T, tracks ...config.TrackConfig) (*Referenda, *testHooks, *state.StateDB) {
	s, err := state.NewLazy(dbm.NewMemDB())
	require.NoError(t, err)
	r, err := New(s, &config.ReferendaConfig{Tracks: tracks})
	require.NoError(t, err)
	hooks := &testHooks{maxAyes: 5, requirement: true, concluded: map[types.PollIndex]ReferendumInfo{}}
	r.SetHooks(hooks)
	return r, hooks, s
}

func account(b byte) common.AccountId {
	return common.AccountId{b}
}

func aye(w uint64) Vote {
	return Vote{Aye: true, Weight: types.BalanceFromUint64(w)}
}

func nay(w uint64) Vote {
	return Vote{Aye: false, Weight: types.BalanceFromUint64(w)}
}

func eventIDs(evs []eventbus.Event) []eventbus.EventID {
	var ids []eventbus.EventID
	for _, e := range evs {
		ids = append(ids, e.EventID())
	}
	return ids
}

func TestCurves(t *testing.T) {
	lin := LinearDecreasing{Length: d("1"), Ceil: d("1"), Floor: d("0.5")}
	require.True(t, d("0.75").Equal(lin.Threshold(d("0.5"))))
	require.True(t, d("0.5").Equal(lin.Threshold(d("1"))))
	require.True(t, ThresholdAt(lin, d("0.5")).RationalAtLeast(big.NewInt(3), big.NewInt(4)))
	require.False(t, ThresholdAt(lin, d("0.5")).RationalAtLeast(big.NewInt(74), big.NewInt(100)))

	stepped := SteppedDecreasing{Begin: d("1"), End: d("0.500000001"), Step: d("0.1"), Period: d("0.1")}
	require.True(t, d("1").Equal(stepped.Threshold(d("0.05"))))
	require.True(t, d("0.6").Equal(stepped.Threshold(d("0.4"))))
	require.True(t, d("0.500000001").Equal(stepped.Threshold(d("1"))))
	require.True(t, ThresholdAt(stepped, d("0.4")).RationalAtLeast(big.NewInt(4), big.NewInt(6)))
	require.False(t, ThresholdAt(stepped, d("1")).RationalAtLeast(big.NewInt(3), big.NewInt(6)))

	reciprocal := Reciprocal{Factor: d("0.222222224"), XOffset: d("0.333333335"), YOffset: d("0.333333332")}
	start := ThresholdAt(reciprocal, decimal.Zero).Decimal()
	end := ThresholdAt(reciprocal, d("1")).Decimal()
	require.True(t, start.GreaterThan(d("0.99")))
	require.True(t, end.GreaterThan(d("0.49")) && end.LessThan(d("0.51")))

	require.Equal(t, ThresholdAt(lin, d("1")), ThresholdAt(lin, d("7")))
}

func TestThresholdAt_RatioOnCurveSatisfies(t *testing.T) {
	// 1/(1+2) has no exact decimal form
	third := Reciprocal{Factor: d("1"), XOffset: d("2"), YOffset: decimal.Zero}
	require.Equal(t, math.Perbill(333_333_333), ThresholdAt(third, d("1")))
	require.True(t, ThresholdAt(third, d("1")).RationalAtLeast(big.NewInt(1), big.NewInt(3)))
	require.True(t, ThresholdAt(third, d("1")).RationalAtLeast(big.NewInt(2), big.NewInt(6)))
	require.False(t, ThresholdAt(third, d("1")).RationalAtLeast(big.NewInt(33), big.NewInt(100)))
}

func TestTrack_Elapsed(t *testing.T) {
	track, err := NewTrack(testTrack(1, 1, 20, 40))
	require.NoError(t, err)
	require.True(t, decimal.Zero.Equal(track.Elapsed(10, 10)))
	require.True(t, d("0.25").Equal(track.Elapsed(10, 15)))
	require.True(t, d("1").Equal(track.Elapsed(10, 100)))

	_, err = NewTrack(config.TrackConfig{Id: 9, MinApproval: config.CurveConfig{Kind: "unknown"}})
	require.Error(t, err)
}

func TestReferenda_SubmitAndVote(t *testing.T) {
	r, _, _ := newTestReferenda(t, testTrack(1, 1, 20, 40))

	_, err := r.Submit(7, 5, 0, 1)
	require.Equal(t, ErrUnknownTrack, err)

	index, err := r.Submit(7, 1, 0, 1)
	require.NoError(t, err)
	require.Equal(t, types.PollIndex(0), index)
	next, err := r.Submit(7, 1, 1, 1)
	require.NoError(t, err)
	require.Equal(t, types.PollIndex(1), next)

	_, _, err = r.Vote(account(1), 99, aye(1))
	require.Equal(t, ErrUnknownPoll, err)

	_, replaced, err := r.Vote(account(1), index, aye(3))
	require.NoError(t, err)
	require.False(t, replaced)
	prev, replaced, err := r.Vote(account(1), index, nay(2))
	require.NoError(t, err)
	require.True(t, replaced)
	require.True(t, prev.Aye)

	tally := r.TallyOf(index)
	require.Equal(t, 0, tally.Ayes.Big().Sign())
	require.Equal(t, uint64(2), tally.Nays.Big().Uint64())
	require.Equal(t, uint32(0), tally.BareAyes)
	require.Equal(t, uint32(1), tally.Voters)

	vote, ok := r.VoteOf(account(1), index)
	require.True(t, ok)
	require.False(t, vote.Aye)
}

func TestReferenda_ApprovedAfterConfirmation(t *testing.T) {
	r, hooks, s := newTestReferenda(t, testTrack(1, 1, 20, 40))
	index, err := r.Submit(3, 1, 0, 1)
	require.NoError(t, err)
	for i := byte(1); i <= 3; i++ {
		_, _, err := r.Vote(account(i), index, aye(1))
		require.NoError(t, err)
	}
	s.TakeEvents()

	r.Nudge(1)
	info, _ := r.Info(index)
	require.False(t, info.Deciding)

	r.Nudge(2)
	info, _ = r.Info(index)
	require.True(t, info.Deciding)
	require.True(t, info.Confirming)
	require.Equal(t, uint32(1), r.DecidingCount(1))
	require.True(t, r.IsPassing(index, 2))

	r.Nudge(3)
	info, _ = r.Info(index)
	require.True(t, info.IsOngoing())

	r.Nudge(4)
	info, _ = r.Info(index)
	require.Equal(t, StatusApproved, info.Status)
	require.Equal(t, uint64(4), info.Concluded)
	require.Equal(t, uint32(0), r.DecidingCount(1))
	require.Equal(t, StatusApproved, hooks.concluded[index].Status)

	require.Equal(t, []eventbus.EventID{
		events.DecisionStartedEventID,
		events.ConfirmStartedEventID,
		events.ReferendumApprovedEventID,
	}, eventIDs(s.TakeEvents()))

	_, _, err = r.Vote(account(4), index, aye(1))
	require.Equal(t, ErrPollNotOngoing, err)
}

func TestReferenda_RejectedAtDecisionEnd(t *testing.T) {
	r, hooks, _ := newTestReferenda(t, testTrack(1, 1, 20, 40))
	hooks.requirement = false
	index, err := r.Submit(3, 1, 0, 1)
	require.NoError(t, err)
	_, _, err = r.Vote(account(1), index, aye(2))
	require.NoError(t, err)

	r.Nudge(2)
	r.Nudge(21)
	info, _ := r.Info(index)
	require.True(t, info.IsOngoing())
	require.False(t, info.Confirming)

	r.Nudge(22)
	info, _ = r.Info(index)
	require.Equal(t, StatusRejected, info.Status)
	require.False(t, info.DispatchFailed)
}

func TestReferenda_ConfirmAborted(t *testing.T) {
	r, _, s := newTestReferenda(t, testTrack(1, 1, 20, 40))
	index, err := r.Submit(3, 1, 0, 1)
	require.NoError(t, err)
	_, _, err = r.Vote(account(1), index, aye(3))
	require.NoError(t, err)
	r.Nudge(2)
	info, _ := r.Info(index)
	require.True(t, info.Confirming)

	_, _, err = r.Vote(account(2), index, nay(5))
	require.NoError(t, err)
	s.TakeEvents()
	r.Nudge(3)
	info, _ = r.Info(index)
	require.True(t, info.IsOngoing())
	require.False(t, info.Confirming)
	require.Equal(t, []eventbus.EventID{events.ConfirmAbortedEventID}, eventIDs(s.TakeEvents()))
}

func TestReferenda_MaxDecidingAndTimeout(t *testing.T) {
	r, hooks, _ := newTestReferenda(t, testTrack(1, 1, 100, 10))
	hooks.requirement = false
	first, err := r.Submit(3, 1, 0, 1)
	require.NoError(t, err)
	second, err := r.Submit(3, 1, 1, 1)
	require.NoError(t, err)

	r.Nudge(2)
	info, _ := r.Info(first)
	require.True(t, info.Deciding)
	info, _ = r.Info(second)
	require.False(t, info.Deciding)
	require.Equal(t, uint32(1), r.DecidingCount(1))

	r.Nudge(11)
	info, _ = r.Info(second)
	require.Equal(t, StatusTimedOut, info.Status)
	info, _ = r.Info(first)
	require.True(t, info.IsOngoing())
	require.Equal(t, uint32(1), r.DecidingCount(1))
}

func TestReferenda_ApproveWithFailingDispatch(t *testing.T) {
	r, hooks, _ := newTestReferenda(t, testTrack(1, 1, 20, 40))
	hooks.fail = true
	index, err := r.Submit(3, 1, 0, 1)
	require.NoError(t, err)

	require.Error(t, r.Approve(index, 1))
	info, _ := r.Info(index)
	require.Equal(t, StatusRejected, info.Status)
	require.True(t, info.DispatchFailed)
	require.Equal(t, ErrPollNotOngoing, r.Approve(index, 2))
}

func TestReferenda_CancelKillAndRemoveVote(t *testing.T) {
	r, _, _ := newTestReferenda(t, testTrack(1, 1, 20, 40))
	cancelled, err := r.Submit(3, 1, 0, 1)
	require.NoError(t, err)
	killed, err := r.Submit(3, 1, 1, 1)
	require.NoError(t, err)
	_, _, err = r.Vote(account(1), cancelled, aye(4))
	require.NoError(t, err)

	r.Nudge(2)
	require.NoError(t, r.Cancel(cancelled, 3))
	require.Equal(t, uint32(0), r.DecidingCount(1))

	prev, existed, err := r.RemoveVote(account(1), cancelled)
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, uint64(4), prev.Weight.Big().Uint64())
	require.Equal(t, uint64(4), r.TallyOf(cancelled).Ayes.Big().Uint64())
	_, ok := r.VoteOf(account(1), cancelled)
	require.False(t, ok)

	_, existed, err = r.RemoveVote(account(1), cancelled)
	require.NoError(t, err)
	require.False(t, existed)

	require.NoError(t, r.Kill(killed, 3))
	info, _ := r.Info(killed)
	require.Equal(t, StatusKilled, info.Status)
	require.Equal(t, ErrPollNotOngoing, r.Cancel(killed, 4))
}

func TestReferenda_RemoveVoteWhileOngoing(t *testing.T) {
	r, _, _ := newTestReferenda(t, testTrack(1, 1, 20, 40))
	index, err := r.Submit(3, 1, 0, 1)
	require.NoError(t, err)
	_, _, err = r.Vote(account(1), index, aye(4))
	require.NoError(t, err)
	_, _, err = r.Vote(account(2), index, nay(1))
	require.NoError(t, err)

	_, existed, err := r.RemoveVote(account(1), index)
	require.NoError(t, err)
	require.True(t, existed)
	tally := r.TallyOf(index)
	require.Equal(t, 0, tally.Ayes.Big().Sign())
	require.Equal(t, uint32(0), tally.BareAyes)
	require.Equal(t, uint32(1), tally.Voters)
}
