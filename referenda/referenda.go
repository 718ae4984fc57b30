package referenda

import (
	"encoding/binary"
	"math/big"

	mapset "github.com/deckarep/golang-set"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const pallet = "Referenda"

var (
	ErrUnknownTrack   = errors.New("unknown track")
	ErrUnknownPoll    = errors.New("unknown poll")
	ErrPollNotOngoing = errors.New("poll is not ongoing")
	ErrNoHooks        = errors.New("referenda hooks are not set")
)

type Status uint8

const (
	StatusOngoing Status = iota
	StatusApproved
	StatusRejected
	StatusCancelled
	StatusTimedOut
	StatusKilled
)

func (s Status) String() string {
	switch s {
	case StatusOngoing:
		return "Ongoing"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusCancelled:
		return "Cancelled"
	case StatusTimedOut:
		return "TimedOut"
	case StatusKilled:
		return "Killed"
	}
	return "Unknown"
}

type ReferendumInfo struct {
	Status          Status
	Track           uint16
	Class           types.CommunityId
	Submitted       uint64
	Deciding        bool
	DecidingSince   uint64
	Confirming      bool
	ConfirmingSince uint64
	Concluded       uint64
	DispatchFailed  bool
}

func (i ReferendumInfo) IsOngoing() bool {
	return i.Status == StatusOngoing
}

// Hooks connects polls to the governance classes they decide for.
type Hooks interface {
	// MaxAyes is the aye weight a poll of class could collect at most.
	MaxAyes(class types.CommunityId) *big.Int
	// MeetsRequirement reports whether the tally satisfies the class's own body-part requirement.
	MeetsRequirement(class types.CommunityId, tally Tally) bool
	// OnConcluded is called once when a poll leaves the ongoing state.
	OnConcluded(index types.PollIndex, info ReferendumInfo) error
}

type Referenda struct {
	state  *state.StateDB
	tracks map[uint16]*Track
	hooks  Hooks
	log    log.Logger

	referendumCount state.Value[uint32]
	infoFor         state.Map[ReferendumInfo]
	tallyOf         state.Map[Tally]
	votes           state.DoubleMap[Vote]
	decidingCount   state.Map[uint32]
}

func New(s *state.StateDB, cfg *config.ReferendaConfig) (*Referenda, error) {
	tracks := make(map[uint16]*Track, len(cfg.Tracks))
	for _, tc := range cfg.Tracks {
		track, err := NewTrack(tc)
		if err != nil {
			return nil, err
		}
		tracks[track.Id] = track
	}
	return &Referenda{
		state:           s,
		tracks:          tracks,
		log:             log.New("module", "referenda"),
		referendumCount: state.NewValue[uint32](pallet, "ReferendumCount"),
		infoFor:         state.NewMap[ReferendumInfo](pallet, "ReferendumInfoFor", state.Identity),
		tallyOf:         state.NewMap[Tally](pallet, "TallyOf", state.Identity),
		votes:           state.NewDoubleMap[Vote](pallet, "Votes", state.Identity, state.Blake2_128Concat),
		decidingCount:   state.NewMap[uint32](pallet, "DecidingCount", state.Twox64Concat),
	}, nil
}

func (r *Referenda) SetHooks(hooks Hooks) {
	r.hooks = hooks
}

func (r *Referenda) Track(id uint16) (*Track, bool) {
	t, ok := r.tracks[id]
	return t, ok
}

func pollKey(index types.PollIndex) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(index))
	return b
}

func trackKey(id uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, id)
	return b
}

func (r *Referenda) Info(index types.PollIndex) (ReferendumInfo, bool) {
	return r.infoFor.Get(r.state, pollKey(index))
}

func (r *Referenda) TallyOf(index types.PollIndex) Tally {
	t, _ := r.tallyOf.Get(r.state, pollKey(index))
	return t
}

func (r *Referenda) VoteOf(who common.AccountId, index types.PollIndex) (Vote, bool) {
	return r.votes.Get(r.state, pollKey(index), who.Bytes())
}

func (r *Referenda) DecidingCount(track uint16) uint32 {
	v, _ := r.decidingCount.Get(r.state, trackKey(track))
	return v
}

func (r *Referenda) ReferendumCount() uint32 {
	v, _ := r.referendumCount.Get(r.state)
	return v
}

// Submit opens a poll for class on track.
func (r *Referenda) Submit(class types.CommunityId, track uint16, proposal uint32, now uint64) (types.PollIndex, error) {
	if _, ok := r.tracks[track]; !ok {
		return 0, ErrUnknownTrack
	}
	index := types.PollIndex(r.ReferendumCount())
	if err := r.referendumCount.Put(r.state, uint32(index)+1); err != nil {
		return 0, err
	}
	if err := r.infoFor.Put(r.state, pollKey(index), ReferendumInfo{
		Status:    StatusOngoing,
		Track:     track,
		Class:     class,
		Submitted: now,
	}); err != nil {
		return 0, err
	}
	if err := r.tallyOf.Put(r.state, pollKey(index), Tally{Ayes: types.NewBalance(nil), Nays: types.NewBalance(nil)}); err != nil {
		return 0, err
	}
	r.state.AddEvent(&events.ReferendumSubmittedEvent{
		ReferendumEvent: events.ReferendumEvent{Community: class, Poll: index, Height: now},
		Track:           track,
		Proposal:        proposal,
	})
	r.log.Debug("Referendum submitted", "poll", index, "community", class, "track", track)
	return index, nil
}

func (r *Referenda) ongoing(index types.PollIndex) (ReferendumInfo, error) {
	info, ok := r.Info(index)
	if !ok {
		return info, ErrUnknownPoll
	}
	if !info.IsOngoing() {
		return info, ErrPollNotOngoing
	}
	return info, nil
}

// Vote records who's vote, replacing the contribution of a previous one. The previous vote is returned.
func (r *Referenda) Vote(who common.AccountId, index types.PollIndex, vote Vote) (prev Vote, replaced bool, err error) {
	if _, err := r.ongoing(index); err != nil {
		return prev, false, err
	}
	tally := r.TallyOf(index)
	prev, replaced = r.VoteOf(who, index)
	if replaced {
		tally.remove(prev)
	}
	tally.add(vote)
	if err := r.tallyOf.Put(r.state, pollKey(index), tally); err != nil {
		return prev, false, err
	}
	if err := r.votes.Put(r.state, pollKey(index), who.Bytes(), vote); err != nil {
		return prev, false, err
	}
	return prev, replaced, nil
}

// RemoveVote drops who's vote. The tally changes only while the poll is ongoing.
func (r *Referenda) RemoveVote(who common.AccountId, index types.PollIndex) (Vote, bool, error) {
	info, ok := r.Info(index)
	prev, voted := r.VoteOf(who, index)
	if !voted {
		return prev, false, nil
	}
	if ok && info.IsOngoing() {
		tally := r.TallyOf(index)
		tally.remove(prev)
		r.tallyOf.Put(r.state, pollKey(index), tally)
	}
	r.votes.Remove(r.state, pollKey(index), who.Bytes())
	return prev, true, nil
}

// IsPassing evaluates both curves at the current point of the decision period and the class requirement.
func (r *Referenda) IsPassing(index types.PollIndex, now uint64) bool {
	info, ok := r.Info(index)
	if !ok || r.hooks == nil {
		return false
	}
	track, ok := r.tracks[info.Track]
	if !ok {
		return false
	}
	since := info.DecidingSince
	if !info.Deciding {
		since = now
	}
	return r.isPassing(track, info.Class, r.TallyOf(index), track.Elapsed(since, now))
}

func (r *Referenda) isPassing(track *Track, class types.CommunityId, tally Tally, x decimal.Decimal) bool {
	maxAyes := r.hooks.MaxAyes(class)
	if maxAyes == nil || maxAyes.Sign() <= 0 {
		return false
	}
	num, denum := tally.Support(maxAyes)
	if !ThresholdAt(track.MinSupport, x).RationalAtLeast(num, denum) {
		return false
	}
	num, denum = tally.Approval()
	if !ThresholdAt(track.MinApproval, x).RationalAtLeast(num, denum) {
		return false
	}
	return r.hooks.MeetsRequirement(class, tally)
}

// Approve concludes an ongoing poll as approved without a vote.
func (r *Referenda) Approve(index types.PollIndex, now uint64) error {
	info, err := r.ongoing(index)
	if err != nil {
		return err
	}
	return r.conclude(index, info, StatusApproved, now)
}

func (r *Referenda) Cancel(index types.PollIndex, now uint64) error {
	info, err := r.ongoing(index)
	if err != nil {
		return err
	}
	return r.conclude(index, info, StatusCancelled, now)
}

func (r *Referenda) Kill(index types.PollIndex, now uint64) error {
	info, err := r.ongoing(index)
	if err != nil {
		return err
	}
	if err := r.conclude(index, info, StatusKilled, now); err != nil {
		return err
	}
	r.tallyOf.Remove(r.state, pollKey(index))
	return nil
}

// Nudge advances every ongoing poll to its state at height now.
func (r *Referenda) Nudge(now uint64) {
	if r.hooks == nil {
		r.log.Error("cannot nudge referenda", "err", ErrNoHooks)
		return
	}
	type pending struct {
		index types.PollIndex
		info  ReferendumInfo
	}
	var polls []pending
	r.infoFor.Iterate(r.state, func(key []byte, info ReferendumInfo) bool {
		if info.IsOngoing() && len(key) == 4 {
			polls = append(polls, pending{index: types.PollIndex(binary.BigEndian.Uint32(key)), info: info})
		}
		return false
	})
	concluded := mapset.NewSet()
	for _, p := range polls {
		if err := r.nudge(p.index, p.info, now); err != nil {
			r.log.Warn("referendum conclusion hook failed", "poll", p.index, "err", err)
		}
		if info, ok := r.Info(p.index); ok && !info.IsOngoing() {
			concluded.Add(p.index)
		}
	}
	if concluded.Cardinality() > 0 {
		r.log.Debug("Referenda concluded", "height", now, "count", concluded.Cardinality())
	}
}

func (r *Referenda) nudge(index types.PollIndex, info ReferendumInfo, now uint64) error {
	track, ok := r.tracks[info.Track]
	if !ok {
		return r.conclude(index, info, StatusCancelled, now)
	}
	ev := events.ReferendumEvent{Community: info.Class, Poll: index, Height: now}

	if !info.Deciding {
		switch {
		case now >= info.Submitted+track.PreparePeriod && r.DecidingCount(track.Id) < track.MaxDeciding:
			info.Deciding = true
			info.DecidingSince = now
			r.decidingCount.Put(r.state, trackKey(track.Id), r.DecidingCount(track.Id)+1)
			r.state.AddEvent(&events.DecisionStartedEvent{ReferendumEvent: ev})
		case track.UndecidingTimeout > 0 && now >= info.Submitted+track.UndecidingTimeout:
			return r.conclude(index, info, StatusTimedOut, now)
		default:
			r.infoFor.Put(r.state, pollKey(index), info)
			return nil
		}
	}

	passing := r.isPassing(track, info.Class, r.TallyOf(index), track.Elapsed(info.DecidingSince, now))
	if info.Confirming {
		if !passing {
			info.Confirming = false
			r.state.AddEvent(&events.ConfirmAbortedEvent{ReferendumEvent: ev})
		} else if now >= info.ConfirmingSince+track.ConfirmPeriod {
			return r.conclude(index, info, StatusApproved, now)
		}
	} else if passing {
		info.Confirming = true
		info.ConfirmingSince = now
		r.state.AddEvent(&events.ConfirmStartedEvent{ReferendumEvent: ev})
		if track.ConfirmPeriod == 0 {
			return r.conclude(index, info, StatusApproved, now)
		}
	}
	if !info.Confirming && now >= info.DecidingSince+track.DecisionPeriod {
		return r.conclude(index, info, StatusRejected, now)
	}
	r.infoFor.Put(r.state, pollKey(index), info)
	return nil
}

func (r *Referenda) conclude(index types.PollIndex, info ReferendumInfo, status Status, now uint64) error {
	if info.Deciding {
		if count := r.DecidingCount(info.Track); count > 0 {
			r.decidingCount.Put(r.state, trackKey(info.Track), count-1)
		}
	}
	info.Status = status
	info.Concluded = now
	info.Confirming = false
	r.infoFor.Put(r.state, pollKey(index), info)

	var hookErr error
	if r.hooks != nil {
		hookErr = r.hooks.OnConcluded(index, info)
	}
	if hookErr != nil && status == StatusApproved {
		info.Status = StatusRejected
		info.DispatchFailed = true
		r.infoFor.Put(r.state, pollKey(index), info)
	}

	ev := events.ReferendumEvent{Community: info.Class, Poll: index, Height: now}
	switch info.Status {
	case StatusApproved:
		r.state.AddEvent(&events.ReferendumApprovedEvent{ReferendumEvent: ev})
	case StatusRejected:
		r.state.AddEvent(&events.ReferendumRejectedEvent{ReferendumEvent: ev, DispatchFailed: info.DispatchFailed})
	case StatusTimedOut:
		r.state.AddEvent(&events.ReferendumTimedOutEvent{ReferendumEvent: ev})
	case StatusCancelled:
		r.state.AddEvent(&events.ReferendumCancelledEvent{ReferendumEvent: ev})
	case StatusKilled:
		r.state.AddEvent(&events.ReferendumKilledEvent{ReferendumEvent: ev})
	}
	r.log.Info("Referendum concluded", "poll", index, "community", info.Class, "status", info.Status.String())
	return hookErr
}
