package communities

import (
	mapset "github.com/deckarep/golang-set"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/callstore"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/ledger"
	"github.com/idena-network/idena-communities/log"
	"github.com/idena-network/idena-communities/referenda"
	"github.com/idena-network/idena-communities/scheduler"
	"github.com/pkg/errors"
)

const pallet = "Communities"

var (
	communityFreezeId = []byte("comms/ed")
	voteLockFreezeId  = []byte("comms/vote")
	depositHoldPrefix = []byte("comms/pd")
)

// Communities keeps the registry, memberships, governance strategies, proposal queues
// and treasuries of every community.
type Communities struct {
	state      *state.StateDB
	ledger     *ledger.Ledger
	calls      *callstore.Store
	scheduler  *scheduler.Scheduler
	referenda  *referenda.Referenda
	cfg        *config.CommunitiesConfig
	tracks     *config.ReferendaConfig
	registrars mapset.Set
	palletId   []byte
	isThaw     ThawMatcher
	// items one DestroyAsset call may remove
	destroyLimit uint32
	log          log.Logger

	info       state.Map[Community]
	metadata   state.Map[Metadata]
	strategies state.Map[GovernanceStrategy]

	members        state.DoubleMap[types.MembershipId]
	membershipInfo state.DoubleMap[MembershipInfo]
	memberCount    state.Map[uint32]
	rankSum        state.Map[uint32]
	nextMembership state.Map[uint32]
	gasUsage       state.DoubleMap[GasUsage]

	proposals    state.Map[[]Proposal]
	nextProposal state.Map[uint32]
	proposalPoll state.Map[types.PollIndex]
	voteLocks    state.DoubleMap[[]VoteLock]
	challenges   state.DoubleMap[bool]
}

func New(s *state.StateDB, l *ledger.Ledger, calls *callstore.Store, sched *scheduler.Scheduler,
	ref *referenda.Referenda, cfg *config.CommunitiesConfig, tracks *config.ReferendaConfig) (*Communities, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registrars := mapset.NewSet()
	for _, r := range cfg.Registrars {
		id, err := common.AccountIdFromString(r)
		if err != nil {
			return nil, errors.Wrapf(err, "registrar %q", r)
		}
		registrars.Add(id)
	}
	c := &Communities{
		state:      s,
		ledger:     l,
		calls:      calls,
		scheduler:  sched,
		referenda:  ref,
		cfg:        cfg,
		tracks:     tracks,
		registrars: registrars,
		palletId:   []byte(cfg.PalletId),
		log:        log.New("module", "communities"),

		destroyLimit: MaxDestroyItems,

		info:       state.NewMap[Community](pallet, "Info", state.Twox64Concat),
		metadata:   state.NewMap[Metadata](pallet, "Metadata", state.Twox64Concat),
		strategies: state.NewMap[GovernanceStrategy](pallet, "Strategy", state.Twox64Concat),

		members:        state.NewDoubleMap[types.MembershipId](pallet, "Members", state.Twox64Concat, state.Blake2_128Concat),
		membershipInfo: state.NewDoubleMap[MembershipInfo](pallet, "MembershipInfo", state.Twox64Concat, state.Twox64Concat),
		memberCount:    state.NewMap[uint32](pallet, "MemberCount", state.Twox64Concat),
		rankSum:        state.NewMap[uint32](pallet, "RankSum", state.Twox64Concat),
		nextMembership: state.NewMap[uint32](pallet, "NextMembershipIndex", state.Twox64Concat),
		gasUsage:       state.NewDoubleMap[GasUsage](pallet, "GasUsage", state.Twox64Concat, state.Blake2_128Concat),

		proposals:    state.NewMap[[]Proposal](pallet, "Proposals", state.Twox64Concat),
		nextProposal: state.NewMap[uint32](pallet, "NextProposalIndex", state.Twox64Concat),
		proposalPoll: state.NewMap[types.PollIndex](pallet, "ProposalPoll", state.Twox64Concat),
		voteLocks:    state.NewDoubleMap[[]VoteLock](pallet, "VoteLocks", state.Blake2_128Concat, state.Twox64Concat),
		challenges:   state.NewDoubleMap[bool](pallet, "Challenges", state.Twox64Concat, state.Blake2_128Concat),
	}
	ref.SetHooks(c)
	return c, nil
}

func (c *Communities) Ledger() *ledger.Ledger {
	return c.ledger
}

func (c *Communities) Referenda() *referenda.Referenda {
	return c.referenda
}

func (c *Communities) IsRegistrar(who common.AccountId) bool {
	return c.registrars.Contains(who)
}
