package runtime

import (
	"github.com/idena-network/idena-communities/blockchain/attachments"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/communities"
)

// Reference-time costs in picoseconds.
const ReadWeight types.Weight = 25_000_000
const WriteWeight types.Weight = 100_000_000
const BaseCallWeight types.Weight = 20_000_000
const PerByteWeight types.Weight = 2_000

func dbWeight(reads, writes uint64) types.Weight {
	return BaseCallWeight + types.Weight(reads)*ReadWeight + types.Weight(writes)*WriteWeight
}

var callWeights = map[attachments.CallId]types.Weight{
	attachments.BalancesTransfer:          dbWeight(2, 2),
	attachments.BalancesTransferKeepAlive: dbWeight(2, 2),

	attachments.Create:             dbWeight(4, 6),
	attachments.SetMetadata:        dbWeight(2, 1),
	attachments.SetStrategy:        dbWeight(3, 1),
	attachments.AddMember:          dbWeight(5, 5),
	attachments.RemoveMember:       dbWeight(6, 5),
	attachments.Promote:            dbWeight(5, 2),
	attachments.Demote:             dbWeight(5, 2),
	attachments.Propose:            dbWeight(7, 5),
	attachments.Vote:               dbWeight(9, 5),
	attachments.RemoveVote:         dbWeight(4, 2),
	attachments.Unlock:             dbWeight(20, 3),
	attachments.AssetsTransfer:     dbWeight(6, 3),
	attachments.BalanceTransfer:    dbWeight(4, 3),
	attachments.Freeze:             dbWeight(3, 1),
	attachments.Thaw:               dbWeight(3, 1),
	attachments.Block:              dbWeight(2, 1),
	attachments.Unblock:            dbWeight(2, 1),
	attachments.Activate:           dbWeight(2, 1),
	attachments.SetGasTank:         dbWeight(4, 1),
	attachments.CreateAsset:        dbWeight(4, 2),
	attachments.MintAsset:          dbWeight(5, 3),
	attachments.DestroyAsset:       dbWeight(4+communities.MaxDestroyItems, 3+communities.MaxDestroyItems),
	attachments.SetSufficientAsset: dbWeight(4, 1),
	attachments.RegisterChallenge:  dbWeight(4, 1),
	attachments.ValidateChallenge:  dbWeight(4, 4),
	attachments.CancelReferendum:   dbWeight(8, 8),
	attachments.KillReferendum:     dbWeight(8, 9),
}

// callWeight is the static weight of a call; propose also pays for the bytes it stores.
func callWeight(id attachments.CallId, args []byte) (types.Weight, bool) {
	weight, ok := callWeights[id]
	if !ok {
		return 0, false
	}
	if id == attachments.Propose {
		weight += types.Weight(len(args)) * PerByteWeight
	}
	return weight, true
}
