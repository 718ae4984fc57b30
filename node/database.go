package node

import (
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	dbm "github.com/tendermint/tm-db"
)

const (
	chainDbName    = "communitieschain"
	dbCacheMiB     = 16
	dbOpenFilesCap = 16
)

func OpenDatabase(datadir string, name string, cache int, handles int) (dbm.DB, error) {
	return dbm.NewGoLevelDBWithOpts(name, datadir, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
}

// OpenChainDatabase opens the chain database of the node under datadir.
func OpenChainDatabase(datadir string) (dbm.DB, error) {
	return OpenDatabase(datadir, chainDbName, dbCacheMiB, dbOpenFilesCap)
}
