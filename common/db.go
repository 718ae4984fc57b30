package common

import db "github.com/tendermint/tm-db"

// CopyDb writes every record of source into dest in a single batch.
func CopyDb(source, dest db.DB) error {
	it, err := source.Iterator(nil, nil)
	if err != nil {
		return err
	}
	batch := dest.NewBatch()
	defer batch.Close()
	for ; it.Valid(); it.Next() {
		batch.Set(it.Key(), it.Value())
	}
	// the source iterator must be released before dest takes its write lock
	it.Close()
	return batch.Write()
}
