package database

var (
	// headBlockKey tracks the latest known block header.
	headBlockKey = []byte("LastBlock")

	headerPrefix = []byte("h")

	headerHashSuffix = []byte("n") // headerPrefix + num (uint64 big endian) + headerHashSuffix -> hash

	bodyPrefix = []byte("b")

	extrinsicIndexPrefix = []byte("ei")
)
