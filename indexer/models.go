package indexer

// BlockRecord is one indexed block. Rows above a reset height are pruned.
type BlockRecord struct {
	Height     uint64 `gorm:"primaryKey;autoIncrement:false"`
	Hash       string `gorm:"size:66;uniqueIndex"`
	ParentHash string `gorm:"size:66"`
	StateRoot  string `gorm:"size:66"`
	Extrinsics int
	Events     int
}

func (BlockRecord) TableName() string {
	return "blocks"
}

// CommunityEventRecord stores one community event with its JSON payload.
type CommunityEventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Community uint16 `gorm:"index:idx_community_height,priority:1"`
	Height    uint64 `gorm:"index:idx_community_height,priority:2;index"`
	Seq       int
	EventID   string `gorm:"size:64;index"`
	Payload   []byte
}

func (CommunityEventRecord) TableName() string {
	return "community_events"
}

type ExtrinsicRecord struct {
	ID      uint   `gorm:"primaryKey"`
	Hash    string `gorm:"size:66;index"`
	Height  uint64 `gorm:"index"`
	Index   int
	Success bool
	Error   string
}

func (ExtrinsicRecord) TableName() string {
	return "extrinsics"
}

var migrateModels = []any{
	&BlockRecord{},
	&CommunityEventRecord{},
	&ExtrinsicRecord{},
}
