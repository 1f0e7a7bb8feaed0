package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RuleChunk is one indexed slice of a guidance document. The vector for a
// chunk lives in the vector store under the same ID; the catalog row is the
// authority for text and age metadata.
type RuleChunk struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SourceFile string         `gorm:"column:source_file;not null;index" json:"source_file"`
	ChunkIndex int            `gorm:"column:chunk_index;not null" json:"chunk_index"`
	Text       string         `gorm:"column:text;not null" json:"text"`
	AgeStart   int            `gorm:"column:age_start;not null;index" json:"age_start"`
	AgeEnd     int            `gorm:"column:age_end;not null;index" json:"age_end"`
	Metadata   datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (RuleChunk) TableName() string { return "rule_chunk" }

// CoversAge reports whether the chunk's age window includes the given age in
// months (inclusive on both ends).
func (c RuleChunk) CoversAge(months int) bool {
	return c.AgeStart <= months && months <= c.AgeEnd
}

// ChunkDocument is a normalized source document before chunking: one logical
// rule or guidance record with its resolved age window.
type ChunkDocument struct {
	SourceFile string
	Text       string
	AgeStart   int
	AgeEnd     int
	Metadata   map[string]string
}
