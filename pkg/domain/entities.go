package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordMeta captures identifiers and audit fields shared across entities.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time `bun:",soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// JSONMap persists arbitrary option fields as JSON.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if m == nil {
		return errors.New("JSONMap: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("JSONMap: unsupported type %T", value)
	}
}

// TemplateSchema lists the context keys a block template expects.
type TemplateSchema struct {
	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`
}

// IsZero reports whether no keys are declared.
func (s TemplateSchema) IsZero() bool {
	return len(s.Required) == 0 && len(s.Optional) == 0
}

// BlockInstance is the persisted record of a block placed on a page. It
// satisfies block.Instance so repositories can hand records straight to the
// dispatcher.
type BlockInstance struct {
	bun.BaseModel `bun:"table:block_instances"`
	RecordMeta

	Name        string  `bun:",unique,nullzero,notnull" json:"name"`
	Type        string  `bun:",nullzero,notnull" json:"type"`
	Enabled     bool    `bun:",notnull" json:"enabled"`
	Locale      string  `bun:",nullzero" json:"locale,omitempty"`
	Position    int     `bun:",notnull,default:0" json:"position"`
	Description string  `bun:",nullzero" json:"description,omitempty"`
	Options     JSONMap `bun:"type:jsonb,nullzero" json:"options,omitempty"`
	Metadata    JSONMap `bun:"type:jsonb,nullzero" json:"metadata,omitempty"`
}

var _ block.Instance = (*BlockInstance)(nil)

// BlockID returns the record UUID, or the name for records not yet persisted.
func (b *BlockInstance) BlockID() string {
	if b == nil {
		return ""
	}
	if b.ID != uuid.Nil {
		return b.ID.String()
	}
	return b.Name
}

func (b *BlockInstance) BlockType() block.Type {
	if b == nil {
		return ""
	}
	return block.Type(b.Type)
}

func (b *BlockInstance) IsEnabled() bool {
	return b != nil && b.Enabled
}

// BlockOptions exposes the stored options. The locale, when set, is surfaced
// as the "locale" option unless the options already carry one.
func (b *BlockInstance) BlockOptions() block.Settings {
	if b == nil {
		return nil
	}
	if b.Locale == "" {
		return block.Settings(b.Options)
	}
	out := block.Settings(b.Options).Clone()
	if out == nil {
		out = make(block.Settings, 1)
	}
	if _, ok := out["locale"]; !ok {
		out["locale"] = b.Locale
	}
	return out
}
