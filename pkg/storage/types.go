package storage

import "time"

// Change reasons recorded in the change log. AI-made changes use
// merge.ReasonAIPopulated.
const (
	ReasonCreated  = "created"
	ReasonUserEdit = "user-edit"
	ReasonDeleted  = "deleted"
)

// Seed is one catalog record. SeedName and VarietyName are kept in their own
// columns for searching; every other field value lives in Fields.
type Seed struct {
	ID          int64          `json:"id"`
	UID         string         `json:"uid"`
	SeedName    string         `json:"seed_name"`
	VarietyName string         `json:"variety_name"`
	Fields      map[string]any `json:"fields"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Change captures a single field change for auditing or printing.
type Change struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	SeedUID    string    `json:"seed_uid"`
	SeedName   string    `json:"seed_name"`
	FieldKey   string    `json:"field_key"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	Reason     string    `json:"reason"`
}

// ListOptions controls selection when listing seeds.
type ListOptions struct {
	// Search matches seed or variety name, case-insensitively.
	Search string
	// Category keeps seeds whose categories include this value.
	Category string
	Limit    int
}

// CategoryCount is the number of seeds tagged with one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ReasonCount is the number of change log rows with one reason.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Stats summarizes the catalog.
type Stats struct {
	SeedCount      int             `json:"seed_count"`
	WithoutVariety int             `json:"without_variety"`
	Categories     []CategoryCount `json:"categories"`
	Changes        []ReasonCount   `json:"changes"`
}
