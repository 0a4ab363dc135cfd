package model

import "fmt"

// TempID builds the string-typed temporary identifier the persistence
// layer keys nested elements by: the kind prefix plus the run-scoped
// sequential ID (e.g. "fact_3", "entity_1").
func TempID(kind IDKind, id int) string {
	return fmt.Sprintf("%s_%d", kind, id)
}

// FactPayload is the persistence-facing form of an extracted fact.
type FactPayload struct {
	TempID     string       `json:"temp_id"`
	Content    string       `json:"content"`
	Confidence float64      `json:"confidence"`
	When       TemporalInfo `json:"when,omitempty"`
	Country    string       `json:"country,omitempty"`
	Degraded   bool         `json:"degraded,omitempty"`
}

// EntityPayload is the persistence-facing form of an extracted entity.
// ExistingID carries the persisted identifier matched during
// normalization; nil marks the entity as new.
type EntityPayload struct {
	TempID      string     `json:"temp_id"`
	Name        string     `json:"name"`
	NormName    string     `json:"norm_name,omitempty"`
	Type        EntityType `json:"type"`
	Aliases     []string   `json:"aliases,omitempty"`
	Description string     `json:"description,omitempty"`
	Confidence  float64    `json:"confidence"`
	ExistingID  *int64     `json:"existing_id,omitempty"`
}

// QuotePayload is the persistence-facing form of a quote. Speaker and
// fact references use temporary identifiers of the referenced elements.
type QuotePayload struct {
	TempID        string  `json:"temp_id"`
	Text          string  `json:"text"`
	SpeakerTempID string  `json:"speaker_temp_id,omitempty"`
	FactTempID    string  `json:"fact_temp_id,omitempty"`
	Date          string  `json:"date,omitempty"`
	Context       string  `json:"context,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// DatumPayload is the persistence-facing form of a quantitative datum.
type DatumPayload struct {
	TempID     string  `json:"temp_id"`
	FactTempID string  `json:"fact_temp_id,omitempty"`
	Indicator  string  `json:"indicator"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	Period     string  `json:"period,omitempty"`
	Trend      string  `json:"trend,omitempty"`
	Confidence float64 `json:"confidence"`
}

// RelationPayload is the persistence-facing form of a relationship.
type RelationPayload struct {
	Kind       RelationKind `json:"kind"`
	FromTempID string       `json:"from_temp_id"`
	ToTempID   string       `json:"to_temp_id"`
	Label      string       `json:"label,omitempty"`
	Confidence float64      `json:"confidence"`
}

// UnitPayload is the single structured argument handed to the
// persistence collaborator's insert entry points. The same shape serves
// whole-unit and fragment inserts; Kind selects the entry point.
type UnitPayload struct {
	UnitID     string            `json:"unit_id"`
	Kind       UnitKind          `json:"kind"`
	Title      string            `json:"title,omitempty"`
	Source     SourceMeta        `json:"source,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Category   string            `json:"category,omitempty"`
	Language   string            `json:"language,omitempty"`
	Importance float64           `json:"importance"`
	Degraded   []string          `json:"degraded_phases,omitempty"`
	Facts      []FactPayload     `json:"facts"`
	Entities   []EntityPayload   `json:"entities"`
	Quotes     []QuotePayload    `json:"quotes"`
	Data       []DatumPayload    `json:"data"`
	Relations  []RelationPayload `json:"relations"`
}
