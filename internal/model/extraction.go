package model

// IDKind names one of the per-run sequential identifier namespaces. Each
// extracted element kind draws from its own counter, so "fact 3" and
// "entity 3" coexist within a run.
type IDKind string

const (
	IDKindFact   IDKind = "fact"
	IDKindEntity IDKind = "entity"
	IDKindQuote  IDKind = "quote"
	IDKindDatum  IDKind = "datum"
)

// IDKinds lists every namespace in a stable order.
var IDKinds = []IDKind{IDKindFact, IDKindEntity, IDKindQuote, IDKindDatum}

// TemporalInfo locates a fact in time at whatever precision the source
// supports. Zero values mean the field was not extracted.
type TemporalInfo struct {
	Start     string `json:"start,omitempty"`     // ISO date if known
	End       string `json:"end,omitempty"`       // ISO date for ranges
	Precision string `json:"precision,omitempty"` // "day", "month", "year", "period"
	IsFuture  bool   `json:"is_future,omitempty"`
}

// ExtractedFact is one factual assertion pulled from the unit text.
type ExtractedFact struct {
	ID         int          `json:"id"`
	Content    string       `json:"content"`
	Confidence float64      `json:"confidence"`
	When       TemporalInfo `json:"when,omitempty"`
	Country    string       `json:"country,omitempty"`
	Degraded   bool         `json:"degraded,omitempty"`
}

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityInstitution  EntityType = "institution"
	EntityPlace        EntityType = "place"
	EntityEvent        EntityType = "event"
	EntityOther        EntityType = "other"
)

// ExtractedEntity is a named entity mentioned by the unit. ExistingID is
// populated during normalization when the entity matched one already
// persisted; a nil ExistingID means the entity is new.
type ExtractedEntity struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Aliases     []string   `json:"aliases,omitempty"`
	Description string     `json:"description,omitempty"`
	Confidence  float64    `json:"confidence"`
	ExistingID  *int64     `json:"existing_id,omitempty"`
}

// ExtractedQuote is a textual quotation. SpeakerEntityID and FactID are
// non-owning cross-references by sequential ID, resolved only at
// persistence conversion.
type ExtractedQuote struct {
	ID              int     `json:"id"`
	Text            string  `json:"text"`
	SpeakerEntityID int     `json:"speaker_entity_id,omitempty"`
	FactID          int     `json:"fact_id,omitempty"`
	Date            string  `json:"date,omitempty"`
	Context         string  `json:"context,omitempty"`
	Confidence      float64 `json:"confidence"`
}

// ExtractedDatum is one quantitative data point tied to a fact.
type ExtractedDatum struct {
	ID         int     `json:"id"`
	FactID     int     `json:"fact_id,omitempty"`
	Indicator  string  `json:"indicator"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	Period     string  `json:"period,omitempty"`
	Trend      string  `json:"trend,omitempty"` // "up", "down", "stable"
	Confidence float64 `json:"confidence"`
}

// RelationKind classifies a computed relationship.
type RelationKind string

const (
	RelationFactToFact     RelationKind = "fact_fact"
	RelationEntityToEntity RelationKind = "entity_entity"
	RelationContradiction  RelationKind = "contradiction"
)

// Relationship links two extracted elements of the same kind by
// sequential ID.
type Relationship struct {
	Kind       RelationKind `json:"kind"`
	FromID     int          `json:"from_id"`
	ToID       int          `json:"to_id"`
	Label      string       `json:"label,omitempty"`
	Confidence float64      `json:"confidence"`
}

// TriageDecision is the outcome of the triage phase.
type TriageDecision struct {
	Relevant bool    `json:"relevant"`
	Language string  `json:"language,omitempty"`
	Category string  `json:"category,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Degraded bool    `json:"degraded,omitempty"`
}

// PhaseUsage records token consumption attributed to one phase.
type PhaseUsage struct {
	Phase        string `json:"phase"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// UnitResult is the in-memory outcome of one coordinator run, prior to
// persistence conversion. All cross-references are sequential IDs.
type UnitResult struct {
	Unit       ProcessingUnit    `json:"unit"`
	Triage     TriageDecision    `json:"triage"`
	Facts      []ExtractedFact   `json:"facts"`
	Entities   []ExtractedEntity `json:"entities"`
	Quotes     []ExtractedQuote  `json:"quotes"`
	Data       []ExtractedDatum  `json:"data"`
	Relations  []Relationship    `json:"relations"`
	Importance float64           `json:"importance"`
	// DegradedPhases names every phase that completed via fallback.
	DegradedPhases []string     `json:"degraded_phases,omitempty"`
	Usage          []PhaseUsage `json:"usage,omitempty"`
}
