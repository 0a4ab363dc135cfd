package model

import (
	"strings"
	"time"
)

// UnitKind distinguishes whole articles from document fragments. The two
// kinds flow through the same phase sequence but persist through different
// insert entry points.
type UnitKind string

const (
	UnitKindArticle  UnitKind = "article"
	UnitKindFragment UnitKind = "fragment"
)

// SourceMeta carries optional provenance for a processing unit.
type SourceMeta struct {
	Medium      string     `json:"medium,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Language    string     `json:"language,omitempty"`
}

// ProcessingUnit is one article or fragment submitted for processing.
// It is immutable once accepted and owned by exactly one coordinator run.
type ProcessingUnit struct {
	ID     string     `json:"id"`
	Kind   UnitKind   `json:"kind"`
	Title  string     `json:"title,omitempty"`
	Text   string     `json:"text"`
	Source SourceMeta `json:"source,omitempty"`
}

// Validate performs the structural checks that gate the run before any
// phase executes. It reports the first problem found, or "" if the unit
// is acceptable.
func (u ProcessingUnit) Validate() string {
	if strings.TrimSpace(u.ID) == "" {
		return "missing unit identifier"
	}
	if strings.TrimSpace(u.Text) == "" {
		return "empty text"
	}
	switch u.Kind {
	case UnitKindArticle, UnitKindFragment:
		return ""
	case "":
		return "missing unit kind"
	default:
		return "unknown unit kind " + string(u.Kind)
	}
}
