package pipeline

import (
	"strings"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
)

// Phase tags used in logs, metrics and support codes.
const (
	PhaseTriage  = "1_triage"
	PhaseExtract = "2_extract"
	PhaseQuotes  = "3_quotes"
	PhaseLink    = "4_link"
	PhaseScore   = "5_score"
	PhaseConvert = "6_convert"
)

// Phases lists the fixed sequence in execution order.
var Phases = []string{PhaseTriage, PhaseExtract, PhaseQuotes, PhaseLink, PhaseScore, PhaseConvert}

// neutralImportance is the score assigned when the scoring service is
// unreachable: the midpoint of the 0-10 range.
const neutralImportance = 5.0

// fallbackFunc produces the documented degraded output for one phase,
// writing it into the in-progress result.
type fallbackFunc func(res *model.UnitResult, alloc *Allocator)

// fallbacks maps every phase to its degraded-output producer. The
// lookup is total so an exhausted external call always has a substitute
// result. The conversion entry is a no-op: conversion performs no
// external calls, and its only failure mode is fatal.
var fallbacks = map[string]fallbackFunc{
	// Accept the unit anyway with default metadata. Dropping content
	// silently is worse than letting an irrelevant unit through.
	PhaseTriage: func(res *model.UnitResult, _ *Allocator) {
		lang := res.Unit.Source.Language
		if lang == "" {
			lang = "es"
		}
		res.Triage = model.TriageDecision{
			Relevant: true,
			Language: lang,
			Summary:  headline(res.Unit),
			Degraded: true,
		}
	},

	// Synthesize one minimal fact from the unit's title or leading text
	// so downstream phases and persistence have something to work with.
	PhaseExtract: func(res *model.UnitResult, alloc *Allocator) {
		res.Facts = append(res.Facts, model.ExtractedFact{
			ID:         alloc.Next(model.IDKindFact),
			Content:    headline(res.Unit),
			Confidence: 0.1,
			Degraded:   true,
		})
	},

	// Quotes and quantitative data are non-critical: proceed with none.
	PhaseQuotes: func(res *model.UnitResult, _ *Allocator) {
		res.Quotes = nil
		res.Data = nil
	},

	// Treat every entity as new and skip relationship computation. The
	// phase writes partial successes into the result as it goes, so
	// there is nothing to undo here.
	PhaseLink: func(_ *model.UnitResult, _ *Allocator) {},

	PhaseScore: func(res *model.UnitResult, _ *Allocator) {
		res.Importance = neutralImportance
	},

	PhaseConvert: func(_ *model.UnitResult, _ *Allocator) {},
}

// headline summarizes a unit from its title, falling back to the
// opening of its text.
func headline(unit model.ProcessingUnit) string {
	if t := strings.TrimSpace(unit.Title); t != "" {
		return t
	}
	return truncate(strings.TrimSpace(unit.Text), 200)
}
