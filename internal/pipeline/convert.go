package pipeline

import (
	"fmt"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
	"github.com/agchaparroh/noticias-pipeline/internal/store"
)

// Convert transforms a completed run result into the persistence
// payload, replacing every sequential ID with its string temporary
// identifier and resolving cross-references into the same scheme. It is
// a pure function of its inputs: no external calls, and calling it
// twice on the same unmutated result yields identical payloads.
//
// A reference to a sequential ID the allocator never issued is an
// internal contract violation and aborts with a Processing error.
func Convert(res *model.UnitResult, alloc *Allocator) (*model.UnitPayload, error) {
	counts := alloc.Counts()

	check := func(kind model.IDKind, id int, context string) error {
		if id < 1 || id > counts[kind] {
			return resilience.NewError(resilience.KindProcessing, PhaseConvert,
				fmt.Sprintf("dangling %s reference %d in %s", kind, id, context))
		}
		return nil
	}

	p := &model.UnitPayload{
		UnitID:     res.Unit.ID,
		Kind:       res.Unit.Kind,
		Title:      res.Unit.Title,
		Source:     res.Unit.Source,
		Summary:    res.Triage.Summary,
		Category:   res.Triage.Category,
		Language:   res.Triage.Language,
		Importance: res.Importance,
		Degraded:   res.DegradedPhases,
		Facts:      make([]model.FactPayload, 0, len(res.Facts)),
		Entities:   make([]model.EntityPayload, 0, len(res.Entities)),
		Quotes:     make([]model.QuotePayload, 0, len(res.Quotes)),
		Data:       make([]model.DatumPayload, 0, len(res.Data)),
		Relations:  make([]model.RelationPayload, 0, len(res.Relations)),
	}
	if p.Language == "" {
		p.Language = res.Unit.Source.Language
	}

	for _, f := range res.Facts {
		if err := check(model.IDKindFact, f.ID, "facts"); err != nil {
			return nil, err
		}
		p.Facts = append(p.Facts, model.FactPayload{
			TempID:     model.TempID(model.IDKindFact, f.ID),
			Content:    f.Content,
			Confidence: f.Confidence,
			When:       f.When,
			Country:    f.Country,
			Degraded:   f.Degraded,
		})
	}

	for _, e := range res.Entities {
		if err := check(model.IDKindEntity, e.ID, "entities"); err != nil {
			return nil, err
		}
		p.Entities = append(p.Entities, model.EntityPayload{
			TempID:      model.TempID(model.IDKindEntity, e.ID),
			Name:        e.Name,
			NormName:    store.NormalizeEntityName(e.Name),
			Type:        e.Type,
			Aliases:     e.Aliases,
			Description: e.Description,
			Confidence:  e.Confidence,
			ExistingID:  e.ExistingID,
		})
	}

	for _, q := range res.Quotes {
		if err := check(model.IDKindQuote, q.ID, "quotes"); err != nil {
			return nil, err
		}
		qp := model.QuotePayload{
			TempID:     model.TempID(model.IDKindQuote, q.ID),
			Text:       q.Text,
			Date:       q.Date,
			Context:    q.Context,
			Confidence: q.Confidence,
		}
		if q.SpeakerEntityID != 0 {
			if err := check(model.IDKindEntity, q.SpeakerEntityID, "quote speaker"); err != nil {
				return nil, err
			}
			qp.SpeakerTempID = model.TempID(model.IDKindEntity, q.SpeakerEntityID)
		}
		if q.FactID != 0 {
			if err := check(model.IDKindFact, q.FactID, "quote fact"); err != nil {
				return nil, err
			}
			qp.FactTempID = model.TempID(model.IDKindFact, q.FactID)
		}
		p.Quotes = append(p.Quotes, qp)
	}

	for _, d := range res.Data {
		if err := check(model.IDKindDatum, d.ID, "data"); err != nil {
			return nil, err
		}
		dp := model.DatumPayload{
			TempID:     model.TempID(model.IDKindDatum, d.ID),
			Indicator:  d.Indicator,
			Value:      d.Value,
			Unit:       d.Unit,
			Period:     d.Period,
			Trend:      d.Trend,
			Confidence: d.Confidence,
		}
		if d.FactID != 0 {
			if err := check(model.IDKindFact, d.FactID, "datum fact"); err != nil {
				return nil, err
			}
			dp.FactTempID = model.TempID(model.IDKindFact, d.FactID)
		}
		p.Data = append(p.Data, dp)
	}

	for _, r := range res.Relations {
		refKind := model.IDKindFact
		if r.Kind == model.RelationEntityToEntity {
			refKind = model.IDKindEntity
		}
		if err := check(refKind, r.FromID, "relation from"); err != nil {
			return nil, err
		}
		if err := check(refKind, r.ToID, "relation to"); err != nil {
			return nil, err
		}
		p.Relations = append(p.Relations, model.RelationPayload{
			Kind:       r.Kind,
			FromTempID: model.TempID(refKind, r.FromID),
			ToTempID:   model.TempID(refKind, r.ToID),
			Label:      r.Label,
			Confidence: r.Confidence,
		})
	}

	return p, nil
}
