package pipeline

import (
	"context"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/pkg/scoring"
)

// score asks the importance-scoring service for a unit-level relevance
// score, clamped to the documented 0-10 range.
func (c *Coordinator) score(ctx context.Context, res *model.UnitResult) error {
	entities := make([]string, 0, len(res.Entities))
	for _, e := range res.Entities {
		entities = append(entities, e.Name)
	}

	value, err := c.scorer.Score(ctx, scoring.ScoreRequest{
		UnitID:    res.Unit.ID,
		Title:     res.Unit.Title,
		Summary:   res.Triage.Summary,
		Category:  res.Triage.Category,
		FactCount: len(res.Facts),
		Entities:  entities,
	})
	if err != nil {
		return err
	}

	if value < 0 {
		value = 0
	}
	if value > 10 {
		value = 10
	}
	res.Importance = value
	return nil
}
