package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
	"github.com/agchaparroh/noticias-pipeline/internal/store"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
)

type relationsWire struct {
	Relations []struct {
		Kind       string  `json:"kind"`
		FromID     int     `json:"from_id"`
		ToID       int     `json:"to_id"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"relations"`
}

// link normalizes entities against the persisted catalog and computes
// relationships. Partial successes are written into the result as they
// land, so an exhausted sub-call degrades only what it could not do:
// entities not yet looked up stay new, and a failed relationship call
// leaves relations empty.
func (c *Coordinator) link(ctx context.Context, res *model.UnitResult) error {
	var degraded error

	for i := range res.Entities {
		e := &res.Entities[i]
		match, err := resilience.Execute(ctx, c.rpcPolicy, PhaseLink, func(ctx context.Context) (*store.EntityMatch, error) {
			ctx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
			defer cancel()
			return c.store.FindSimilarEntity(ctx, e.Name, e.Type)
		})
		if err != nil {
			degraded = err
			break
		}
		if match != nil {
			id := match.ID
			e.ExistingID = &id
		}
	}

	if len(res.Facts)+len(res.Entities) >= 2 {
		if err := c.relations(ctx, res); err != nil {
			if degraded == nil {
				degraded = err
			}
		}
	}

	return degraded
}

// relations runs the relationship-computation LLM call. Unknown kinds
// and out-of-range references are dropped.
func (c *Coordinator) relations(ctx context.Context, res *model.UnitResult) error {
	prompt := fmt.Sprintf(relationsPrompt, renderFacts(res.Facts), renderEntities(res.Entities))

	resp, err := resilience.Execute(ctx, c.llmPolicy, PhaseLink, func(ctx context.Context) (*llm.Response, error) {
		return c.llm.Generate(ctx, llm.Request{
			System:    relationsSystem,
			Prompt:    prompt,
			MaxTokens: 2048,
		})
	})
	if err != nil {
		return err
	}
	c.recordUsage(res, PhaseLink, resp.Usage)

	var wire relationsWire
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &wire); err != nil {
		return resilience.WrapError(resilience.KindExternalAPI, PhaseLink, "relations response unparseable", eris.Wrap(err, "link: parse response"))
	}

	factCount := len(res.Facts)
	entityCount := len(res.Entities)
	for _, r := range wire.Relations {
		kind := model.RelationKind(r.Kind)
		var max int
		switch kind {
		case model.RelationFactToFact, model.RelationContradiction:
			max = factCount
		case model.RelationEntityToEntity:
			max = entityCount
		default:
			continue
		}
		if r.FromID < 1 || r.FromID > max || r.ToID < 1 || r.ToID > max {
			continue
		}
		res.Relations = append(res.Relations, model.Relationship{
			Kind:       kind,
			FromID:     r.FromID,
			ToID:       r.ToID,
			Label:      r.Label,
			Confidence: r.Confidence,
		})
	}
	return nil
}
