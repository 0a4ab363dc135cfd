package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
)

// extractWire mirrors the JSON schema the extraction prompt requests.
// Sequential IDs are assigned after parsing, never by the model.
type extractWire struct {
	Facts []struct {
		Content    string             `json:"content"`
		Confidence float64            `json:"confidence"`
		When       model.TemporalInfo `json:"when"`
		Country    string             `json:"country"`
	} `json:"facts"`
	Entities []struct {
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		Aliases     []string `json:"aliases"`
		Description string   `json:"description"`
		Confidence  float64  `json:"confidence"`
	} `json:"entities"`
}

// extract runs the basic-extraction LLM call and assigns sequential IDs
// to every fact and entity produced.
func (c *Coordinator) extract(ctx context.Context, res *model.UnitResult, alloc *Allocator) error {
	prompt := fmt.Sprintf(extractPrompt, res.Unit.Title, truncate(res.Unit.Text, maxPromptChars))

	resp, err := c.llm.Generate(ctx, llm.Request{
		System:    extractSystem,
		Prompt:    prompt,
		MaxTokens: 4096,
	})
	if err != nil {
		return err
	}
	c.recordUsage(res, PhaseExtract, resp.Usage)

	var wire extractWire
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &wire); err != nil {
		return eris.Wrap(err, "extract: parse response")
	}

	for _, f := range wire.Facts {
		if f.Content == "" {
			continue
		}
		res.Facts = append(res.Facts, model.ExtractedFact{
			ID:         alloc.Next(model.IDKindFact),
			Content:    f.Content,
			Confidence: f.Confidence,
			When:       f.When,
			Country:    f.Country,
		})
	}
	for _, e := range wire.Entities {
		if e.Name == "" {
			continue
		}
		res.Entities = append(res.Entities, model.ExtractedEntity{
			ID:          alloc.Next(model.IDKindEntity),
			Name:        e.Name,
			Type:        entityType(e.Type),
			Aliases:     e.Aliases,
			Description: e.Description,
			Confidence:  e.Confidence,
		})
	}
	return nil
}

// entityType maps a model-produced type string onto the known set,
// defaulting to "other" rather than rejecting the entity.
func entityType(s string) model.EntityType {
	switch model.EntityType(s) {
	case model.EntityPerson, model.EntityOrganization, model.EntityInstitution,
		model.EntityPlace, model.EntityEvent:
		return model.EntityType(s)
	default:
		return model.EntityOther
	}
}
