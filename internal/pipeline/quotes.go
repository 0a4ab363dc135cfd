package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
)

type quotesWire struct {
	Quotes []struct {
		Text            string  `json:"text"`
		SpeakerEntityID int     `json:"speaker_entity_id"`
		FactID          int     `json:"fact_id"`
		Date            string  `json:"date"`
		Context         string  `json:"context"`
		Confidence      float64 `json:"confidence"`
	} `json:"quotes"`
	Data []struct {
		FactID     int     `json:"fact_id"`
		Indicator  string  `json:"indicator"`
		Value      float64 `json:"value"`
		Unit       string  `json:"unit"`
		Period     string  `json:"period"`
		Trend      string  `json:"trend"`
		Confidence float64 `json:"confidence"`
	} `json:"data"`
}

// quotes runs the quote-and-data extraction LLM call. References to
// facts and entities use the sequential IDs rendered into the prompt;
// references the model invents out of range are cleared rather than
// carried forward.
func (c *Coordinator) quotes(ctx context.Context, res *model.UnitResult, alloc *Allocator) error {
	prompt := fmt.Sprintf(quotesPrompt,
		renderFacts(res.Facts),
		renderEntities(res.Entities),
		truncate(res.Unit.Text, maxPromptChars),
	)

	resp, err := c.llm.Generate(ctx, llm.Request{
		System:    quotesSystem,
		Prompt:    prompt,
		MaxTokens: 4096,
	})
	if err != nil {
		return err
	}
	c.recordUsage(res, PhaseQuotes, resp.Usage)

	var wire quotesWire
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &wire); err != nil {
		return eris.Wrap(err, "quotes: parse response")
	}

	factCount := len(res.Facts)
	entityCount := len(res.Entities)

	for _, q := range wire.Quotes {
		if q.Text == "" {
			continue
		}
		if q.SpeakerEntityID < 0 || q.SpeakerEntityID > entityCount {
			q.SpeakerEntityID = 0
		}
		if q.FactID < 0 || q.FactID > factCount {
			q.FactID = 0
		}
		res.Quotes = append(res.Quotes, model.ExtractedQuote{
			ID:              alloc.Next(model.IDKindQuote),
			Text:            q.Text,
			SpeakerEntityID: q.SpeakerEntityID,
			FactID:          q.FactID,
			Date:            q.Date,
			Context:         q.Context,
			Confidence:      q.Confidence,
		})
	}
	for _, d := range wire.Data {
		if d.Indicator == "" {
			continue
		}
		if d.FactID < 0 || d.FactID > factCount {
			d.FactID = 0
		}
		res.Data = append(res.Data, model.ExtractedDatum{
			ID:         alloc.Next(model.IDKindDatum),
			FactID:     d.FactID,
			Indicator:  d.Indicator,
			Value:      d.Value,
			Unit:       d.Unit,
			Period:     d.Period,
			Trend:      d.Trend,
			Confidence: d.Confidence,
		})
	}
	return nil
}

// renderFacts lists facts as numbered lines for prompt injection.
func renderFacts(facts []model.ExtractedFact) string {
	if len(facts) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "%d. %s\n", f.ID, f.Content)
	}
	return b.String()
}

// renderEntities lists entities as numbered lines for prompt injection.
func renderEntities(entities []model.ExtractedEntity) string {
	if len(entities) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, e := range entities {
		fmt.Fprintf(&b, "%d. %s (%s)\n", e.ID, e.Name, e.Type)
	}
	return b.String()
}
