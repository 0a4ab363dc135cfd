package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
)

// triage runs the relevance and language check.
func (c *Coordinator) triage(ctx context.Context, res *model.UnitResult) error {
	prompt := fmt.Sprintf(triagePrompt, res.Unit.Title, truncate(res.Unit.Text, maxPromptChars))

	resp, err := c.llm.Generate(ctx, llm.Request{
		System:    triageSystem,
		Prompt:    prompt,
		MaxTokens: 1024,
	})
	if err != nil {
		return err
	}
	c.recordUsage(res, PhaseTriage, resp.Usage)

	var dec model.TriageDecision
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &dec); err != nil {
		return eris.Wrap(err, "triage: parse response")
	}
	res.Triage = dec
	return nil
}
