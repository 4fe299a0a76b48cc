// Package explain turns ranked causal evidence into a human-readable
// explanation with citations back to span ids.
package explain

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
	"github.com/Ritesh-97/causal-rationale-extraction-system/llm"
)

// Explanation is the narrative output for one analysis. Citations reference
// span ids from the evidence that grounded each claim.
type Explanation struct {
	Summary          string   `json:"summary"`
	KeyFactors       []string `json:"key_factors,omitempty"`
	CausalMechanisms []string `json:"causal_mechanisms,omitempty"`
	Citations        []string `json:"citations,omitempty"`
	// Generated marks a model-written narrative; false means the template
	// fallback produced it.
	Generated bool `json:"generated"`
}

// Generator produces explanations from evidence. With a nil client it falls
// back to a deterministic template built from the evidence itself.
type Generator struct {
	client llm.Client
	model  string
	logger zerolog.Logger
}

// NewGenerator creates a Generator. client may be nil.
func NewGenerator(client llm.Client, model string, logger zerolog.Logger) *Generator {
	return &Generator{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "explain").Logger(),
	}
}

const systemPrompt = `You explain why a business event happened in a customer conversation, using only the numbered evidence excerpts provided. Structure your answer as:

Summary: one or two sentences.
Key Factors:
- one factor per line
Causal Mechanisms:
- one mechanism per line

Cite evidence with bracketed numbers like [1]. Never invent facts that are not in the excerpts.`

// Explain generates an explanation for the analysis result. A NoEvidence
// result yields a fixed empty-evidence explanation without calling the model.
func (g *Generator) Explain(ctx context.Context, query string, result *causal.Result) (*Explanation, error) {
	if result == nil || result.NoEvidence || len(result.Evidence) == 0 {
		return &Explanation{
			Summary: fmt.Sprintf("No supporting evidence was found for %q.", query),
		}, nil
	}

	if g.client == nil {
		return g.template(result), nil
	}

	prompt := buildPrompt(query, result)
	resp, err := g.client.Synchronous(ctx, &llm.Request{
		Model:     g.model,
		System:    systemPrompt,
		MaxTokens: 1024,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, causal.NewCollaboratorError("explainer", err)
	}

	exp := parseResponse(resp.Text, result.Evidence)
	exp.Generated = true
	g.logger.Debug().
		Str("query", query).
		Int("citations", len(exp.Citations)).
		Msg("Generated explanation")
	return exp, nil
}

func buildPrompt(query string, result *causal.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nEvent type: %s\n\nEvidence:\n", query, result.EventType)
	for i, item := range result.Evidence {
		fmt.Fprintf(&b, "[%d] (score %.2f) %s\n", i+1, item.FinalScore, item.Span.Text())
	}
	return b.String()
}

var citationRE = regexp.MustCompile(`\[(\d+)\]`)

// parseResponse extracts the structured sections and maps bracketed citation
// numbers back to span ids. Out-of-range citations are dropped.
func parseResponse(text string, evidence []causal.EvidenceItem) *Explanation {
	exp := &Explanation{}

	section := ""
	var summary []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "summary:"):
			section = "summary"
			rest := strings.TrimSpace(trimmed[len("summary:"):])
			if rest != "" {
				summary = append(summary, rest)
			}
			continue
		case strings.HasPrefix(lower, "key factors"):
			section = "factors"
			continue
		case strings.HasPrefix(lower, "causal mechanisms"):
			section = "mechanisms"
			continue
		}

		item := strings.TrimLeft(trimmed, "-* ")
		switch section {
		case "factors":
			exp.KeyFactors = append(exp.KeyFactors, item)
		case "mechanisms":
			exp.CausalMechanisms = append(exp.CausalMechanisms, item)
		default:
			summary = append(summary, trimmed)
		}
	}
	exp.Summary = strings.Join(summary, " ")

	var citations []string
	for _, m := range citationRE.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(evidence) {
			continue
		}
		citations = append(citations, evidence[n-1].Span.ID)
	}
	exp.Citations = lo.Uniq(citations)
	return exp
}

// template builds a deterministic explanation straight from the evidence,
// used when no model is configured.
func (g *Generator) template(result *causal.Result) *Explanation {
	top := result.Evidence[0]
	exp := &Explanation{
		Summary: fmt.Sprintf(
			"The strongest evidence for the %s event is span %s (score %.2f).",
			result.EventType, top.Span.ID, top.FinalScore),
	}
	for _, item := range result.Evidence {
		exp.Citations = append(exp.Citations, item.Span.ID)
		for _, p := range item.Patterns {
			exp.KeyFactors = append(exp.KeyFactors, fmt.Sprintf("%s: %s", p.Kind, p.Description))
		}
	}
	exp.KeyFactors = lo.Uniq(exp.KeyFactors)
	return exp
}
