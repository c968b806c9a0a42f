package prompt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/bookaudit/errors"
	"github.com/sweetpotato0/bookaudit/pkg/logging"
	"github.com/sweetpotato0/bookaudit/policy"
	"github.com/sweetpotato0/bookaudit/review"
)

// NonePlaceholder stands in for an absent neighbouring chunk in the inputs
// block.
const NonePlaceholder = "[None]"

// outputContract is the fixed tail of every judge prompt: evidence rules, the
// human-review escape hatch, and the output schema the parser expects.
const outputContract = `## Evidence & Mapping Requirements

If you flag:

spans: list one or more exact minimal quotes (no more than 50 words each) from the Target Chunk only. Keep quotes minimal, no more than needed to evidence the claim. If multiple issues exist, include multiple spans.

If you do **not** flag:

* Provide a brief observation stating why the chunk passes the review criteria.

---
### Human Review

* If ambiguous phrasing or insufficient evidence, return ` + "`\"chunk_flagged\": \"human\"`" + `.

---

## Output JSON Schema
**Crucial:** Return **ONLY** the JSON object, do not add any extra text, comments, or conversational sentences before or after the JSON.

` + "```json" + `
{
  "chunk_flagged": "true|false|human",
  "observation": "Brief reasoning (no more than 120 words). If flagged, include rule references.",
  "spans": [
    {
      "quote": "exact text from target chunk only"
    }
  ],
  "recommendation": "delete|rephrase|fact-check|provide-references",
  "confidence": 0.0
}
` + "```" + `
- All keys (chunk_flagged, observation, spans, recommendation, confidence) must always be present in the returned JSON object.
- When chunk_flagged is "true", the spans array MUST contain one or more JSON objects, each with a "quote" key and the exact flagged text from the target chunk.
- Use an empty array for spans when chunk_flagged is "false" or "human".`

// Library builds judge prompts from agent policy documents. Agents are fixed
// at construction, so a Library is safe for concurrent use and every prompt
// for the same (agent, chunk) pair is identical.
type Library struct {
	agents        map[string]policy.Agent
	tokenizer     *Tokenizer
	contextBudget int
	logger        *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithTokenizer enables token-budgeted trimming of neighbouring context.
func WithTokenizer(t *Tokenizer, budget int) LibraryOption {
	return func(l *Library) {
		l.tokenizer = t
		l.contextBudget = budget
	}
}

// NewLibrary creates a prompt library over the given agents.
func NewLibrary(agents []policy.Agent, opts ...LibraryOption) *Library {
	l := &Library{
		agents: make(map[string]policy.Agent, len(agents)),
		logger: logging.WithComponent("prompt"),
	}
	for _, a := range agents {
		l.agents[a.Name] = a.Resolve()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Judge builds the judge prompt for the named agent and chunk.
func (l *Library) Judge(agentName string, chunk review.Chunk) (string, error) {
	agent, ok := l.agents[agentName]
	if !ok {
		return "", fmt.Errorf("agent %q: %w", agentName, errors.ErrNotFound)
	}
	return l.Compose(agent, chunk), nil
}

// Compose assembles the full judge prompt for an agent: introduction,
// objective, the inputs block, the knowledge base, the decision framework,
// any operator-supplied knowledge entries, and the fixed output contract.
func (l *Library) Compose(agent policy.Agent, chunk review.Chunk) string {
	b := NewBuilder()

	if intro, ok := agent.Section(policy.SectionIntro); ok {
		b.Add(intro.Content)
	} else if agent.Criteria != "" {
		// Seeded agents carry bare criteria instead of a full policy
		// document.
		b.AddFormat("You are the %s reviewer. Review the target chunk against the following criteria:\n%s", agent.Name, agent.Criteria)
	}

	if s, ok := agent.Section(policy.SectionObjective); ok {
		b.AddSection("Primary Objective", s.Content)
	}

	b.Add(l.inputs(chunk))

	if kb := l.knowledgeBase(agent); kb != "" {
		b.AddSection("Knowledge Base", kb)
	}

	if s, ok := agent.Section(policy.SectionDecision); ok {
		b.AddSection("Decision Framework", s.Content)
	}

	if entries := l.userKnowledge(agent); entries != "" {
		b.AddSection("Some other Knowledge Base to follow", entries)
	}

	b.Add(outputContract)
	return b.Build()
}

// inputs renders the book title, the target chunk and its trimmed
// neighbours. Absent neighbours render as a placeholder so the judge never
// mistakes an empty field for missing input.
func (l *Library) inputs(chunk review.Chunk) string {
	previous := NormalizeText(chunk.Previous)
	next := NormalizeText(chunk.Next)
	if l.tokenizer != nil && l.contextBudget > 0 {
		previous = l.tokenizer.KeepTail(previous, l.contextBudget)
		next = l.tokenizer.KeepHead(next, l.contextBudget)
	}

	return fmt.Sprintf(`## Inputs

* Book Title: %s
* **Previous_chunk (for reference only):** %s
* **Target_chunk (review focus):** %s
* **Next_chunk (for reference only):** %s`,
		chunk.Title,
		orPlaceholder(previous),
		NormalizeText(chunk.Text),
		orPlaceholder(next))
}

// knowledgeBase merges the narrative, key-point, sensitive-aspect,
// terminology and sources sections into one block, in that order.
func (l *Library) knowledgeBase(agent policy.Agent) string {
	var parts []string

	appendSections := func(kind policy.SectionKind) {
		for _, s := range agent.SectionsOf(kind) {
			parts = append(parts, fmt.Sprintf("%s\n%s", s.Heading, s.Content))
		}
	}

	appendSections(policy.SectionNarrative)

	if points := agent.KeyPoints(); len(points) > 0 {
		var sb strings.Builder
		sb.WriteString("### Key Points\n")
		for i, p := range points {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
		}
		parts = append(parts, strings.TrimRight(sb.String(), "\n"))
	}

	appendSections(policy.SectionSensitive)
	appendSections(policy.SectionTerminology)
	appendSections(policy.SectionSources)

	return strings.Join(parts, "\n\n")
}

// userKnowledge renders operator-supplied knowledge-base entries as numbered
// JSON blocks. Entries that fail to marshal are skipped with a warning.
func (l *Library) userKnowledge(agent policy.Agent) string {
	if len(agent.KnowledgeBase) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, entry := range agent.KnowledgeBase {
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			l.logger.Warn("skipping unmarshalable knowledge-base entry",
				"agent", agent.Name, "entry", i+1, "error", err)
			continue
		}
		fmt.Fprintf(&sb, "### KB Entry %d\n%s\n", i+1, data)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return NonePlaceholder
	}
	return s
}
