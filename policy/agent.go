package policy

import (
	"strings"

	"github.com/sweetpotato0/bookaudit/config"
)

// DefaultThreshold is applied when an agent document carries no confidence
// threshold of its own.
const DefaultThreshold = 80

// Section is one titled block of an agent's policy document.
type Section struct {
	Heading string `bson:"heading" json:"heading"`
	Content string `bson:"content" json:"content"`
}

// Agent is one policy-review persona: a named set of criteria with a
// confidence threshold. Loaded once from the configuration store and
// immutable for the duration of a review run; all optional fields are
// resolved to concrete values by Resolve before the agent is used.
type Agent struct {
	Name      string `bson:"agent_name" json:"agent_name"`
	Type      string `bson:"type" json:"type"`
	Criteria  string `bson:"criteria" json:"criteria"`
	Threshold int    `bson:"confidence_score" json:"confidence_score"`

	Sections       []Section        `bson:"sections" json:"sections"`
	PolicyGuidance []string         `bson:"user_policy_guidance" json:"user_policy_guidance"`
	KnowledgeBase  []map[string]any `bson:"user_knowledgebase" json:"user_knowledgebase"`
}

// Resolve fills defaults for optional fields so later consumers never have to
// re-derive them per prompt build.
func (a Agent) Resolve() Agent {
	if a.Threshold <= 0 || a.Threshold > 100 {
		a.Threshold = DefaultThreshold
	}
	if a.Type == "" {
		a.Type = TypeAnalysis
	}
	if a.PolicyGuidance == nil {
		a.PolicyGuidance = []string{}
	}
	if a.KnowledgeBase == nil {
		a.KnowledgeBase = []map[string]any{}
	}
	return a
}

// Validate checks that the agent definition is usable.
func (a Agent) Validate() error {
	v := config.NewValidator()
	v.RequireNonEmpty("agent_name", a.Name)
	v.ValidateRange("confidence_score", a.Threshold, 0, 100)
	return v.Error()
}

// TypeAnalysis marks agents that participate in chunk analysis; other types
// in the agents collection are ignored by the reviewer.
const TypeAnalysis = "analysis"

// SectionKind names a canonical part of an agent's policy document.
type SectionKind string

const (
	SectionIntro       SectionKind = "intro"
	SectionObjective   SectionKind = "primary objective"
	SectionNarrative   SectionKind = "official narrative"
	SectionKeyPoints   SectionKind = "key points"
	SectionSensitive   SectionKind = "sensitive"
	SectionTerminology SectionKind = "terminology"
	SectionSources     SectionKind = "sources"
	SectionDecision    SectionKind = "decision framework"
)

// sectionMatchers maps each canonical section to the case-insensitive
// substring its heading is matched on. Declared once instead of scattering
// string searches through the prompt builder.
var sectionMatchers = map[SectionKind]string{
	SectionIntro:       "intro",
	SectionObjective:   "primary objective",
	SectionNarrative:   "official narrative",
	SectionKeyPoints:   "key points",
	SectionSensitive:   "sensitive",
	SectionTerminology: "terminology",
	SectionSources:     "sources",
	SectionDecision:    "decision framework",
}

// Section returns the first section whose heading matches the kind.
func (a Agent) Section(kind SectionKind) (Section, bool) {
	for _, s := range a.SectionsOf(kind) {
		return s, true
	}
	return Section{}, false
}

// SectionsOf returns every section whose heading matches the kind. For
// SectionIntro, a section with no heading at all also qualifies, matching how
// policy documents are authored.
func (a Agent) SectionsOf(kind SectionKind) []Section {
	needle, ok := sectionMatchers[kind]
	if !ok {
		return nil
	}

	var out []Section
	for _, s := range a.Sections {
		heading := strings.ToLower(s.Heading)
		if strings.Contains(heading, needle) {
			out = append(out, s)
		}
	}
	if len(out) == 0 && kind == SectionIntro {
		for _, s := range a.Sections {
			if strings.TrimSpace(s.Heading) == "" {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// KeyPoints merges the key-points section lines with any user policy
// guidance, stripping list numbering. The result feeds the knowledge-base
// block of the judge prompt.
func (a Agent) KeyPoints() []string {
	var points []string
	for _, s := range a.SectionsOf(SectionKeyPoints) {
		for _, line := range strings.Split(s.Content, "\n") {
			cleaned := strings.TrimSpace(strings.TrimLeft(line, "0123456789. "))
			if cleaned != "" {
				points = append(points, cleaned)
			}
		}
	}
	points = append(points, a.PolicyGuidance...)
	return points
}
