package verdict

// Flag is the judge's review status for a chunk.
type Flag string

const (
	FlagTrue  Flag = "true"
	FlagFalse Flag = "false"
	FlagHuman Flag = "human"
)

// Recommendation is the action the judge proposes for a flagged chunk.
type Recommendation string

const (
	RecommendDelete     Recommendation = "delete"
	RecommendRephrase   Recommendation = "rephrase"
	RecommendFactCheck  Recommendation = "fact-check"
	RecommendReferences Recommendation = "provide-references"
)

// Span is one verbatim quote from the chunk cited as evidence.
type Span struct {
	Quote string `json:"quote" bson:"quote"`
}

// Verdict is the structured judge output. All five fields are always
// populated; the parser substitutes documented defaults for anything the
// judge omitted or mangled. Confidence is canonically an integer percentage
// (0-100); fractional self-reported scores are normalised at parse time.
type Verdict struct {
	Flag           Flag           `json:"chunk_flagged" bson:"chunk_flagged"`
	Observation    string         `json:"observation" bson:"observation"`
	Spans          []Span         `json:"spans" bson:"spans"`
	Recommendation Recommendation `json:"recommendation" bson:"recommendation"`
	Confidence     int            `json:"confidence" bson:"confidence"`
}

// Default values substituted on parse failure.
const (
	DefaultObservation    = "Failed to parse LLM output. Requires human review."
	DefaultRecommendation = RecommendFactCheck
)

// Default returns the full fallback Verdict used when no JSON could be
// recovered from the judge's output.
func Default() Verdict {
	return Verdict{
		Flag:           FlagHuman,
		Observation:    DefaultObservation,
		Spans:          []Span{},
		Recommendation: DefaultRecommendation,
		Confidence:     0,
	}
}

// ErrorVerdict returns a fallback Verdict carrying a transport or API error
// description in place of an observation.
func ErrorVerdict(observation string) Verdict {
	v := Default()
	v.Observation = observation
	return v
}

// ValidFlag reports whether f is one of the three allowed flag values.
func ValidFlag(f Flag) bool {
	switch f {
	case FlagTrue, FlagFalse, FlagHuman:
		return true
	}
	return false
}

// ValidRecommendation reports whether r is one of the four allowed actions.
func ValidRecommendation(r Recommendation) bool {
	switch r {
	case RecommendDelete, RecommendRephrase, RecommendFactCheck, RecommendReferences:
		return true
	}
	return false
}

// Conformant reports whether the verdict satisfies the output schema: valid
// enum values and a confidence within 0-100. A "true" flag with no spans is
// deliberately accepted; see the parser notes.
func (v Verdict) Conformant() bool {
	if !ValidFlag(v.Flag) {
		return false
	}
	if !ValidRecommendation(v.Recommendation) {
		return false
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return false
	}
	return v.Spans != nil
}
