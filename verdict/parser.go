package verdict

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sweetpotato0/bookaudit/errors"
	"github.com/sweetpotato0/bookaudit/pkg/logging"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Parser turns arbitrary judge output into a well-formed Verdict. It never
// fails: when nothing parsable can be recovered the documented default
// Verdict is returned together with a non-nil error so callers can tell a
// recovered verdict from a defaulted one.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = logging.WithComponent("parser")
	}
	return &Parser{logger: logger}
}

// Parse extracts a Verdict from raw judge text. The extraction ladder:
//
//  1. fenced ```json block
//  2. the whole string
//  3. the first '{' through the last '}'
//
// Each candidate is parsed as-is first and then, if invalid, after a repair
// pass for truncated or sloppy JSON. On total failure the default Verdict is
// returned with errors.ErrNoJSON.
func (p *Parser) Parse(raw string) (Verdict, error) {
	for _, candidate := range candidates(raw) {
		obj, ok := parseObject(candidate)
		if !ok {
			continue
		}
		return p.coerce(obj, raw), nil
	}

	p.logger.Warn("no JSON object recovered from judge output",
		"raw", truncate(raw, 200))
	return Default(), fmt.Errorf("parse judge output: %w", errors.ErrNoJSON)
}

func candidates(raw string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		out = append(out, m[1])
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		out = append(out, trimmed)
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		out = append(out, raw[start:end+1])
	}
	return out
}

func parseObject(candidate string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// coerce maps the parsed object onto a Verdict, substituting the documented
// default for every missing or type-mangled field.
func (p *Parser) coerce(obj map[string]any, raw string) Verdict {
	def := Default()
	v := Verdict{}

	v.Flag = p.coerceFlag(obj, def.Flag)
	v.Observation = p.coerceString(obj, "observation", def.Observation)
	v.Spans = p.coerceSpans(obj)
	v.Recommendation = p.coerceRecommendation(obj, def.Recommendation)
	v.Confidence = p.coerceConfidence(obj)

	// Accepted as returned; downstream consumers must tolerate a flagged
	// verdict without evidence.
	if v.Flag == FlagTrue && len(v.Spans) == 0 {
		p.logger.Warn("verdict flagged true with no evidence spans",
			"observation", v.Observation)
	}
	return v
}

func (p *Parser) coerceFlag(obj map[string]any, fallback Flag) Flag {
	val, present := obj["chunk_flagged"]
	if !present {
		p.missing("chunk_flagged")
		return fallback
	}
	switch t := val.(type) {
	case string:
		f := Flag(strings.ToLower(strings.TrimSpace(t)))
		if ValidFlag(f) {
			return f
		}
	case bool:
		if t {
			return FlagTrue
		}
		return FlagFalse
	}
	p.mangled("chunk_flagged", val)
	return fallback
}

func (p *Parser) coerceString(obj map[string]any, key, fallback string) string {
	val, present := obj[key]
	if !present {
		p.missing(key)
		return fallback
	}
	s, ok := val.(string)
	if !ok {
		p.mangled(key, val)
		return fallback
	}
	return s
}

func (p *Parser) coerceSpans(obj map[string]any) []Span {
	val, present := obj["spans"]
	if !present {
		p.missing("spans")
		return []Span{}
	}
	items, ok := val.([]any)
	if !ok {
		p.mangled("spans", val)
		return []Span{}
	}
	spans := make([]Span, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any:
			if quote, ok := t["quote"].(string); ok && quote != "" {
				spans = append(spans, Span{Quote: quote})
			}
		case string:
			// Some judges emit bare quote strings.
			if t != "" {
				spans = append(spans, Span{Quote: t})
			}
		}
	}
	return spans
}

func (p *Parser) coerceRecommendation(obj map[string]any, fallback Recommendation) Recommendation {
	val, present := obj["recommendation"]
	if !present {
		p.missing("recommendation")
		return fallback
	}
	s, ok := val.(string)
	if !ok {
		p.mangled("recommendation", val)
		return fallback
	}
	// The schema says "provide-references" but prompts have historically
	// spelled it with a space; accept both.
	r := Recommendation(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-"))
	if !ValidRecommendation(r) {
		p.mangled("recommendation", val)
		return fallback
	}
	return r
}

func (p *Parser) coerceConfidence(obj map[string]any) int {
	val, present := obj["confidence"]
	if !present {
		p.missing("confidence")
		return 0
	}
	f, ok := toFloat(val)
	if !ok {
		p.mangled("confidence", val)
		return 0
	}
	return NormalizeConfidence(f)
}

// NormalizeConfidence converts a self-reported confidence to the canonical
// 0-100 integer scale. Judges report fractions (0.0-1.0) in some templates
// and percentages in others; anything at or below 1.0 is treated as a
// fraction.
func NormalizeConfidence(f float64) int {
	if f <= 1.0 && f >= 0 {
		f = f * 100
	}
	n := int(math.Round(f))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func toFloat(val any) (float64, bool) {
	switch t := val.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func (p *Parser) missing(key string) {
	p.logger.Warn("missing key in judge output, using default", "key", key)
}

func (p *Parser) mangled(key string, val any) {
	p.logger.Warn("invalid value in judge output, using default", "key", key, "value", val)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
