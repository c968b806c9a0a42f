package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sweetpotato0/bookaudit/review"
)

// Summary renders one chunk's aggregate report as the plain-text decision
// report: one block per agent, sorted by agent name, with N/A stand-ins for
// agents that produced no result.
func Summary(agentNames []string, report review.AggregateReport) string {
	var sb strings.Builder
	sb.WriteString("*Review Report:*\n\n")

	names := append([]string(nil), agentNames...)
	sort.Strings(names)

	for _, name := range names {
		res, ok := report.Results[name]
		if !ok {
			fmt.Fprintf(&sb, "*%s Review:*\n  Status: N/A\n  Observation: N/A\n  Spans: N/A\n  Recommendation: N/A\n  Confidence: 0%%\n  Retries: 0\n  Human Review Needed: false\n\n", name)
			continue
		}

		quotes := make([]string, 0, len(res.Verdict.Spans))
		for _, span := range res.Verdict.Spans {
			if span.Quote != "" {
				quotes = append(quotes, span.Quote)
			}
		}
		spansText := strings.Join(quotes, "; ")
		if spansText == "" {
			spansText = "N/A"
		}

		fmt.Fprintf(&sb,
			"*%s Review:*\n"+
				"  Status: %s\n"+
				"  Observation: %s\n"+
				"  Spans: %s\n"+
				"  Recommendation: %s\n"+
				"  Confidence: %d%%\n"+
				"  Retries: %d\n"+
				"  Human Review Needed: %t\n\n",
			name,
			res.Verdict.Flag,
			res.Verdict.Observation,
			spansText,
			res.Verdict.Recommendation,
			res.Confidence,
			res.Retries,
			res.HumanReview)
	}

	fmt.Fprintf(&sb, "Chunk %s status: %s\n", report.ChunkID, report.Status)
	return sb.String()
}
