package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/sweetpotato0/bookaudit/review"
	"github.com/sweetpotato0/bookaudit/verdict"
)

// Entry pairs a reviewed chunk with its aggregate report for rendering.
type Entry struct {
	Chunk  review.Chunk
	Report review.AggregateReport
}

// row is one (chunk, agent) line of the HTML table.
type row struct {
	ChunkID        string
	Text           string
	Agent          string
	Flag           string
	Observation    string
	Quotes         []string
	Recommendation string
	Confidence     int
	EvalScore      int
	Retries        int
	HumanReview    bool
	RowClass       string
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #f4f4f9; }
        h1 { color: #333; text-align: center; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1); }
        th, td { padding: 12px 15px; text-align: left; border: 1px solid #ddd; word-wrap: break-word; }
        thead { background-color: #4CAF50; color: white; }
        tbody tr:nth-child(even) { background-color: #f2f2f2; }
        tbody tr:hover { background-color: #e2e2e2; }
        .flagged { background-color: #ffcccc; }
        .not-flagged { background-color: #ccffcc; }
        .human-review { background-color: #ffffe0; }
        .chunk-id { font-size: 0.8em; color: #666; }
        .eval-score { font-weight: bold; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <table>
        <thead>
            <tr>
                <th>Chunk ID / Input Text</th>
                <th>Agent</th>
                <th>Chunk Flagged</th>
                <th>Observation</th>
                <th>Spans (Quotes)</th>
                <th>Recommendation</th>
                <th>Confidence (Agent)</th>
                <th>Evaluation Score (0-100)</th>
                <th>Retries</th>
                <th>Human Review</th>
            </tr>
        </thead>
        <tbody>
{{- range .Rows}}
            <tr class="{{.RowClass}}">
                <td><div class="chunk-id">ID: {{.ChunkID}}</div>{{.Text}}</td>
                <td>{{.Agent}}</td>
                <td>{{.Flag}}</td>
                <td>{{.Observation}}</td>
                <td>{{range $i, $q := .Quotes}}{{if $i}}<br>{{end}}{{$q}}{{end}}</td>
                <td>{{.Recommendation}}</td>
                <td>{{.Confidence}}</td>
                <td><span class="eval-score">{{.EvalScore}}</span></td>
                <td>{{.Retries}}</td>
                <td>{{.HumanReview}}</td>
            </tr>
{{- end}}
        </tbody>
    </table>
</body>
</html>
`))

// HTMLReport writes review results as a single self-contained HTML table,
// one row per (chunk, agent) pair.
type HTMLReport struct {
	Title string
}

// Write renders the entries to w. Entries are rendered in the order given;
// agents within a chunk are sorted by name.
func (h *HTMLReport) Write(w io.Writer, entries []Entry) error {
	title := h.Title
	if title == "" {
		title = "LLM Review Report"
	}

	var rows []row
	for _, e := range entries {
		names := make([]string, 0, len(e.Report.Results))
		for name := range e.Report.Results {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			res := e.Report.Results[name]
			quotes := make([]string, 0, len(res.Verdict.Spans))
			for _, span := range res.Verdict.Spans {
				quotes = append(quotes, span.Quote)
			}
			rows = append(rows, row{
				ChunkID:        e.Chunk.ID,
				Text:           e.Chunk.Text,
				Agent:          name,
				Flag:           string(res.Verdict.Flag),
				Observation:    res.Verdict.Observation,
				Quotes:         quotes,
				Recommendation: string(res.Verdict.Recommendation),
				Confidence:     res.Verdict.Confidence,
				EvalScore:      res.Confidence,
				Retries:        res.Retries,
				HumanReview:    res.HumanReview,
				RowClass:       rowClass(res),
			})
		}
	}

	data := struct {
		Title string
		Rows  []row
	}{Title: title, Rows: rows}

	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

func rowClass(res review.RunResult) string {
	if res.HumanReview || res.Verdict.Flag == verdict.FlagHuman {
		return "human-review"
	}
	if res.Verdict.Flag == verdict.FlagTrue {
		return "flagged"
	}
	return "not-flagged"
}
