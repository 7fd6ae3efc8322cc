package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ttyrec"
)

// maxPreview bounds the action preview in reports.
const maxPreview = 64

// Report summarises a recording.
type Report struct {
	Path          string
	Records       int
	OutputRecords int
	ActionRecords int
	OutputBytes   int64
	Start         time.Time
	End           time.Time
	Truncated     bool
	Actions       []domain.Action
}

// Duration is the span between the first and the last record.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Inspect reads a recording, plain or archived, and summarises it.
func Inspect(path string) (*Report, error) {
	recs, truncated, err := ttyrec.Load(path)
	if err != nil {
		return nil, err
	}

	r := &Report{Path: path, Records: len(recs), Truncated: truncated}
	for i, rec := range recs {
		if i == 0 {
			r.Start = rec.Time()
		}
		r.End = rec.Time()
		switch rec.Channel {
		case domain.ChannelOutput:
			r.OutputRecords++
			r.OutputBytes += int64(len(rec.Payload))
		case domain.ChannelInput:
			r.ActionRecords++
		}
	}
	r.Actions = ttyrec.Actions(recs)
	return r, nil
}

func (r *Report) preview() string {
	var b strings.Builder
	for i, a := range r.Actions {
		if i == maxPreview {
			b.WriteString(" …")
			break
		}
		b.WriteString(a.String())
	}
	return b.String()
}

// WriteText prints the report as aligned plain text.
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Recording:  %s\n", r.Path)
	fmt.Fprintf(w, "Records:    %d (%d output, %d actions)\n", r.Records, r.OutputRecords, r.ActionRecords)
	fmt.Fprintf(w, "Output:     %d bytes\n", r.OutputBytes)
	if r.Records > 0 {
		fmt.Fprintf(w, "Span:       %s → %s (%s)\n",
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), r.Duration().Round(time.Millisecond))
	}
	if len(r.Actions) > 0 {
		fmt.Fprintf(w, "Actions:    %s\n", r.preview())
	}
	if r.Truncated {
		fmt.Fprintln(w, "Warning:    ends with a partial record")
	}
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Recording `%s`\n\n", r.Path)
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Records | %d |\n", r.Records)
	fmt.Fprintf(&b, "| Output records | %d |\n", r.OutputRecords)
	fmt.Fprintf(&b, "| Action records | %d |\n", r.ActionRecords)
	fmt.Fprintf(&b, "| Output bytes | %d |\n", r.OutputBytes)
	if r.Records > 0 {
		fmt.Fprintf(&b, "| Duration | %s |\n", r.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "| Truncated | %t |\n", r.Truncated)
	if len(r.Actions) > 0 {
		fmt.Fprintf(&b, "\n## Actions\n\n```\n%s\n```\n", r.preview())
	}
	return b.String()
}
