package diag

import (
	"fmt"
	"sort"
	"strings"

	"ember/internal/source"
)

type renderedDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatDiagnostics renders diagnostics one per line in a stable order,
// suitable both for CLI short output and for golden comparisons in tests.
func FormatDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	rendered := make([]renderedDiagnostic, 0, len(diags))
	for _, d := range diags {
		start, _ := fs.Resolve(d.Primary)
		f := fs.Get(d.Primary.File)
		rendered = append(rendered, renderedDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Path:     f.Path,
			Line:     start.Line,
			Column:   start.Col,
			Message:  d.Message,
		})
		if includeNotes {
			for _, n := range d.Notes {
				ns, _ := fs.Resolve(n.Span)
				nf := fs.Get(n.Span.File)
				rendered = append(rendered, renderedDiagnostic{
					Severity: "NOTE",
					Code:     d.Code.ID(),
					Path:     nf.Path,
					Line:     ns.Line,
					Column:   ns.Col,
					Message:  n.Msg,
				})
			}
		}
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		return di.Code < dj.Code
	})

	var sb strings.Builder
	for _, r := range rendered {
		fmt.Fprintf(&sb, "%s %s %s:%d:%d %s\n", r.Severity, r.Code, r.Path, r.Line, r.Column, r.Message)
	}
	return sb.String()
}
