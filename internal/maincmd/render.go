package maincmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mna/wisteria/lang/ast"
	"github.com/mna/wisteria/lang/diag"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiCyan  = "\x1b[36m"
	ansiFaint = "\x1b[2m"
)

// renderDiagnostic prints one structured diagnostic: the core only
// produces records, all formatting decisions live here.
func renderDiagnostic(w io.Writer, d *diag.Diagnostic, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}

	header := d.Render()
	if color {
		header = ansiBold + ansiRed + header + ansiReset
	}
	fmt.Fprintln(w, header)

	if d.File != nil {
		fmt.Fprintf(w, "  %s %s:%s\n", paint(ansiFaint, "-->"), d.File.Name, d.Span.Start)
	}
	for _, l := range d.Labels {
		fmt.Fprintf(w, "  %s %s: %s\n", paint(ansiFaint, "label"), l.Span, l.Message)
	}
	for _, h := range d.Hints {
		fmt.Fprintf(w, "  %s %s\n", paint(ansiCyan, "hint:"), h)
	}
	for _, line := range d.StackTrace {
		fmt.Fprintf(w, "  %s\n", paint(ansiFaint, line))
	}
	for _, r := range d.Related {
		renderDiagnostic(w, r, color)
	}
}

// renderRuntimeError prints the VM's failure: a structured diagnostic
// when available, the raw (possibly pre-rendered) message otherwise.
func renderRuntimeError(w io.Writer, err error, color bool) {
	var d *diag.Diagnostic
	if errors.As(err, &d) {
		renderDiagnostic(w, d, color)
		return
	}
	fmt.Fprintln(w, err)
}

// fileImporter resolves import paths against the module search roots and
// parses them through the front-end hook.
type fileImporter struct {
	roots []string
}

func (fi *fileImporter) Import(path string) (*ast.Program, error) {
	if ParseSource == nil {
		return nil, errors.New("no language front end is linked into this build")
	}
	candidates := make([]string, 0, len(fi.roots)+1)
	for _, root := range fi.roots {
		candidates = append(candidates, filepath.Join(root, path))
	}
	candidates = append(candidates, path)

	for _, cand := range candidates {
		src, err := os.ReadFile(cand)
		if err != nil {
			continue
		}
		prog, _, err := ParseSource(cand, src)
		return prog, err
	}
	return nil, fmt.Errorf("module %q not found in any search root", path)
}
