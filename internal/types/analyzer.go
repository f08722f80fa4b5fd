package types

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/analysis"
)

// AnalysisAnalyzer adapts a syntax-only *analysis.Analyzer to Analyzer.
// The analyzer must not depend on type information or on the results of
// other analyzers. Reported diagnostics take the analyzer's name as id
// unless the diagnostic's Category names one.
type AnalysisAnalyzer struct {
	Analyzer *analysis.Analyzer
	Severity Severity

	// Filter, when set, drops diagnostics for which it returns false.
	Filter func(file *ast.File, fset *token.FileSet, d Diagnostic) bool
}

func (a AnalysisAnalyzer) Name() string { return a.Analyzer.Name }

// Analyze parses doc as a Go file and runs the wrapped analyzer over it.
func (a AnalysisAnalyzer) Analyze(ctx context.Context, doc Document) ([]Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, documentFilename(doc), doc.Text(), parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%s: parse document: %w", a.Analyzer.Name, err)
	}

	var diags []Diagnostic
	pass := &analysis.Pass{
		Analyzer: a.Analyzer,
		Fset:     fset,
		Files:    []*ast.File{file},
		ResultOf: map[*analysis.Analyzer]interface{}{},
		Report: func(d analysis.Diagnostic) {
			id := RuleID(a.Analyzer.Name)
			if d.Category != "" {
				id = RuleID(d.Category)
			}
			end := d.End
			if !end.IsValid() {
				end = d.Pos
			}
			start := fset.Position(d.Pos)
			span := Span{
				Start: start.Offset,
				End:   fset.Position(end).Offset,
				Hint:  LinePosition{Line: start.Line, Column: start.Column},
			}
			diags = append(diags, Diagnostic{
				ID:       id,
				Primary:  span,
				Message:  d.Message,
				Severity: a.Severity,
			})
		},
	}

	if _, err := a.Analyzer.Run(pass); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Analyzer.Name, err)
	}

	if a.Filter == nil {
		return diags, nil
	}
	kept := diags[:0]
	for _, d := range diags {
		if a.Filter(file, fset, d) {
			kept = append(kept, d)
		}
	}
	return kept, nil
}

func documentFilename(doc Document) string {
	if doc.Name() != "" {
		return doc.Name()
	}
	return "document.go"
}
