package rules

import (
	"context"
	"errors"
	"fmt"
	"go/format"
	"go/parser"
	"go/scanner"
	"go/token"

	tt "github.com/gnolang/fixverify/internal/types"
)

// GoSyntax reports Go syntax errors as validity diagnostics.
type GoSyntax struct{}

func (GoSyntax) Check(ctx context.Context, doc tt.Document) ([]tt.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, filename(doc), doc.Text(), parser.AllErrors)
	if err == nil {
		return nil, nil
	}

	var list scanner.ErrorList
	if !errors.As(err, &list) {
		return nil, fmt.Errorf("parse %s: %w", filename(doc), err)
	}
	diags := make([]tt.Diagnostic, 0, len(list))
	for _, e := range list {
		diags = append(diags, tt.Diagnostic{
			ID: SyntaxError,
			Primary: tt.Span{
				Start: e.Pos.Offset,
				End:   e.Pos.Offset,
				Hint:  tt.LinePosition{Line: e.Pos.Line, Column: e.Pos.Column},
			},
			Message:  e.Msg,
			Severity: tt.SeverityError,
		})
	}
	return diags, nil
}

// GoFormat normalizes output with gofmt.
type GoFormat struct{}

func (GoFormat) Normalize(_ context.Context, doc tt.Document) (string, error) {
	out, err := format.Source([]byte(doc.Text()))
	if err != nil {
		return "", fmt.Errorf("gofmt %s: %w", filename(doc), err)
	}
	return string(out), nil
}
