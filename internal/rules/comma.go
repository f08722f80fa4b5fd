package rules

import (
	"context"
	"go/parser"
	"go/scanner"
	"go/token"

	"github.com/gnolang/fixverify/internal/nolint"
	tt "github.com/gnolang/fixverify/internal/types"
)

// trailingCommaAnalyzer works on the token stream since the syntax tree does
// not record trailing commas.
type trailingCommaAnalyzer struct {
	severity tt.Severity
}

func (trailingCommaAnalyzer) Name() string { return string(RedundantTrailingComma) }

func (a trailingCommaAnalyzer) Analyze(ctx context.Context, doc tt.Document) ([]tt.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := []byte(doc.Text())
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename(doc), src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	suppressed := nolint.Parse(file, fset)

	var s scanner.Scanner
	tf := fset.AddFile(filename(doc), -1, len(src))
	s.Init(tf, src, nil, 0)

	var (
		diags     []tt.Diagnostic
		lastTok   token.Token
		lastComma token.Position
	)
	for {
		pos, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.RBRACE && lastTok == token.COMMA {
			closing := tf.Position(pos)
			if closing.Line == lastComma.Line && !suppressed.Suppressed(lastComma.Line, RedundantTrailingComma) {
				diags = append(diags, tt.Diagnostic{
					ID: RedundantTrailingComma,
					Primary: tt.Span{
						Start: lastComma.Offset,
						End:   lastComma.Offset + 1,
						Hint:  tt.LinePosition{Line: lastComma.Line, Column: lastComma.Column},
					},
					Message:  "redundant trailing comma before closing brace",
					Severity: a.severity,
				})
			}
		}
		if tok == token.COMMA {
			lastComma = tf.Position(pos)
		}
		lastTok = tok
	}
	return diags, nil
}
