package rules

import (
	"context"
	"fmt"
	"go/ast"

	"golang.org/x/tools/go/analysis"

	"github.com/gnolang/fixverify/internal/edit"
	tt "github.com/gnolang/fixverify/internal/types"
)

var emptyElseAnalyzer = &analysis.Analyzer{
	Name: string(EmptyElse),
	Doc:  "reports else blocks that contain no statements",
	Run:  runEmptyElse,
}

func runEmptyElse(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			ifStmt, ok := n.(*ast.IfStmt)
			if !ok {
				return true
			}
			block, ok := ifStmt.Else.(*ast.BlockStmt)
			if !ok || len(block.List) > 0 || hasComments(file, block) {
				return true
			}
			// span covers the else keyword too
			pass.Report(analysis.Diagnostic{
				Pos:     ifStmt.Body.End(),
				End:     block.End(),
				Message: "empty else block",
			})
			return true
		})
	}
	return nil, nil
}

func newEmptyElseProvider() tt.FixProvider {
	return tt.ProviderFunc{
		IDs: []tt.RuleID{EmptyElse},
		Fn: func(_ context.Context, _ tt.Document, d tt.Diagnostic) ([]tt.FixAction, error) {
			if d.ID != EmptyElse {
				return nil, nil
			}
			action := edit.NewAction("Remove empty else", "RemoveEmptyElse", []tt.RuleID{EmptyElse},
				func(tt.Document) ([]edit.TextEdit, error) {
					return []edit.TextEdit{edit.Delete(d.Primary)}, nil
				})
			return []tt.FixAction{action}, nil
		},
	}
}

var unnecessaryElseAnalyzer = &analysis.Analyzer{
	Name: string(UnnecessaryElse),
	Doc:  "reports else blocks following an if body that always returns",
	Run:  runUnnecessaryElse,
}

func runUnnecessaryElse(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		for _, ifStmt := range unnecessaryElses(file) {
			pass.Report(analysis.Diagnostic{
				Pos:     ifStmt.Else.Pos(),
				End:     ifStmt.Else.End(),
				Message: "unnecessary else block: the if body ends with a return",
			})
		}
	}
	return nil, nil
}

// unnecessaryElses returns the if statements whose else block can be
// flattened into the enclosing block. Else-if links are skipped since
// flattening them would change which branches fall through, and so are
// statements with an init clause whose names the else block may use.
func unnecessaryElses(file *ast.File) []*ast.IfStmt {
	var found []*ast.IfStmt
	chained := make(map[*ast.IfStmt]bool)

	ast.Inspect(file, func(n ast.Node) bool {
		ifStmt, ok := n.(*ast.IfStmt)
		if !ok {
			return true
		}
		if next, ok := ifStmt.Else.(*ast.IfStmt); ok {
			chained[next] = true
		}
		block, ok := ifStmt.Else.(*ast.BlockStmt)
		if !ok || len(block.List) == 0 || chained[ifStmt] || ifStmt.Init != nil {
			return true
		}
		if len(ifStmt.Body.List) == 0 {
			return true
		}
		if _, ok := ifStmt.Body.List[len(ifStmt.Body.List)-1].(*ast.ReturnStmt); ok {
			found = append(found, ifStmt)
		}
		return true
	})
	return found
}

func newUnnecessaryElseProvider() tt.FixProvider {
	return tt.ProviderFunc{
		IDs: []tt.RuleID{UnnecessaryElse},
		Fn: func(_ context.Context, _ tt.Document, d tt.Diagnostic) ([]tt.FixAction, error) {
			if d.ID != UnnecessaryElse {
				return nil, nil
			}
			action := edit.NewAction("Remove unnecessary else", "RemoveUnnecessaryElse", []tt.RuleID{UnnecessaryElse},
				func(doc tt.Document) ([]edit.TextEdit, error) {
					return flattenElse(doc, d.Primary)
				})
			return []tt.FixAction{action}, nil
		},
	}
}

// flattenElse removes the "else {" and the closing brace of the else block
// starting at span, leaving its statements in the enclosing block.
// Indentation is left to the output normalizer.
func flattenElse(doc tt.Document, span tt.Span) ([]edit.TextEdit, error) {
	f, fset, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}

	var target *ast.IfStmt
	for _, ifStmt := range unnecessaryElses(f) {
		if offset(fset, ifStmt.Else.Pos()) == span.Start {
			target = ifStmt
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("no else block at %s", span)
	}

	text := doc.Text()
	block := target.Else.(*ast.BlockStmt)
	bodyEnd := offset(fset, target.Body.End())
	lbrace := offset(fset, block.Lbrace)
	rbrace := offset(fset, block.Rbrace)

	opening := edit.Replace(tt.NewSpan(bodyEnd, lbrace+1), "\n")
	if blankUntilEOL(text, lbrace+1) {
		opening.NewText = ""
	}

	closing := edit.Delete(tt.NewSpan(rbrace, rbrace+1))
	if blankSinceBOL(text, rbrace) && blankUntilEOL(text, rbrace+1) {
		start, end := lineBounds(text, rbrace)
		closing = edit.Delete(tt.NewSpan(start, end))
	}

	return []edit.TextEdit{opening, closing}, nil
}
