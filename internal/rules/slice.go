package rules

import (
	"context"
	"fmt"
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"

	"github.com/gnolang/fixverify/internal/edit"
	tt "github.com/gnolang/fixverify/internal/types"
)

const msgUnnecessaryLen = "unnecessary use of len() in slice expression, can be simplified"

var simplifySliceAnalyzer = &analysis.Analyzer{
	Name: string(SimplifySliceRange),
	Doc:  "reports s[a:len(s)] slice expressions",
	Run:  runSimplifySlice,
}

func runSimplifySlice(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			expr, ok := n.(*ast.SliceExpr)
			if !ok || !isSliceWithLenCall(expr) {
				return true
			}
			ident := expr.X.(*ast.Ident)
			pass.Report(analysis.Diagnostic{
				Pos:     expr.High.Pos(),
				End:     expr.High.End(),
				Message: fmt.Sprintf("%s: %s is equivalent to %s", msgUnnecessaryLen, sliceText(expr, ident, true), sliceText(expr, ident, false)),
			})
			return true
		})
	}
	return nil, nil
}

// isSliceWithLenCall reports whether expr slices an identifier up to its own
// length with the builtin len.
func isSliceWithLenCall(expr *ast.SliceExpr) bool {
	// 3-index slices always need both bounds
	if expr.Max != nil || expr.Slice3 {
		return false
	}

	ident, ok := expr.X.(*ast.Ident)
	if !ok || ident.Obj == nil {
		return false
	}

	call, ok := expr.High.(*ast.CallExpr)
	if !ok || len(call.Args) != 1 || call.Ellipsis.IsValid() {
		return false
	}

	// a locally declared len is not the builtin
	fn, ok := call.Fun.(*ast.Ident)
	if !ok || fn.Name != "len" || fn.Obj != nil {
		return false
	}

	arg, ok := call.Args[0].(*ast.Ident)
	return ok && arg.Obj == ident.Obj
}

func sliceText(expr *ast.SliceExpr, ident *ast.Ident, withLen bool) string {
	low := ""
	if expr.Low != nil {
		low = exprText(expr.Low)
	}
	high := ""
	if withLen {
		high = fmt.Sprintf("len(%s)", ident.Name)
	}
	return fmt.Sprintf("%s[%s:%s]", ident.Name, low, high)
}

// exprText renders the simple expressions that appear as slice bounds.
func exprText(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.BasicLit:
		return e.Value
	case *ast.BinaryExpr:
		return fmt.Sprintf("%s %s %s", exprText(e.X), e.Op, exprText(e.Y))
	case *ast.ParenExpr:
		return "(" + exprText(e.X) + ")"
	case *ast.CallExpr:
		args := make([]string, len(e.Args))
		for i, arg := range e.Args {
			args[i] = exprText(arg)
		}
		return fmt.Sprintf("%s(%s)", exprText(e.Fun), strings.Join(args, ", "))
	}
	return "..."
}

func newSimplifySliceProvider() tt.FixProvider {
	return tt.ProviderFunc{
		IDs: []tt.RuleID{SimplifySliceRange},
		Fn: func(_ context.Context, _ tt.Document, d tt.Diagnostic) ([]tt.FixAction, error) {
			if d.ID != SimplifySliceRange {
				return nil, nil
			}
			action := edit.NewAction("Remove len() from slice expression", "SimplifySliceRange", []tt.RuleID{SimplifySliceRange},
				func(doc tt.Document) ([]edit.TextEdit, error) {
					old := doc.Slice(d.Primary)
					if !strings.HasPrefix(old, "len(") {
						return nil, fmt.Errorf("expected a len call at %s, found %q", d.Primary, old)
					}
					return []edit.TextEdit{{Span: d.Primary, OldText: old}}, nil
				})
			return []tt.FixAction{action}, nil
		},
	}
}
