package nolint

import (
	"errors"
	"go/ast"
	"go/token"
	"strings"

	tt "github.com/gnolang/fixverify/internal/types"
)

const directive = "//nolint"

var (
	errNotDirective = errors.New("not a nolint directive")
	errNoRules      = errors.New("nolint directive has a colon but no rules")
)

// Index records which lines of a document are excluded from which rules.
type Index struct {
	scopes []scope
}

// scope is an inclusive line range. An empty rule set covers every rule.
type scope struct {
	rules     map[tt.RuleID]struct{}
	startLine int
	endLine   int
}

// Parse collects the nolint directives of f.
//
// A directive before the package clause covers the whole file. An inline
// directive covers the statement it trails. A directive on its own line
// covers the statement or function declaration starting on the next line,
// or only its own line when neither exists.
func Parse(f *ast.File, fset *token.FileSet) *Index {
	idx := &Index{}
	stmts := statementsByLine(f, fset)
	packageLine := fset.Position(f.Package).Line

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			rules, err := parseDirective(c.Text)
			if err != nil {
				continue
			}
			s := scope{rules: rules}
			s.startLine, s.endLine = coverage(f, fset, c, stmts, packageLine)
			idx.scopes = append(idx.scopes, s)
		}
	}
	return idx
}

func parseDirective(text string) (map[tt.RuleID]struct{}, error) {
	rest, ok := strings.CutPrefix(text, directive)
	if !ok {
		return nil, errNotDirective
	}
	rules := make(map[tt.RuleID]struct{})
	if rest == "" {
		return rules, nil
	}
	list, ok := strings.CutPrefix(rest, ":")
	if !ok {
		return nil, errNotDirective
	}
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			rules[tt.RuleID(name)] = struct{}{}
		}
	}
	if len(rules) == 0 {
		return nil, errNoRules
	}
	return rules, nil
}

func coverage(f *ast.File, fset *token.FileSet, c *ast.Comment, stmts map[int]ast.Stmt, packageLine int) (int, int) {
	pos := fset.Position(c.Slash)

	if pos.Line < packageLine {
		return 1, fset.Position(f.End()).Line
	}

	if stmt, ok := stmts[pos.Line]; ok && pos.Offset > fset.Position(stmt.Pos()).Offset {
		return fset.Position(stmt.Pos()).Line, fset.Position(stmt.End()).Line
	}

	if stmt, ok := stmts[pos.Line+1]; ok {
		return pos.Line, fset.Position(stmt.End()).Line
	}

	for _, decl := range f.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fset.Position(fn.Pos()).Line == pos.Line+1 {
			return pos.Line, fset.Position(fn.End()).Line
		}
	}

	return pos.Line, pos.Line
}

// statementsByLine maps each line to the first statement starting on it.
func statementsByLine(f *ast.File, fset *token.FileSet) map[int]ast.Stmt {
	stmts := make(map[int]ast.Stmt)
	ast.Inspect(f, func(n ast.Node) bool {
		if stmt, ok := n.(ast.Stmt); ok {
			line := fset.Position(stmt.Pos()).Line
			if _, exists := stmts[line]; !exists {
				stmts[line] = stmt
			}
		}
		return true
	})
	return stmts
}

// Suppressed reports whether diagnostics with id on line are excluded.
func (idx *Index) Suppressed(line int, id tt.RuleID) bool {
	for _, s := range idx.scopes {
		if line < s.startLine || line > s.endLine {
			continue
		}
		if len(s.rules) == 0 {
			return true
		}
		if _, ok := s.rules[id]; ok {
			return true
		}
	}
	return false
}

// Filter adapts the index of file to the AnalysisAnalyzer filter signature.
func Filter(file *ast.File, fset *token.FileSet, d tt.Diagnostic) bool {
	return !Parse(file, fset).Suppressed(d.Primary.Hint.Line, d.ID)
}
