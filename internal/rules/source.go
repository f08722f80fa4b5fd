package rules

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	tt "github.com/gnolang/fixverify/internal/types"
)

func filename(doc tt.Document) string {
	if doc.Name() != "" {
		return doc.Name()
	}
	return "document.go"
}

// parseDocument parses doc for fix providers that need the syntax tree.
func parseDocument(doc tt.Document) (*ast.File, *token.FileSet, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename(doc), doc.Text(), parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", filename(doc), err)
	}
	return f, fset, nil
}

func offset(fset *token.FileSet, pos token.Pos) int {
	return fset.Position(pos).Offset
}

// hasComments reports whether any comment lies within n.
func hasComments(f *ast.File, n ast.Node) bool {
	for _, cg := range f.Comments {
		if cg.Pos() >= n.Pos() && cg.End() <= n.End() {
			return true
		}
	}
	return false
}

// blankUntilEOL reports whether text holds only spaces and tabs from off to
// the end of its line.
func blankUntilEOL(text string, off int) bool {
	rest := text[off:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return strings.Trim(rest, " \t\r") == ""
}

// blankSinceBOL reports whether text holds only spaces and tabs from the
// start of the line containing off up to off.
func blankSinceBOL(text string, off int) bool {
	start := strings.LastIndexByte(text[:off], '\n') + 1
	return strings.Trim(text[start:off], " \t") == ""
}

// lineBounds returns the offsets of the start of the line containing off and
// of the position just past its newline.
func lineBounds(text string, off int) (int, int) {
	start := strings.LastIndexByte(text[:off], '\n') + 1
	end := len(text)
	if i := strings.IndexByte(text[off:], '\n'); i >= 0 {
		end = off + i + 1
	}
	return start, end
}
