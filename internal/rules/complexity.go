package rules

import (
	"fmt"
	"go/token"

	"github.com/fzipp/gocyclo"
	"golang.org/x/tools/go/analysis"
)

const DefaultComplexityThreshold = 10

func newComplexityAnalyzer(threshold int) *analysis.Analyzer {
	return &analysis.Analyzer{
		Name: string(HighCyclomaticComplexity),
		Doc:  fmt.Sprintf("reports functions with a cyclomatic complexity above %d", threshold),
		Run: func(pass *analysis.Pass) (any, error) {
			for _, file := range pass.Files {
				tf := pass.Fset.File(file.Pos())
				for _, stat := range gocyclo.AnalyzeASTFile(file, pass.Fset, nil) {
					if stat.Complexity <= threshold {
						continue
					}
					// gocyclo reports the position of the func keyword only
					pos := tf.Pos(stat.Pos.Offset)
					pass.Report(analysis.Diagnostic{
						Pos: pos,
						End: pos + token.Pos(len("func")),
						Message: fmt.Sprintf("function %s has a cyclomatic complexity of %d (threshold %d)",
							stat.FuncName, stat.Complexity, threshold),
					})
				}
			}
			return nil, nil
		},
	}
}
