package formatter

import (
	"strings"
)

type cyclomaticComplexityFormatter struct{}

func (f *cyclomaticComplexityFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn -}}
{{snippet .SnippetLines .StartLine .EndLine .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines .CommonIndent -}}
{{complexityInfo .Padding .Message -}}
{{note .Note}}`
}

// complexityInfo repeats the measured complexity from a message of the form
// "function f has a cyclomatic complexity of 12 (threshold 10)".
func complexityInfo(padding, message string) string {
	_, measured, ok := strings.Cut(message, "complexity of ")
	if !ok {
		return ""
	}
	endString := lineStyle.Sprintf("%s| ", padding)
	endString += messageStyle.Sprintf("Cyclomatic Complexity: %s\n", measured)
	return endString
}
