package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/fixverify/internal/rules"
	tt "github.com/gnolang/fixverify/internal/types"
)

const tabWidth = 8

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiCyan, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
	passStyle       = color.New(color.FgGreen, color.Bold)
	cancelStyle     = color.New(color.FgHiYellow, color.Bold)
	noStyle         = color.New(color.FgWhite)
)

// SetColor turns colored output on or off for the whole process.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// issueFormatter supplies the template used to render one rule's diagnostics.
type issueFormatter interface {
	IssueTemplate() string
}

func getIssueFormatter(id tt.RuleID) issueFormatter {
	switch id {
	case rules.HighCyclomaticComplexity:
		return &cyclomaticComplexityFormatter{}
	default:
		return &generalIssueFormatter{}
	}
}

type generalIssueFormatter struct{}

func (f *generalIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn -}}
{{snippet .SnippetLines .StartLine .EndLine .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines .CommonIndent -}}
{{note .Note}}`
}

// Diagnostics renders diagnostics against the document they were reported
// on: a header, the source lines with the span underlined, and the message.
func Diagnostics(doc tt.Document, diags []tt.Diagnostic) string {
	lines := doc.Lines()
	var builder strings.Builder
	for _, d := range diags {
		builder.WriteString(buildIssue(doc, lines, d, getIssueFormatter(d.ID)))
		builder.WriteString("\n")
	}
	return builder.String()
}

type issueData struct {
	Rule            string
	Severity        string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	MaxLineNumWidth int
	Message         string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

func buildIssue(doc tt.Document, lines []string, d tt.Diagnostic, formatter issueFormatter) string {
	start := doc.Position(d.Primary.Start)
	end := start
	if d.Primary.End > d.Primary.Start {
		// spans are half open; underline through the last covered byte
		end = doc.Position(d.Primary.End - 1)
	}
	if d.Primary.IsEmpty() && d.Primary.Hint.IsValid() {
		start, end = d.Primary.Hint, d.Primary.Hint
	}

	maxLineNumWidth := calculateMaxLineNumWidth(end.Line)
	var commonIndent string
	if isValidLineRange(start.Line, end.Line, lines) {
		commonIndent = findCommonIndent(lines[start.Line-1 : end.Line])
	}

	data := issueData{
		Rule:            d.ID.String(),
		Severity:        d.Severity.String(),
		Filename:        doc.Name(),
		StartLine:       start.Line,
		StartColumn:     start.Column,
		EndLine:         end.Line,
		EndColumn:       end.Column,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		Message:         d.Message,
		Note:            ruleNote(d.ID),
		SnippetLines:    lines,
		CommonIndent:    commonIndent,
	}

	funcMap := template.FuncMap{
		"header":              header,
		"snippet":             codeSnippet,
		"underlineAndMessage": underlineAndMessage,
		"note":                note,
		"complexityInfo":      complexityInfo,
	}

	tmpl := template.Must(template.New("issue").Funcs(funcMap).Parse(formatter.IssueTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("error formatting diagnostic: %v\n", err)
	}
	return buf.String()
}

func ruleNote(id tt.RuleID) string {
	rule, err := rules.Lookup(id)
	if err != nil || rule.Fixable {
		return ""
	}
	return "this rule is detect-only and offers no code fix"
}

// utils functions used in the text templates

func header(rule, severity string, maxLineNumWidth int, filename string, startLine, startColumn int) string {
	var endString string
	switch severity {
	case "ERROR":
		endString = errorStyle.Sprint("error: ")
	case "WARNING":
		endString = warningStyle.Sprint("warning: ")
	case "INFO":
		endString = infoStyle.Sprint("info: ")
	default:
		endString = noStyle.Sprint("hidden: ")
	}

	endString += ruleStyle.Sprintf("%s\n", rule)

	padding := strings.Repeat(" ", maxLineNumWidth)
	endString += lineStyle.Sprintf("%s--> ", padding)
	endString += fileStyle.Sprintf("%s:%d:%d\n", filename, startLine, startColumn)

	return endString
}

func codeSnippet(snippetLines []string, startLine, endLine, maxLineNumWidth int, commonIndent, padding string) string {
	endString := lineStyle.Sprintf("%s|\n", padding)

	for i := startLine; i <= endLine; i++ {
		if i-1 < 0 || i-1 >= len(snippetLines) {
			continue
		}

		line := strings.TrimPrefix(snippetLines[i-1], commonIndent)
		lineNum := fmt.Sprintf("%*d", maxLineNumWidth, i)

		endString += lineStyle.Sprintf("%s | ", lineNum) + line + "\n"
	}

	return endString
}

func underlineAndMessage(message, padding string, startLine, endLine, startColumn, endColumn int, snippetLines []string, commonIndent string) string {
	endString := lineStyle.Sprintf("%s| ", padding)

	if !isValidLineRange(startLine, endLine, snippetLines) {
		endString += messageStyle.Sprintf("%s\n", message)
		return endString
	}

	commonIndentWidth := calculateVisualColumn(commonIndent, len(commonIndent)+1)

	underlineStart := max(calculateVisualColumn(snippetLines[startLine-1], startColumn)-commonIndentWidth, 0)
	underlineEnd := calculateVisualColumn(snippetLines[endLine-1], endColumn) - commonIndentWidth
	underlineLength := max(underlineEnd-underlineStart+1, 1)

	endString += strings.Repeat(" ", underlineStart)
	endString += messageStyle.Sprintf("%s\n", strings.Repeat("~", underlineLength))

	endString += lineStyle.Sprintf("%s= ", padding)
	endString += messageStyle.Sprintf("%s\n", message)

	return endString
}

func note(note string) string {
	if note == "" {
		return ""
	}
	return suggestionStyle.Sprint("note: ") + lineStyle.Sprintf("%s\n", note)
}

func isValidLineRange(startLine, endLine int, snippetLines []string) bool {
	return startLine > 0 &&
		endLine > 0 &&
		startLine <= endLine &&
		startLine <= len(snippetLines) &&
		endLine <= len(snippetLines)
}

func calculateMaxLineNumWidth(endLine int) int {
	return len(fmt.Sprintf("%d", endLine))
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn
}

// findCommonIndent finds the common indent in the code snippet.
func findCommonIndent(lines []string) string {
	var indent []rune
	found := false
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		current := []rune(line[:len(line)-len(trimmed)])
		if !found {
			indent, found = current, true
			continue
		}
		indent = commonPrefix(indent, current)
		if len(indent) == 0 {
			break
		}
	}
	return string(indent)
}

func commonPrefix(a, b []rune) []rune {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
