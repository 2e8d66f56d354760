// Package validate runs static checks over generated component code. The
// checks are cheap textual rules that catch the failure shapes language
// models actually produce, so an optimistic model verdict alone cannot pass
// broken code through the gate.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/uiforge/uiforge/internal/tcc"
)

// CheckResult holds the result of a single check.
type CheckResult struct {
	Check   string                `json:"check"`
	Passed  bool                  `json:"passed"`
	Summary string                `json:"summary,omitempty"`
	Issues  []tcc.ValidationIssue `json:"issues,omitempty"`
}

// Result is the structured output of a full check run over one artifact.
type Result struct {
	Passed bool          `json:"passed"`
	Checks []CheckResult `json:"checks"`
}

// Issues flattens the findings of every check, in check order.
func (r *Result) Issues() []tcc.ValidationIssue {
	var out []tcc.ValidationIssue
	for _, c := range r.Checks {
		out = append(out, c.Issues...)
	}
	return out
}

// Summary is a one-line account of the run for logs and progress messages.
func (r *Result) Summary() string {
	if r.Passed {
		return "static checks passed"
	}
	var failed []string
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c.Check)
		}
	}
	return fmt.Sprintf("static checks failed: %s", strings.Join(failed, ", "))
}

// checkFunc inspects component source and reports findings. An empty slice
// means the check passed.
type checkFunc func(code string) []tcc.ValidationIssue

type check struct {
	name string
	run  checkFunc
}

// checks run in order; all of them always run so the report is complete.
var checks = []check{
	{"balanced-delimiters", checkBalancedDelimiters},
	{"component-definition", checkComponentDefinition},
	{"module-statements", checkModuleStatements},
	{"placeholder-markers", checkPlaceholderMarkers},
	{"truncated-output", checkTruncatedOutput},
}

// Component checks one generated component artifact. Empty code is a single
// error finding rather than a pass, since every artifact past assembly must
// carry code.
func Component(code string) *Result {
	res := &Result{Passed: true}
	if strings.TrimSpace(code) == "" {
		res.Passed = false
		res.Checks = append(res.Checks, CheckResult{
			Check:   "component-definition",
			Summary: "artifact is empty",
			Issues: []tcc.ValidationIssue{
				{Severity: "error", Message: "component code is empty"},
			},
		})
		return res
	}

	for _, c := range checks {
		issues := c.run(code)
		cr := CheckResult{Check: c.name, Passed: true}
		for _, iss := range issues {
			cr.Issues = append(cr.Issues, iss)
			if iss.Severity == "error" {
				cr.Passed = false
			}
		}
		if !cr.Passed {
			res.Passed = false
			cr.Summary = cr.Issues[0].Message
		}
		res.Checks = append(res.Checks, cr)
	}
	return res
}

// checkBalancedDelimiters counts braces, brackets, and parens outside of
// strings and comments. Imbalance is the most common truncation symptom.
func checkBalancedDelimiters(code string) []tcc.ValidationIssue {
	type pair struct {
		open, close rune
		name        string
	}
	pairs := []pair{
		{'{', '}', "braces"},
		{'(', ')', "parentheses"},
		{'[', ']', "brackets"},
	}

	stripped := stripLiterals(code)
	var issues []tcc.ValidationIssue
	for _, p := range pairs {
		depth := 0
		for _, r := range stripped {
			switch r {
			case p.open:
				depth++
			case p.close:
				depth--
			}
		}
		if depth != 0 {
			issues = append(issues, tcc.ValidationIssue{
				Severity: "error",
				Message:  fmt.Sprintf("unbalanced %s (%+d)", p.name, depth),
			})
		}
	}
	return issues
}

var componentDefRe = regexp.MustCompile(
	`(?m)^\s*(const|let|var|function)\s+[A-Z][A-Za-z0-9_]*\s*(=|\()`)

// checkComponentDefinition requires at least one capitalized component
// definition, the form React expects for a renderable component.
func checkComponentDefinition(code string) []tcc.ValidationIssue {
	if componentDefRe.MatchString(code) {
		return nil
	}
	return []tcc.ValidationIssue{{
		Severity: "error",
		Message:  "no component definition found (expected a capitalized const or function)",
	}}
}

var moduleStmtRe = regexp.MustCompile(`(?m)^\s*(import\s+[^(]|export\s+(default\s+)?)`)

// checkModuleStatements flags import/export statements. Generated components
// are embedded inline, so module syntax breaks the host at eval time. The
// sanitizer strips these; a survivor means an unhandled form.
func checkModuleStatements(code string) []tcc.ValidationIssue {
	var issues []tcc.ValidationIssue
	for i, line := range strings.Split(code, "\n") {
		if moduleStmtRe.MatchString(line) {
			issues = append(issues, tcc.ValidationIssue{
				Severity: "error",
				Message:  fmt.Sprintf("module statement not allowed in embedded component: %s", strings.TrimSpace(line)),
				Line:     i + 1,
			})
		}
	}
	return issues
}

var placeholderRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bTODO\b|\bFIXME\b`),
	regexp.MustCompile(`(?i)your (code|logic|implementation) here`),
	regexp.MustCompile(`\.\.\.\s*$`),
	regexp.MustCompile(`(?i)placeholder`),
}

// checkPlaceholderMarkers reports leftover scaffolding text. These are
// warnings: fallback payloads are tagged placeholders on purpose and must
// not flip the gate, only surface in the report.
func checkPlaceholderMarkers(code string) []tcc.ValidationIssue {
	var issues []tcc.ValidationIssue
	for i, line := range strings.Split(code, "\n") {
		for _, re := range placeholderRes {
			if re.MatchString(line) {
				issues = append(issues, tcc.ValidationIssue{
					Severity: "warning",
					Message:  fmt.Sprintf("placeholder marker: %s", strings.TrimSpace(line)),
					Line:     i + 1,
				})
				break
			}
		}
	}
	return issues
}

// checkTruncatedOutput flags endings that indicate the model hit its token
// limit mid-artifact.
func checkTruncatedOutput(code string) []tcc.ValidationIssue {
	trimmed := strings.TrimRight(code, " \t\n")
	for _, suffix := range []string{",", "=>", "&&", "||", "(", "[", "=", "."} {
		if strings.HasSuffix(trimmed, suffix) {
			return []tcc.ValidationIssue{{
				Severity: "error",
				Message:  fmt.Sprintf("output appears truncated (ends with %q)", suffix),
			}}
		}
	}
	return nil
}

// stripLiterals blanks string literals, template literals, and comments so
// delimiter counting ignores their contents. A best-effort scanner; nesting
// inside template interpolations is not tracked.
func stripLiterals(code string) string {
	var b strings.Builder
	b.Grow(len(code))

	const (
		plain = iota
		inSingle
		inDouble
		inBacktick
		inLineComment
		inBlockComment
	)
	state := plain
	runes := []rune(code)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case plain:
			switch {
			case r == '\'':
				state = inSingle
			case r == '"':
				state = inDouble
			case r == '`':
				state = inBacktick
			case r == '/' && next == '/':
				state = inLineComment
				i++
			case r == '/' && next == '*':
				state = inBlockComment
				i++
			default:
				b.WriteRune(r)
			}
		case inSingle:
			if r == '\\' {
				i++
			} else if r == '\'' || r == '\n' {
				state = plain
			}
		case inDouble:
			if r == '\\' {
				i++
			} else if r == '"' || r == '\n' {
				state = plain
			}
		case inBacktick:
			if r == '\\' {
				i++
			} else if r == '`' {
				state = plain
			}
		case inLineComment:
			if r == '\n' {
				state = plain
				b.WriteRune(r)
			}
		case inBlockComment:
			if r == '*' && next == '/' {
				state = plain
				i++
			}
		}
	}
	return b.String()
}
