// Package sanitize applies deterministic, pattern-based normalization to
// generated component code.
//
// These are best-effort string rewrites, not a parser. Each pass fires only
// when its pathological pattern is actually present, and logs when it does.
// They do not compose into a correctness guarantee; a syntax-aware pass could
// replace them without changing the executor's contract.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Result reports the sanitized code and which passes fired.
type Result struct {
	Code    string
	Applied []string
}

// Changed reports whether any pass rewrote the input.
func (r Result) Changed() bool {
	return len(r.Applied) > 0
}

var (
	// Module import/export syntax is disallowed in generated components:
	// they are assembled into a host that provides dependencies in scope.
	importLineRe   = regexp.MustCompile(`(?m)^[ \t]*import\s+[^\n]*\n?`)
	exportDefaultRe = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+`)
	exportPrefixRe  = regexp.MustCompile(`(?m)^([ \t]*)export\s+(const|function|class|let|var)\b`)

	// Disallowed type annotations: generated code must be plain JS.
	reactFCRe       = regexp.MustCompile(`:\s*React\.(?:FC|FunctionComponent)(?:<[^>\n]*>)?`)
	useStateGenRe   = regexp.MustCompile(`\buseState<[^>\n]+>\(`)
	useRefGenRe     = regexp.MustCompile(`\buseRef<[^>\n]+>\(`)

	// A derived local that reuses the name of the value it was computed
	// from, e.g. `const total = total.toFixed(2)`. The declaration shadows
	// the shared state value and dies in the temporal dead zone.
	constDeclRe = regexp.MustCompile(`^[ \t]*const\s+(\w+)\s*=\s*(.+)$`)
)

// Component runs every pass over code and returns the rewritten text plus the
// names of the passes that fired.
func Component(code string, log *logrus.Entry) Result {
	res := Result{Code: code}

	run := func(name string, fn func(string) (string, bool)) {
		out, changed := fn(res.Code)
		if !changed {
			return
		}
		res.Code = out
		res.Applied = append(res.Applied, name)
		if log != nil {
			log.WithField("pass", name).Info("sanitizer rewrote generated code")
		}
	}

	run("strip-imports", stripImports)
	run("strip-exports", stripExports)
	run("strip-type-annotations", stripTypeAnnotations)
	run("fix-shadowed-locals", fixShadowedLocals)
	return res
}

func stripImports(code string) (string, bool) {
	if !importLineRe.MatchString(code) {
		return code, false
	}
	return importLineRe.ReplaceAllString(code, ""), true
}

func stripExports(code string) (string, bool) {
	changed := false
	if exportDefaultRe.MatchString(code) {
		code = exportDefaultRe.ReplaceAllString(code, "$1")
		changed = true
	}
	if exportPrefixRe.MatchString(code) {
		code = exportPrefixRe.ReplaceAllString(code, "$1$2")
		changed = true
	}
	return code, changed
}

func stripTypeAnnotations(code string) (string, bool) {
	changed := false
	if reactFCRe.MatchString(code) {
		code = reactFCRe.ReplaceAllString(code, "")
		changed = true
	}
	if useStateGenRe.MatchString(code) {
		code = useStateGenRe.ReplaceAllString(code, "useState(")
		changed = true
	}
	if useRefGenRe.MatchString(code) {
		code = useRefGenRe.ReplaceAllString(code, "useRef(")
		changed = true
	}
	return code, changed
}

// fixShadowedLocals renames a derived local that reuses the name of the value
// it is computed from, then points later references at the renamed local.
// Line-based and scope-blind: good enough for the flat component bodies the
// agents emit, documented as best-effort.
func fixShadowedLocals(code string) (string, bool) {
	lines := strings.Split(code, "\n")
	changed := false

	for i, line := range lines {
		m := constDeclRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, rhs := m[1], m[2]

		selfRef := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		if !selfRef.MatchString(rhs) {
			continue
		}

		renamed := name + "Value"
		lines[i] = strings.Replace(line, "const "+name, "const "+renamed, 1)

		// Later lines that read the bare name meant the derived value.
		// Property accesses (`obj.name`) and keys (`name:`) are left alone.
		refRe := regexp.MustCompile(`(^|[^.\w])` + regexp.QuoteMeta(name) + `\b([^:\w]|$)`)
		for j := i + 1; j < len(lines); j++ {
			lines[j] = refRe.ReplaceAllString(lines[j], "${1}"+renamed+"${2}")
		}
		changed = true
	}

	if !changed {
		return code, false
	}
	return strings.Join(lines, "\n"), true
}
