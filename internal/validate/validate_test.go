package validate

import (
	"strings"
	"testing"
)

const goodComponent = `const Calculator = () => {
  const [result, setResult] = useState(0);
  // running total shown in the header
  const label = "total: {pending}";
  return (
    <div className="p-4">
      <span>{result}</span>
      <button onClick={() => setResult(result + 1)}>add</button>
    </div>
  );
};`

func TestComponent_CleanCodePasses(t *testing.T) {
	r := Component(goodComponent)
	if !r.Passed {
		t.Fatalf("expected pass, got %s", r.Summary())
	}
	if len(r.Issues()) != 0 {
		t.Errorf("expected no issues, got %v", r.Issues())
	}
	if len(r.Checks) != len(checks) {
		t.Errorf("expected %d check results, got %d", len(checks), len(r.Checks))
	}
}

func TestComponent_EmptyCodeFails(t *testing.T) {
	r := Component("   \n\t")
	if r.Passed {
		t.Error("expected empty artifact to fail")
	}
	if len(r.Issues()) != 1 || r.Issues()[0].Severity != "error" {
		t.Errorf("unexpected issues: %v", r.Issues())
	}
}

func TestComponent_UnbalancedBraces(t *testing.T) {
	r := Component("const Tool = () => {\n  return (<div>hi</div>);\n")
	if r.Passed {
		t.Fatal("expected fail")
	}
	if !hasFailure(r, "balanced-delimiters") {
		t.Errorf("expected balanced-delimiters failure, got %+v", r.Checks)
	}
}

func TestComponent_DelimitersInsideLiteralsIgnored(t *testing.T) {
	code := "const Tool = () => {\n" +
		"  const a = \"}}}\";\n" +
		"  const b = '((';\n" +
		"  const c = `[[[ ${a} `;\n" +
		"  // stray ) in a comment\n" +
		"  /* and { in a block */\n" +
		"  return null;\n" +
		"};"
	r := Component(code)
	if hasFailure(r, "balanced-delimiters") {
		t.Errorf("literals should not affect delimiter counts: %+v", r.Checks)
	}
}

func TestComponent_MissingDefinition(t *testing.T) {
	r := Component("const helper = () => 1;\nconsole.log(helper());")
	if !hasFailure(r, "component-definition") {
		t.Errorf("expected component-definition failure, got %+v", r.Checks)
	}
}

func TestComponent_FunctionDeclarationCounts(t *testing.T) {
	r := Component("function Widget() {\n  return null;\n}")
	if hasFailure(r, "component-definition") {
		t.Errorf("function declaration should satisfy the check: %+v", r.Checks)
	}
}

func TestComponent_ModuleStatements(t *testing.T) {
	code := "import React from 'react';\nconst Tool = () => null;\nexport default Tool;"
	r := Component(code)
	if !hasFailure(r, "module-statements") {
		t.Fatalf("expected module-statements failure, got %+v", r.Checks)
	}
	var lines []int
	for _, iss := range r.Issues() {
		if strings.Contains(iss.Message, "module statement") {
			lines = append(lines, iss.Line)
		}
	}
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 3 {
		t.Errorf("expected findings on lines 1 and 3, got %v", lines)
	}
}

func TestComponent_PlaceholderIsWarningOnly(t *testing.T) {
	code := "const Tool = () => {\n  // TODO: wire real handler\n  return null;\n};"
	r := Component(code)
	if !r.Passed {
		t.Errorf("warnings alone must not fail the gate: %s", r.Summary())
	}
	found := false
	for _, iss := range r.Issues() {
		if iss.Severity == "warning" && iss.Line == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning on line 2, got %v", r.Issues())
	}
}

func TestComponent_TruncatedOutput(t *testing.T) {
	for _, tail := range []string{",", "=>", "&&"} {
		code := "const Tool = () => {}\nconst x = 1 " + tail
		r := Component(code)
		if !hasFailure(r, "truncated-output") {
			t.Errorf("tail %q: expected truncated-output failure", tail)
		}
	}
}

func TestSummaryNamesFailedChecks(t *testing.T) {
	r := Component("import x from 'y';\nconst t = 1;")
	if r.Passed {
		t.Fatal("expected fail")
	}
	s := r.Summary()
	for _, want := range []string{"component-definition", "module-statements"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary %q missing %s", s, want)
		}
	}
}

func hasFailure(r *Result, name string) bool {
	for _, c := range r.Checks {
		if c.Check == name && !c.Passed {
			return true
		}
	}
	return false
}
