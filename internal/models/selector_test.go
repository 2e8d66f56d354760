package models

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/uiforge/uiforge/internal/config"
	"github.com/uiforge/uiforge/internal/tcc"
)

func testCatalog() config.ModelsConfig {
	return config.ModelsConfig{
		Providers: map[string]config.Provider{
			"openai": {Models: []string{"gpt-4o", "gpt-4o-mini"}},
			"ollama": {Models: []string{"llama3.1", "qwen2.5-coder"}},
		},
		Agents: map[string]config.AgentModels{
			"function-planner":    {Primary: "gpt-4o", Fallback: "gpt-4o-mini"},
			"component-assembler": {Primary: "not-declared", Fallback: "qwen2.5-coder"},
		},
	}
}

func newTestSelector(catalog config.ModelsConfig) (*Selector, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	return NewSelector(catalog, logrus.NewEntry(log)), hook
}

func TestSelectCallerModelWins(t *testing.T) {
	s, _ := newTestSelector(testCatalog())

	got := s.Select("function-planner", "qwen2.5-coder", nil)
	want := Choice{Provider: "ollama", Model: "qwen2.5-coder"}
	if got != want {
		t.Errorf("Select = %+v, want %+v", got, want)
	}
}

func TestSelectUnknownCallerModelFallsThrough(t *testing.T) {
	s, _ := newTestSelector(testCatalog())

	got := s.Select("function-planner", "made-up-model", nil)
	want := Choice{Provider: "openai", Model: "gpt-4o"}
	if got != want {
		t.Errorf("Select = %+v, want primary %+v", got, want)
	}
}

func TestSelectContextMappingBeatsConfig(t *testing.T) {
	s, _ := newTestSelector(testCatalog())

	ctx := tcc.New(tcc.UserInput{Description: "x"})
	ctx.AgentModelMapping = map[string]string{"function-planner": "llama3.1"}

	got := s.Select("function-planner", "", ctx)
	want := Choice{Provider: "ollama", Model: "llama3.1"}
	if got != want {
		t.Errorf("Select = %+v, want context mapping %+v", got, want)
	}
}

func TestSelectUnknownContextMappingFallsThrough(t *testing.T) {
	s, _ := newTestSelector(testCatalog())

	ctx := tcc.New(tcc.UserInput{Description: "x"})
	ctx.AgentModelMapping = map[string]string{"function-planner": "made-up"}

	got := s.Select("function-planner", "", ctx)
	want := Choice{Provider: "openai", Model: "gpt-4o"}
	if got != want {
		t.Errorf("Select = %+v, want primary %+v", got, want)
	}
}

func TestSelectConfiguredFallback(t *testing.T) {
	s, _ := newTestSelector(testCatalog())

	// component-assembler's primary is not a declared model.
	got := s.Select("component-assembler", "", nil)
	want := Choice{Provider: "ollama", Model: "qwen2.5-coder"}
	if got != want {
		t.Errorf("Select = %+v, want fallback %+v", got, want)
	}
}

func TestSelectHardcodedDefaultWarns(t *testing.T) {
	s, hook := newTestSelector(config.ModelsConfig{})

	got := s.Select("layout-designer", "", nil)
	want := Choice{Provider: DefaultProvider, Model: DefaultModel}
	if got != want {
		t.Errorf("Select = %+v, want hardcoded default %+v", got, want)
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Error("falling through to the hardcoded default should log a warning")
	}
}

func TestSelectNeverEmpty(t *testing.T) {
	s, _ := newTestSelector(config.ModelsConfig{})
	for _, step := range tcc.Sequence {
		got := s.Select(tcc.AgentName(step), "", nil)
		if got.Provider == "" || got.Model == "" {
			t.Errorf("Select(%s) returned empty choice %+v", step, got)
		}
	}
}
