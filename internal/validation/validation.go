// Package validation runs data-driven analyze scenarios against a fresh
// engine. Scenarios live in YAML so new cases need no code changes; the
// built-in set is embedded from scenarios.yaml.
package validation

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/nearmatch/internal/analyze"
	"github.com/Aman-CERP/nearmatch/internal/cache"
	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
	"github.com/Aman-CERP/nearmatch/internal/store"
)

//go:embed scenarios.yaml
var defaultScenarios []byte

// Step is one analyze call and its expected outcome.
type Step struct {
	Text    string  `yaml:"text"`
	Value   *string `yaml:"value"`
	Lexical *string `yaml:"lexical"`
	Error   string  `yaml:"error"`
}

// Scenario is a seed set followed by analyze steps.
type Scenario struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Seed  []string `yaml:"seed"`
	Steps []Step   `yaml:"steps"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Parse decodes a scenario file and checks that ids are present and unique.
func Parse(data []byte) ([]Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios YAML: %w", err)
	}

	seen := make(map[string]bool, len(f.Scenarios))
	for i, sc := range f.Scenarios {
		if sc.ID == "" {
			return nil, fmt.Errorf("scenario %d has no id", i)
		}
		if seen[sc.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", sc.ID)
		}
		seen[sc.ID] = true
		if len(sc.Steps) == 0 {
			return nil, fmt.Errorf("scenario %s has no steps", sc.ID)
		}
	}
	return f.Scenarios, nil
}

// Load reads scenarios from path, or the built-in set when path is "".
func Load(path string) ([]Scenario, error) {
	if path == "" {
		return Parse(defaultScenarios)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios file %s: %w", path, err)
	}
	return Parse(data)
}

// EngineFactory builds a warmed-up analyzer over the given seed records.
type EngineFactory func(ctx context.Context, seed []fingerprint.Record) (analyze.Analyzer, error)

// MemoryEngine is the default EngineFactory: a memory store behind a cache
// with synchronous recording.
func MemoryEngine(ctx context.Context, seed []fingerprint.Record) (analyze.Analyzer, error) {
	c := cache.New(store.NewMemoryStore(seed...))
	if err := c.WarmUp(ctx); err != nil {
		return nil, err
	}
	return analyze.New(c), nil
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Failures []string      `json:"failures,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of a full run.
type Report struct {
	Timestamp time.Time        `json:"timestamp"`
	Results   []ScenarioResult `json:"results"`
	Passed    int              `json:"passed"`
	Total     int              `json:"total"`
}

// OK reports whether every scenario passed.
func (r *Report) OK() bool {
	return r.Passed == r.Total
}

// Validator runs scenarios, each on a fresh engine.
type Validator struct {
	newEngine EngineFactory
}

// NewValidator creates a validator. A nil factory means MemoryEngine.
func NewValidator(f EngineFactory) *Validator {
	if f == nil {
		f = MemoryEngine
	}
	return &Validator{newEngine: f}
}

// RunAll runs every scenario in order.
func (v *Validator) RunAll(ctx context.Context, scenarios []Scenario) *Report {
	report := &Report{Timestamp: time.Now()}
	for _, sc := range scenarios {
		res := v.Run(ctx, sc)
		report.Results = append(report.Results, res)
		report.Total++
		if res.Passed {
			report.Passed++
		}
	}
	return report
}

// Run executes one scenario.
func (v *Validator) Run(ctx context.Context, sc Scenario) ScenarioResult {
	start := time.Now()
	res := ScenarioResult{ID: sc.ID, Name: sc.Name}
	defer func() {
		res.Duration = time.Since(start)
	}()

	seed := make([]fingerprint.Record, 0, len(sc.Seed))
	for _, text := range sc.Seed {
		rec, err := fingerprint.Encode(text)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf("seed %q: %v", text, err))
			return res
		}
		seed = append(seed, rec)
	}

	engine, err := v.newEngine(ctx, seed)
	if err != nil {
		res.Failures = append(res.Failures, fmt.Sprintf("engine: %v", err))
		return res
	}

	for i, step := range sc.Steps {
		if msg := checkStep(ctx, engine, step); msg != "" {
			res.Failures = append(res.Failures, fmt.Sprintf("step %d (%q): %s", i+1, step.Text, msg))
		}
	}
	res.Passed = len(res.Failures) == 0
	return res
}

// checkStep returns "" when step's expectation holds, else a description.
func checkStep(ctx context.Context, engine analyze.Analyzer, step Step) string {
	got, err := engine.Analyze(ctx, step.Text)

	if step.Error != "" {
		if err == nil {
			return fmt.Sprintf("expected error %s, got a result", step.Error)
		}
		if code := errors.GetCode(err); code != step.Error {
			return fmt.Sprintf("expected error %s, got %s (%v)", step.Error, code, err)
		}
		return ""
	}
	if err != nil {
		return fmt.Sprintf("unexpected error: %v", err)
	}

	var msg string
	if !samePtr(got.NearestByValue, step.Value) {
		msg = fmt.Sprintf("value = %s, want %s", show(got.NearestByValue), show(step.Value))
	}
	if !samePtr(got.NearestByLexical, step.Lexical) {
		if msg != "" {
			msg += "; "
		}
		msg += fmt.Sprintf("lexical = %s, want %s", show(got.NearestByLexical), show(step.Lexical))
	}
	return msg
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func show(s *string) string {
	if s == nil {
		return "null"
	}
	return fmt.Sprintf("%q", *s)
}
