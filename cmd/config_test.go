package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/docs"
	"github.com/etnz/backtest/strategy"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// writeFile is a helper to write a test file in dir.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseWeights(t *testing.T) {
	testCases := []struct {
		input   string
		want    backtest.Weights
		wantErr bool
	}{
		{"", backtest.Weights{}, false},
		{"SPY=1", backtest.Weights{"SPY": 1}, false},
		{" SPY = 0.6 , TLT=0.4", backtest.Weights{"SPY": 0.6, "TLT": 0.4}, false},
		{"SPY", nil, true},
		{"=0.5", nil, true},
		{"SPY=half", nil, true},
	}
	for _, tc := range testCases {
		got, err := ParseWeights(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseWeights(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if len(got) != len(tc.want) {
			t.Errorf("ParseWeights(%q) = %v want %v", tc.input, got, tc.want)
			continue
		}
		for k, v := range tc.want {
			if got[k] != v {
				t.Errorf("ParseWeights(%q) = %v want %v", tc.input, got, tc.want)
			}
		}
	}
}

func TestConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "run.json", `{
  "prices": "prices.csv",
  "balance": 5000,
  "currency": "EUR",
  "weights": {"X": 1},
  "strategy": {"name": "rebalance", "every": "monthly", "weights": {"X": 0.5, "Y": 0.5}}
}`)

	var c configFlags
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse([]string{"-config", config, "-balance", "2000", "-every", "yearly"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := c.Config(f)
	if err != nil {
		t.Fatalf("Config() error: %v", err)
	}
	if cfg.Prices != "prices.csv" || cfg.Currency != "EUR" || cfg.Weights["X"] != 1 {
		t.Errorf("Config() = %+v lost values of the file", cfg)
	}
	if cfg.Balance != 2000 {
		t.Errorf("Config().Balance = %v want 2000 from the flag", cfg.Balance)
	}
	if cfg.Strategy.Name != "rebalance" || cfg.Strategy.Every != "yearly" || cfg.Strategy.Weights["Y"] != 0.5 {
		t.Errorf("Config().Strategy = %+v", cfg.Strategy)
	}
}

func TestConfigDefaults(t *testing.T) {
	var c configFlags
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse([]string{"-prices", "p.csv"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := c.Config(f)
	if err != nil {
		t.Fatalf("Config() error: %v", err)
	}
	if cfg.Balance != 10000 || len(cfg.Weights) != 0 || cfg.Strategy.Name != "" {
		t.Errorf("Config() = %+v want default balance, cash and no strategy", cfg)
	}
}

func TestConfigErrors(t *testing.T) {
	dir := t.TempDir()
	unknown := writeFile(t, dir, "unknown.json", `{"prices": "p.csv", "balance": 1, "fees": 0.1}`)

	testCases := []struct {
		name string
		args []string
	}{
		{"no prices", []string{}},
		{"negative balance", []string{"-prices", "p.csv", "-balance", "-5"}},
		{"invalid weights", []string{"-prices", "p.csv", "-weights", "X=0.5"}},
		{"unparsable weights", []string{"-prices", "p.csv", "-weights", "X"}},
		{"negative start", []string{"-prices", "p.csv", "-start", "-1"}},
		{"unknown config field", []string{"-config", unknown}},
		{"missing config", []string{"-config", filepath.Join(dir, "missing.json")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c configFlags
			f := flag.NewFlagSet("test", flag.ContinueOnError)
			c.SetFlags(f)
			if err := f.Parse(tc.args); err != nil {
				t.Fatal(err)
			}
			if _, err := c.Config(f); err == nil {
				t.Errorf("Config(%q) succeeded want error", tc.args)
			}
		})
	}
}

// TestDocumentedConfigs checks that the JSON examples of the config topic are valid.
func TestDocumentedConfigs(t *testing.T) {
	content, err := docs.GetTopic("config")
	if err != nil {
		t.Fatal(err)
	}
	source := []byte(content)
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	dir := t.TempDir()
	count := 0
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		block, ok := n.(*ast.FencedCodeBlock)
		if !entering || !ok || string(block.Language(source)) != "json" {
			return ast.WalkContinue, nil
		}
		var example []byte
		for i := 0; i < block.Lines().Len(); i++ {
			line := block.Lines().At(i)
			example = append(example, line.Value(source)...)
		}
		count++
		name := writeFile(t, dir, "example.json", string(example))
		cfg, err := LoadConfig(name)
		if err != nil {
			t.Errorf("config example %d: %v", count, err)
			return ast.WalkContinue, nil
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("config example %d is invalid: %v", count, err)
		}
		if _, err := strategy.Parse(cfg.Strategy); err != nil {
			t.Errorf("config example %d has an invalid strategy: %v", count, err)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("found %d config examples want 2", count)
	}
}
