package docs

import (
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// readmeTopics returns the topics listed in the readme as "* topic: description".
func readmeTopics(t *testing.T) []string {
	t.Helper()
	readme, err := GetTopic(Readme)
	if err != nil {
		t.Fatal(err)
	}
	re := regexp.MustCompile(`(?m)^\*\s+([^:]+):`)
	var topics []string
	for _, m := range re.FindAllStringSubmatch(readme, -1) {
		topics = append(topics, strings.TrimSpace(m[1]))
	}
	return topics
}

func TestTopics(t *testing.T) {
	listed := readmeTopics(t)
	for _, topic := range listed {
		if _, err := GetTopic(topic); err != nil {
			t.Errorf("topic %q listed in the readme cannot be loaded: %v", topic, err)
		}
	}

	all, err := GetAllTopics()
	if err != nil {
		t.Fatalf("GetAllTopics() error: %v", err)
	}
	if slices.Contains(all, Readme) {
		t.Errorf("GetAllTopics() = %v contains the readme", all)
	}
	for _, topic := range all {
		if !slices.Contains(listed, topic) {
			t.Errorf("topic %q is not listed in the readme", topic)
		}
	}
}

func TestGetTopics(t *testing.T) {
	all, err := GetAllTopics()
	if err != nil {
		t.Fatal(err)
	}
	content, err := GetTopics("*")
	if err != nil {
		t.Fatalf("GetTopics(*) error: %v", err)
	}
	// every topic has exactly one title
	if got := strings.Count("\n"+content, "\n# "); got != len(all) {
		t.Errorf("GetTopics(*) has %d titles want %d", got, len(all))
	}

	if _, err := GetTopics("config", "unknown"); err == nil {
		t.Error("GetTopics(unknown) succeeded want error")
	}
}

func TestTitles(t *testing.T) {
	for _, topic := range append(readmeTopics(t), Readme) {
		content, err := GetTopic(topic)
		if err != nil {
			t.Fatal(err)
		}
		source := []byte(content)
		root := goldmark.DefaultParser().Parse(text.NewReader(source))
		first, ok := root.FirstChild().(*ast.Heading)
		if !ok || first.Level != 1 {
			t.Errorf("topic %q does not start with a title", topic)
		}
	}
}
