package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"
)

//go:embed tabledocs.yaml
var tableDocsYAML []byte

// TableDoc documents one warehouse table for prompt construction.
type TableDoc struct {
	Description     string            `yaml:"description"`
	BusinessContext string            `yaml:"business_context"`
	Keywords        []string          `yaml:"keywords"`
	Columns         map[string]string `yaml:"columns"`
}

var tableDocs map[string]TableDoc

func init() {
	if err := yaml.Unmarshal(tableDocsYAML, &tableDocs); err != nil {
		panic(fmt.Sprintf("prompts: embedded tabledocs.yaml is invalid: %v", err))
	}
}

// TableNames returns every documented table, sorted.
func TableNames() []string {
	names := make([]string, 0, len(tableDocs))
	for name := range tableDocs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Doc returns the documentation for one table.
func Doc(table string) (TableDoc, bool) {
	doc, ok := tableDocs[table]
	return doc, ok
}

// TableDescriptions returns the one-line description per table, used to
// annotate schema DDL with leading comments.
func TableDescriptions() map[string]string {
	descriptions := make(map[string]string, len(tableDocs))
	for name, doc := range tableDocs {
		descriptions[name] = doc.Description
	}
	return descriptions
}

// RelevantDocs renders the documentation sections whose table is plausibly
// involved in the question. The filter is cheap keyword matching, not
// semantics: a table is relevant when the question mentions its name, one
// of its keywords, or one of its columns. Question tokens are singularized
// so "time entries" still matches time_entry.
func RelevantDocs(question string) string {
	questionLower := strings.ToLower(question)
	tokens := docTokens(questionLower)

	var sections []string
	for _, name := range TableNames() {
		doc := tableDocs[name]
		if !docMatches(name, doc, questionLower, tokens) {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Table: %s\n", name)
		fmt.Fprintf(&b, "Description: %s\n", doc.Description)
		if doc.BusinessContext != "" {
			fmt.Fprintf(&b, "Business Context: %s\n", strings.TrimSpace(doc.BusinessContext))
		}
		b.WriteString("Key Columns:\n")

		columns := make([]string, 0, len(doc.Columns))
		for col := range doc.Columns {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		for _, col := range columns {
			fmt.Fprintf(&b, "  - %s: %s\n", col, doc.Columns[col])
		}

		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n")
}

func docMatches(name string, doc TableDoc, questionLower string, tokens map[string]struct{}) bool {
	// Table names with underscores match as phrases: "time entry" in the
	// question should hit time_entry.
	if strings.Contains(questionLower, name) ||
		strings.Contains(questionLower, strings.ReplaceAll(name, "_", " ")) {
		return true
	}
	for _, kw := range doc.Keywords {
		if _, ok := tokens[strings.ToLower(kw)]; ok {
			return true
		}
	}
	for col := range doc.Columns {
		if _, ok := tokens[col]; ok {
			return true
		}
	}
	return false
}

// docTokens splits a lower-cased question into singularized word tokens.
func docTokens(questionLower string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(questionLower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	}) {
		tokens[word] = struct{}{}
		tokens[inflection.Singular(word)] = struct{}{}
	}
	return tokens
}
