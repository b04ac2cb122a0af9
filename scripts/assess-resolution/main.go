// assess-resolution evaluates entity resolution quality against a live
// entity index. It runs a fixed set of misspelled and abbreviated questions
// through the resolver and combines deterministic checks (did a substitution
// happen, how confident was it) with an LLM-as-judge pass that grades
// whether each rewrite preserved the question's intent.
//
// Usage: go run ./scripts/assess-resolution
//
// Requires: ANTHROPIC_API_KEY and OPENAI_API_KEY environment variables
// Database connection: Uses standard PG* environment variables
//
// The index must be built first (tmsagent index). Extraction uses the
// heuristic extractor only, so reruns are reproducible and the only LLM
// spend is embeddings plus one judge call per case.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/richipal/tmsagent/pkg/database"
	"github.com/richipal/tmsagent/pkg/extract"
	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/services"
	"github.com/richipal/tmsagent/pkg/vector"
)

const judgeModel = "claude-sonnet-4-5-20250929"

// testCase is one canned question. ExpectSubstitution marks questions whose
// mention is deliberately wrong and should be rewritten; clean questions
// must pass through untouched.
type testCase struct {
	Question           string `json:"question"`
	ExpectSubstitution bool   `json:"expect_substitution"`
}

var testCases = []testCase{
	{Question: "Where does Rosalina Rodrigez work?", ExpectSubstitution: true},
	{Question: "Show hours for Maria Santoz last week", ExpectSubstitution: true},
	{Question: "Who worked at Roosevelt HS yesterday?", ExpectSubstitution: true},
	{Question: "List absences for Jhon Smith", ExpectSubstitution: true},
	{Question: "How many hours were logged last week?", ExpectSubstitution: false},
	{Question: "Show all pending time entries", ExpectSubstitution: false},
}

// CaseResult holds deterministic facts plus the judge's grade for one case.
type CaseResult struct {
	Question          string   `json:"question"`
	EnhancedQuery     string   `json:"enhanced_query"`
	Substituted       bool     `json:"substituted"`
	ExpectedSubst     bool     `json:"expected_substitution"`
	OverallConfidence float64  `json:"overall_confidence"`
	UsedFallback      bool     `json:"used_fallback"`
	DeterministicOK   bool     `json:"deterministic_ok"`
	JudgeScore        int      `json:"judge_score"` // 0-100
	JudgeIssues       []string `json:"judge_issues,omitempty"`
}

// AssessmentResult is the full assessment output.
type AssessmentResult struct {
	CommitInfo string       `json:"commit_info"`
	ModelUsed  string       `json:"model_used"`
	Cases      []CaseResult `json:"cases"`
	FinalScore int          `json:"final_score"`
}

func main() {
	ctx := context.Background()

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		fmt.Fprintln(os.Stderr, "ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}

	db, err := database.NewConnection(ctx, &database.Config{URL: buildConnString()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	embedClient, err := llm.NewClient(&llm.Config{
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   getEnvOrDefault("LLM_MODEL", "gpt-4o"),
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create LLM client: %v\n", err)
		os.Exit(1)
	}

	store := vector.NewPGStore(db.Pool, embedClient, 0.5, nil)
	resolver := services.NewEntityResolver(
		extract.NewHeuristicExtractor(nil), store, services.DefaultResolverConfig(), nil)

	judge := anthropic.NewClient(anthropicKey)

	result := AssessmentResult{
		CommitInfo: getCommitInfo(),
		ModelUsed:  judgeModel,
	}

	total := 0
	for _, tc := range testCases {
		cr := runCase(ctx, resolver, judge, tc)
		result.Cases = append(result.Cases, cr)
		total += caseScore(cr)
	}
	result.FinalScore = total / len(testCases)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func runCase(ctx context.Context, resolver services.EntityResolver, judge *anthropic.Client, tc testCase) CaseResult {
	resolution := resolver.EnhanceQuery(ctx, tc.Question, nil)

	cr := CaseResult{
		Question:          tc.Question,
		EnhancedQuery:     resolution.EnhancedQuery,
		Substituted:       resolution.EnhancedQuery != resolution.OriginalQuery,
		ExpectedSubst:     tc.ExpectSubstitution,
		OverallConfidence: resolution.OverallConfidence,
		UsedFallback:      resolution.UsedFallback,
	}
	cr.DeterministicOK = cr.Substituted == tc.ExpectSubstitution

	// Clean questions need no judge: untouched is the only right answer.
	if !cr.Substituted {
		if cr.DeterministicOK {
			cr.JudgeScore = 100
		}
		return cr
	}

	entityLines := make([]string, 0, len(resolution.Entities))
	for _, e := range resolution.Entities {
		entityLines = append(entityLines,
			fmt.Sprintf("- %q -> %q (%s, confidence %.2f)", e.Original, e.Resolved, e.Category, e.Confidence))
	}

	prompt := fmt.Sprintf(`You are evaluating an entity resolution system for a time management database.
The system rewrites user questions by replacing misspelled or abbreviated names
with exact database values.

Original question: %s
Rewritten question: %s
Substitutions made:
%s

Grade the rewrite 0-100:
- 100: every substitution maps to what the user plainly meant, nothing else changed
- 50: substitutions are plausible but uncertain
- 0: the rewrite changed the question's meaning

Respond with JSON only:
{"score": <0-100>, "issues": ["<issue>", ...]}`,
		tc.Question, resolution.EnhancedQuery, strings.Join(entityLines, "\n"))

	resp, err := judge.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     judgeModel,
		MaxTokens: 1000,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		cr.JudgeIssues = []string{fmt.Sprintf("Assessment failed: %v", err)}
		return cr
	}

	responseText := ""
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			responseText += *block.Text
		}
	}

	var graded struct {
		Score  int      `json:"score"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(extractJSON(responseText)), &graded); err != nil {
		cr.JudgeIssues = []string{fmt.Sprintf("Unparseable judge response: %v", err)}
		return cr
	}

	cr.JudgeScore = graded.Score
	cr.JudgeIssues = graded.Issues
	return cr
}

// caseScore blends the deterministic check and the judge's grade. A wrong
// substitution decision caps the case at half credit regardless of how
// plausible the judge found the rewrite.
func caseScore(cr CaseResult) int {
	if !cr.DeterministicOK {
		return cr.JudgeScore / 2
	}
	return cr.JudgeScore
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "tmsagent")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "timemanagement")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getCommitInfo() string {
	cmd := exec.Command("git", "describe", "--always", "--dirty")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
