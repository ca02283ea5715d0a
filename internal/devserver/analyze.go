package devserver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jwulff/codesage/internal/wire"
)

var (
	loopPattern  = regexp.MustCompile(`\b(for|while)\b`)
	storePattern = regexp.MustCompile(`\b(dict|set|map|Map|HashMap|HashSet|unordered_map|vector|list)\b|\{\}|\[\]`)
	funcPattern  = regexp.MustCompile(`\b(def|function|func|class|int main|public)\b`)
)

// analyze produces a rough, deterministic evaluation of a submission. It never runs
// the code.
func analyze(code, language string) wire.AnalysisResult {
	res := wire.AnalysisResult{Language: language}

	if msg := bracketError(code); msg != "" {
		res.Syntax = wire.SyntaxResult{Valid: false, Errors: []string{msg}}
		res.Runtime = wire.RuntimeResult{Success: false, Error: "code does not compile", ReturnCode: 1}
	} else {
		res.Syntax = wire.SyntaxResult{Valid: true, Errors: []string{}}
		res.Runtime = wire.RuntimeResult{Success: true, ExecutionTime: 0.001}
	}

	switch loops := len(loopPattern.FindAllString(code, -1)); {
	case loops == 0:
		res.Complexity.TimeComplexity = "O(1)"
	case loops == 1:
		res.Complexity.TimeComplexity = "O(n)"
	default:
		res.Complexity.TimeComplexity = "O(n^2)"
	}
	if storePattern.MatchString(code) {
		res.Complexity.SpaceComplexity = "O(n)"
	} else {
		res.Complexity.SpaceComplexity = "O(1)"
	}

	var issues []string
	if !funcPattern.MatchString(code) {
		issues = append(issues, "no function or class definition")
	}
	if strings.Contains(code, "TODO") || strings.Contains(code, "pass") {
		issues = append(issues, "solution looks unfinished")
	}
	for i, line := range strings.Split(code, "\n") {
		if len(line) > 100 {
			issues = append(issues, fmt.Sprintf("line %d is longer than 100 characters", i+1))
		}
	}
	score := max(0, 100-15*len(issues))
	res.Quality = wire.QualityResult{Score: float64(score), Grade: grade(float64(score)), Issues: issues}
	if issues == nil {
		res.Quality.Issues = []string{}
	}

	res.Performance = wire.PerformanceResult{
		ExecutionTime: res.Runtime.ExecutionTime,
		MemoryUsage:   "n/a",
		Efficiency:    efficiency(res.Complexity.TimeComplexity),
	}

	syntax := 0.0
	if res.Syntax.Valid {
		syntax = 100
	}
	res.OverallScore = (syntax + res.Quality.Score + timeScore(res.Complexity.TimeComplexity)) / 3
	return res
}

func bracketError(code string) string {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	for _, r := range code {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return fmt.Sprintf("unexpected %q", r)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Sprintf("unclosed %q", stack[len(stack)-1])
	}
	return ""
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	}
	return "F"
}

func timeScore(complexity string) float64 {
	switch complexity {
	case "O(1)", "O(n)":
		return 100
	}
	return 60
}

func efficiency(complexity string) string {
	if complexity == "O(n^2)" {
		return "could be improved"
	}
	return "good"
}
