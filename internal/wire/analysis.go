package wire

// AnalysisResult is one code-evaluation snapshot.
type AnalysisResult struct {
	Syntax       SyntaxResult      `json:"syntax"`
	Runtime      RuntimeResult     `json:"runtime"`
	Complexity   ComplexityResult  `json:"complexity"`
	Quality      QualityResult     `json:"quality"`
	Performance  PerformanceResult `json:"performance"`
	OverallScore float64           `json:"overall_score"`
	Language     string            `json:"language,omitempty"`
}

// SyntaxResult reports whether the submission parsed.
type SyntaxResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// RuntimeResult describes one execution of the submission.
type RuntimeResult struct {
	Success       bool    `json:"success"`
	ExecutionTime float64 `json:"execution_time"`
	Output        string  `json:"output"`
	Error         string  `json:"error"`
	ReturnCode    int     `json:"return_code"`
}

// ComplexityResult holds free-form big-O labels.
type ComplexityResult struct {
	TimeComplexity  string `json:"time_complexity"`
	SpaceComplexity string `json:"space_complexity"`
}

// QualityResult is the style/quality assessment.
type QualityResult struct {
	Score  float64  `json:"score"`
	Grade  string   `json:"grade"`
	Issues []string `json:"issues"`
}

// PerformanceResult is the service's resource estimate.
type PerformanceResult struct {
	ExecutionTime float64 `json:"execution_time"`
	MemoryUsage   string  `json:"memory_usage"`
	Efficiency    string  `json:"efficiency"`
}
