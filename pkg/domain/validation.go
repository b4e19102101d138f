package domain

import (
	"fmt"
	"strings"
)

// ValidationKind selects which rule set the validation worker applies.
type ValidationKind string

const (
	ValidationSafety        ValidationKind = "safety"
	ValidationQuality       ValidationKind = "quality"
	ValidationTechnical     ValidationKind = "technical"
	ValidationComprehensive ValidationKind = "comprehensive"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue categories produced by the validation rules.
const (
	CategoryPersonalInfo         = "personal_info"
	CategoryHarmfulInstructions  = "harmful_instructions"
	CategoryInappropriateContent = "inappropriate_content"
	CategorySafety               = "safety"
	CategoryLength               = "length"
	CategoryRepetition           = "repetition"
	CategoryStructure            = "structure"
	CategoryQuality              = "quality"
	CategorySyntax               = "syntax"
	CategoryTerminology          = "terminology"
	CategoryTechnical            = "technical"
)

// Issue is a single finding of a validation pass.
type Issue struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Detail      string   `json:"detail,omitempty"`
}

// ValidationReport is the outcome of validating one piece of content.
type ValidationReport struct {
	Kind             ValidationKind `json:"kind"`
	Passed           bool           `json:"passed"`
	Score            float64        `json:"score"`
	SafetyScore      *float64       `json:"safety_score,omitempty"`
	QualityScore     *float64       `json:"quality_score,omitempty"`
	ReadabilityScore *float64       `json:"readability_score,omitempty"`
	CodeBlocks       int            `json:"code_blocks,omitempty"`
	ContentLength    int            `json:"content_length"`
	StrictMode       bool           `json:"strict_mode"`
	Issues           []Issue        `json:"issues"`
	Recommendations  []string       `json:"recommendations"`
}

// IssuesIn returns the issues whose category is one of categories.
func (r *ValidationReport) IssuesIn(categories ...string) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		for _, c := range categories {
			if is.Category == c {
				out = append(out, is)
				break
			}
		}
	}
	return out
}

// HasCategory reports whether any issue has the given category.
func (r *ValidationReport) HasCategory(category string) bool {
	return len(r.IssuesIn(category)) > 0
}

// Summary renders the report as the text output of a validation step.
func (r *ValidationReport) Summary() string {
	verdict := "passed"
	if !r.Passed {
		verdict = "failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Validation (%s) %s with score %.0f/100", r.Kind, verdict, r.Score)
	if len(r.Issues) > 0 {
		fmt.Fprintf(&b, "; %d issue(s) found", len(r.Issues))
	}
	b.WriteString(".")
	for _, rec := range r.Recommendations {
		b.WriteString("\n- ")
		b.WriteString(rec)
	}
	return b.String()
}
