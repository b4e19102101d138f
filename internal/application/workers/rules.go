package workers

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/aescanero/taskorch/pkg/domain"
)

type safetyPattern struct {
	category string
	label    string
	re       *regexp.Regexp
}

var safetyPatterns = []safetyPattern{
	{domain.CategoryPersonalInfo, "social security number", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{domain.CategoryPersonalInfo, "payment card number", regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)},
	{domain.CategoryPersonalInfo, "email address", regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)},
	{domain.CategoryHarmfulInstructions, "weapon construction", regexp.MustCompile(`(?i)\b(how to (make|create|build).*(bomb|explosive|weapon))\b`)},
	{domain.CategoryHarmfulInstructions, "illegal activity", regexp.MustCompile(`(?i)\b(illegal|unlawful|criminal)\s+(activity|action|method)\b`)},
	{domain.CategoryInappropriateContent, "explicit material", regexp.MustCompile(`(?i)\b(explicit|graphic|violent)\s+(content|material|description)\b`)},
}

// safetyIssues returns one issue per matched pattern.
func safetyIssues(content string, strict bool) []domain.Issue {
	severity := domain.SeverityMedium
	if strict {
		severity = domain.SeverityHigh
	}
	var issues []domain.Issue
	for _, p := range safetyPatterns {
		if p.re.MatchString(content) {
			issues = append(issues, domain.Issue{
				Category:    p.category,
				Severity:    severity,
				Description: fmt.Sprintf("Potential %s content detected", strings.ReplaceAll(p.category, "_", " ")),
				Detail:      p.label,
			})
		}
	}
	return issues
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// sentences splits text on terminal punctuation and drops empty fragments.
func sentences(content string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(content, -1) {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// qualityIssues applies the length, repetition and structure heuristics.
func qualityIssues(content string, minLength int) []domain.Issue {
	var issues []domain.Issue

	if len([]rune(content)) < minLength {
		issues = append(issues, domain.Issue{
			Category:    domain.CategoryLength,
			Severity:    domain.SeverityHigh,
			Description: "Content too short to be meaningful",
		})
	}

	words := strings.Fields(strings.ToLower(content))
	if len(words) > 0 {
		freq := make(map[string]int, len(words))
		top := 0
		for _, w := range words {
			freq[w]++
			if freq[w] > top {
				top = freq[w]
			}
		}
		if float64(top) > float64(len(words))*0.1 {
			issues = append(issues, domain.Issue{
				Category:    domain.CategoryRepetition,
				Severity:    domain.SeverityMedium,
				Description: "Excessive word repetition detected",
			})
		}
	}

	if sents := sentences(content); len(sents) > 0 {
		short := 0
		for _, s := range sents {
			if len([]rune(s)) < 5 {
				short++
			}
		}
		if float64(short) > float64(len(sents))*0.3 {
			issues = append(issues, domain.Issue{
				Category:    domain.CategoryStructure,
				Severity:    domain.SeverityLow,
				Description: "Many very short sentences detected",
			})
		}
	}

	return issues
}

// readability peaks at 15 words per sentence and loses 5 points per word of
// distance from it.
func readability(content string) float64 {
	sents := sentences(content)
	words := strings.Fields(content)
	if len(sents) == 0 || len(words) == 0 {
		return 0
	}
	avg := float64(len(words)) / float64(len(sents))
	score := 100 - math.Abs(avg-15)*5
	return math.Max(0, math.Min(100, score))
}

var bracketPairs = map[rune]rune{')': '(', ']': '[', '}': '{'}

// bracketIssue returns a syntax issue if block's brackets do not balance.
func bracketIssue(block string, index int) *domain.Issue {
	var stack []rune
	for _, r := range block {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != bracketPairs[r] {
				return &domain.Issue{
					Category:    domain.CategorySyntax,
					Severity:    domain.SeverityHigh,
					Description: fmt.Sprintf("Unbalanced brackets in code block %d", index+1),
				}
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return &domain.Issue{
			Category:    domain.CategorySyntax,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("Unclosed brackets in code block %d", index+1),
		}
	}
	return nil
}

type termVariants struct {
	term     string
	variants []*regexp.Regexp
	names    []string
}

func newTermVariants(term string, variants ...string) termVariants {
	tv := termVariants{term: term, names: variants}
	for _, v := range variants {
		tv.variants = append(tv.variants, regexp.MustCompile(`\b`+regexp.QuoteMeta(v)+`\b`))
	}
	return tv
}

var terminology = []termVariants{
	newTermVariants("javascript", "javascript", "js", "JavaScript", "JS"),
	newTermVariants("python", "python", "Python", "PYTHON"),
	newTermVariants("api", "api", "API", "Api"),
}

// terminologyIssues flags terms written in more than one variant.
func terminologyIssues(content string) []domain.Issue {
	var issues []domain.Issue
	for _, tv := range terminology {
		var found []string
		for i, re := range tv.variants {
			if re.MatchString(content) {
				found = append(found, tv.names[i])
			}
		}
		if len(found) > 1 {
			issues = append(issues, domain.Issue{
				Category:    domain.CategoryTerminology,
				Severity:    domain.SeverityLow,
				Description: fmt.Sprintf("Inconsistent terminology for '%s': %s", tv.term, strings.Join(found, ", ")),
			})
		}
	}
	return issues
}

var recommendationTemplates = map[string]string{
	domain.CategoryPersonalInfo:         "Remove or redact personal information such as ID numbers, card numbers and email addresses",
	domain.CategoryHarmfulInstructions:  "Remove instructions that could facilitate harmful or illegal activity",
	domain.CategoryInappropriateContent: "Revise or remove inappropriate material",
	domain.CategorySafety:               "Review content for potential safety concerns and revise as needed",
	domain.CategoryLength:               "Expand the content so it carries enough information to be meaningful",
	domain.CategoryRepetition:           "Vary the vocabulary to reduce repeated words",
	domain.CategoryStructure:            "Merge very short fragments into complete sentences",
	domain.CategoryQuality:              "Improve content clarity, structure, and completeness",
	domain.CategorySyntax:               "Check code blocks for syntax errors and proper formatting",
	domain.CategoryTerminology:          "Ensure consistent terminology usage throughout the content",
	domain.CategoryTechnical:            "Address the technical accuracy concerns raised in review",
}

// NoIssuesRecommendation is the sole recommendation for clean content.
const NoIssuesRecommendation = "Content meets validation standards"

// recommendations returns one sentence per distinct issue category, in the
// order categories first appear.
func recommendations(issues []domain.Issue) []string {
	seen := make(map[string]bool)
	var out []string
	for _, is := range issues {
		if seen[is.Category] {
			continue
		}
		seen[is.Category] = true
		if rec, ok := recommendationTemplates[is.Category]; ok {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		out = append(out, NoIssuesRecommendation)
	}
	return out
}

func score(issues, penalty int) float64 {
	return math.Max(0, float64(100-issues*penalty))
}
