package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/pkg/domain"
)

// ReviewHook is a collaborator-based check run once per validation pass.
// It returns at most one issue; a nil issue means the review raised nothing.
type ReviewHook interface {
	Review(ctx context.Context, kind domain.ValidationKind, content string) (*domain.Issue, error)
}

// ReviewHookFunc adapts a function to ReviewHook.
type ReviewHookFunc func(ctx context.Context, kind domain.ValidationKind, content string) (*domain.Issue, error)

// Review calls f.
func (f ReviewHookFunc) Review(ctx context.Context, kind domain.ValidationKind, content string) (*domain.Issue, error) {
	return f(ctx, kind, content)
}

const reviewContentLimit = 2000

type reviewProfile struct {
	system      string
	prompt      string
	maxTokens   int
	keywords    []string
	category    string
	severity    domain.Severity
	description string
}

// defaultReviewProfiles returns the prompts and signal keywords used by
// KeywordReview for each validation pass.
func defaultReviewProfiles() map[domain.ValidationKind]reviewProfile {
	return map[domain.ValidationKind]reviewProfile{
		domain.ValidationSafety: {
			system: `You are a content safety specialist. Analyze the given content for potential safety issues.

Check for:
- Harmful or dangerous instructions
- Inappropriate or offensive content
- Misinformation or misleading claims
- Privacy violations
- Bias or discrimination

Answer "unsafe" or "harmful" only if you find a genuine concern.`,
			prompt:      "Analyze this content for safety issues:\n\n",
			maxTokens:   400,
			keywords:    []string{"unsafe", "harmful"},
			category:    domain.CategorySafety,
			severity:    domain.SeverityMedium,
			description: "Collaborator review detected potential safety concerns",
		},
		domain.ValidationQuality: {
			system: `You are a content quality specialist. Analyze the given content for quality issues.

Assess:
- Clarity and coherence
- Grammar and style
- Logical structure
- Completeness
- Accuracy (where verifiable)

Identify specific areas for improvement.`,
			prompt:      "Analyze this content for quality issues:\n\n",
			maxTokens:   300,
			keywords:    []string{"unclear", "confusing", "incomplete", "error", "improve"},
			category:    domain.CategoryQuality,
			severity:    domain.SeverityLow,
			description: "Collaborator review identified potential quality improvements",
		},
		domain.ValidationTechnical: {
			system: `You are a technical content specialist. Analyze the given content for technical accuracy and completeness.

Check for:
- Technical accuracy
- Code syntax and best practices
- Documentation completeness
- Proper terminology usage
- Missing technical details

Focus on actionable technical improvements.`,
			prompt:      "Analyze this technical content:\n\n",
			maxTokens:   300,
			keywords:    []string{"incorrect", "missing", "syntax", "deprecated", "outdated"},
			category:    domain.CategoryTechnical,
			severity:    domain.SeverityMedium,
			description: "Collaborator review identified potential technical issues",
		},
	}
}

// KeywordReview asks the collaborator to review content and raises an
// issue when the reply contains one of the pass's signal keywords.
type KeywordReview struct {
	invoker  *invoker.Invoker
	profiles map[domain.ValidationKind]reviewProfile
}

// NewKeywordReview creates the default review hook. Its calls are counted
// by inv.
func NewKeywordReview(inv *invoker.Invoker) *KeywordReview {
	return &KeywordReview{invoker: inv, profiles: defaultReviewProfiles()}
}

// Review implements ReviewHook.
func (r *KeywordReview) Review(ctx context.Context, kind domain.ValidationKind, content string) (*domain.Issue, error) {
	profile, ok := r.profiles[kind]
	if !ok {
		return nil, nil
	}

	if runes := []rune(content); len(runes) > reviewContentLimit {
		content = string(runes[:reviewContentLimit])
	}

	reply, err := r.invoker.Complete(ctx, domain.UserPrompt(profile.system, profile.prompt+content, profile.maxTokens))
	if err != nil {
		return nil, fmt.Errorf("%s review failed: %w", kind, err)
	}

	lower := strings.ToLower(reply)
	for _, k := range profile.keywords {
		if strings.Contains(lower, k) {
			detail := reply
			if runes := []rune(detail); len(runes) > 200 {
				detail = string(runes[:200])
			}
			return &domain.Issue{
				Category:    profile.category,
				Severity:    profile.severity,
				Description: profile.description,
				Detail:      detail,
			}, nil
		}
	}
	return nil, nil
}
