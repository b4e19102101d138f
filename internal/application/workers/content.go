package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/pkg/domain"
	"go.uber.org/zap"
)

var (
	contentTypes  = []string{"explanation", "summary", "analysis", "creative", "technical"}
	contentStyles = []string{"professional", "casual", "academic", "technical", "creative"}
	contentSizes  = []string{"short", "medium", "long", "extended"}
)

var lengthGuidance = map[string]string{
	"short":    "Keep it concise (100-200 words). Focus on essential information only.",
	"medium":   "Provide moderate detail (200-500 words). Balance completeness with brevity.",
	"long":     "Provide comprehensive coverage (500-800 words). Include detailed explanations and examples.",
	"extended": "Create thorough, in-depth content (800+ words). Cover all relevant aspects comprehensively.",
}

var styleGuidance = map[string]string{
	"professional": "Use formal, business-appropriate language. Maintain professional tone throughout.",
	"casual":       "Use conversational, friendly language. Be approachable and relatable.",
	"academic":     "Use scholarly language with proper citations and formal structure.",
	"technical":    "Use precise technical terminology. Focus on accuracy and clarity.",
	"creative":     "Use engaging, expressive language. Be imaginative and compelling.",
}

var lengthTokens = map[string]int{
	"short":    300,
	"medium":   600,
	"long":     1000,
	"extended": 1500,
}

type contentTemplate struct {
	role      string
	structure string
	prefix    string
	// styled is false for types whose register is fixed by the type itself.
	styled bool
}

var contentTemplates = map[string]contentTemplate{
	"explanation": {
		role: "You are a content specialist focused on clear explanations.",
		structure: `Structure your explanation with:
1. Clear introduction
2. Main concepts with examples
3. Step-by-step breakdown if applicable
4. Conclusion or summary

Make it accessible and engaging while maintaining accuracy.`,
		prefix: "Please explain: ",
		styled: true,
	},
	"summary": {
		role: "You are a content specialist focused on creating concise summaries.",
		structure: `Create a summary that:
1. Captures key points
2. Maintains essential information
3. Uses clear, direct language
4. Follows logical structure

Prioritize clarity and completeness within the length constraints.`,
		prefix: "Please summarize: ",
		styled: true,
	},
	"analysis": {
		role: "You are a content specialist focused on analytical writing.",
		structure: `Provide analysis that includes:
1. Context and background
2. Key factors and variables
3. Relationships and patterns
4. Implications and conclusions
5. Supporting evidence and reasoning

Maintain objectivity and critical thinking throughout.`,
		prefix: "Please analyze: ",
		styled: true,
	},
	"creative": {
		role: "You are a creative content specialist.",
		structure: `Create engaging, original content that:
1. Captures attention and interest
2. Uses vivid language and imagery
3. Maintains coherent narrative or structure
4. Balances creativity with clarity

Be imaginative while staying relevant to the request.`,
		prefix: "Creative content request: ",
	},
	"technical": {
		role: "You are a technical documentation specialist.",
		structure: `Create technical content that:
1. Uses precise, accurate terminology
2. Includes step-by-step instructions when applicable
3. Provides examples and code snippets if relevant
4. Follows standard documentation practices
5. Considers different skill levels

Prioritize accuracy, completeness, and usability.`,
		prefix: "Technical documentation request: ",
	},
}

const refineSystemPrompt = `You are a content refinement specialist. Improve the given content based on the specific instructions provided.

Maintain the core message while enhancing:
- Clarity and readability
- Structure and flow
- Accuracy and completeness
- Style and tone consistency

Preserve the original intent and key information.`

// ContentWorker generates text of a requested type, style and length.
type ContentWorker struct {
	base
}

// NewContentWorker creates a content worker.
func NewContentWorker(inv *invoker.Invoker, settings Settings, logger *zap.Logger) *ContentWorker {
	return &ContentWorker{
		base: newBase(domain.ContentWorkerName, domain.WorkerContent, inv, settings, logger),
	}
}

// ValidateInput checks the request text and the type, style and length enums.
func (w *ContentWorker) ValidateInput(input domain.WorkerInput) error {
	if err := w.checkText("content request", input.Task, 5); err != nil {
		return err
	}
	if err := w.checkMode("content type", orDefault(input.Mode, "explanation"), contentTypes); err != nil {
		return err
	}
	if !contains(contentStyles, orDefault(input.Style, "professional")) {
		return domain.NewInputValidationError(w.name, "invalid style: %s", input.Style)
	}
	if !contains(contentSizes, orDefault(input.Length, "medium")) {
		return domain.NewInputValidationError(w.name, "invalid length: %s", input.Length)
	}
	return nil
}

// Process generates the requested content.
func (w *ContentWorker) Process(ctx context.Context, input domain.WorkerInput) (*domain.WorkerOutput, error) {
	if err := w.ValidateInput(input); err != nil {
		return nil, err
	}

	contentType := orDefault(input.Mode, "explanation")
	style := orDefault(input.Style, "professional")
	length := orDefault(input.Length, "medium")

	w.logger.Info("generating content",
		zap.String("task_id", input.TaskID),
		zap.String("content_type", contentType),
		zap.String("style", style),
		zap.String("length", length))

	tmpl := contentTemplates[contentType]
	content, err := w.complete(ctx, contentSystemPrompt(tmpl, style, length), tmpl.prefix+input.Task, lengthTokens[length])
	if err != nil {
		return nil, err
	}

	return &domain.WorkerOutput{
		Worker:    w.name,
		Mode:      contentType,
		Content:   content,
		WordCount: wordCount(content),
		Details: map[string]string{
			"style":  style,
			"length": length,
		},
	}, nil
}

// Refine rewrites existing content following the given instructions.
func (w *ContentWorker) Refine(ctx context.Context, content, instructions string) (*domain.WorkerOutput, error) {
	if err := w.checkText("content", content, 1); err != nil {
		return nil, err
	}
	if err := w.checkText("refinement instructions", instructions, 1); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Original content:\n%s\n\nRefinement instructions:\n%s", content, instructions)
	refined, err := w.complete(ctx, refineSystemPrompt, prompt, 800)
	if err != nil {
		return nil, err
	}

	return &domain.WorkerOutput{
		Worker:    w.name,
		Mode:      "refinement",
		Content:   refined,
		WordCount: wordCount(refined),
		Details: map[string]string{
			"refinement_instructions": instructions,
		},
	}, nil
}

func contentSystemPrompt(tmpl contentTemplate, style, length string) string {
	var b strings.Builder
	b.WriteString(tmpl.role)
	b.WriteString("\n\n")
	if tmpl.styled {
		b.WriteString("Style: ")
		b.WriteString(styleGuidance[style])
		b.WriteString("\n")
	}
	b.WriteString("Length: ")
	b.WriteString(lengthGuidance[length])
	b.WriteString("\n\n")
	b.WriteString(tmpl.structure)
	return b.String()
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
