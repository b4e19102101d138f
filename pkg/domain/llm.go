package domain

// Message roles understood by the collaborator adapters.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversational turn sent to the collaborator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is what workers hand to the reasoning collaborator.
type CompletionRequest struct {
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string, maxTokens int) CompletionRequest {
	return CompletionRequest{
		System:    system,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	}
}
