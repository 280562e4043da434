// Package agent talks to the language service: it assembles completion
// requests, analyzes evidence photos and parses structured decisions out of
// free-text replies.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ErrEmptyCompletion is returned when the language service answers with no text.
var ErrEmptyCompletion = errors.New("language service returned no text")

// Role tags a prior conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Image is an inline photo sent alongside the user text.
type Image struct {
	MIMEType string
	Data     []byte
}

// CompletionRequest is one outbound call. SystemPrompt may be empty for
// single-shot tasks such as policy refinement.
type CompletionRequest struct {
	SystemPrompt string
	History      []Turn
	UserText     string
	Image        *Image
}

// Gateway is the only path to the language service.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// LLMGateway implements Gateway on top of an ADK model, either Gemini or the
// Moonshot adapter.
type LLMGateway struct {
	llm         model.LLM
	temperature float32
}

// NewGateway wraps llm.
func NewGateway(llm model.LLM) *LLMGateway {
	return &LLMGateway{llm: llm, temperature: 0.4}
}

var _ Gateway = (*LLMGateway)(nil)

// Complete sends req and returns the concatenated text of the response.
// No timeout or retry is applied here; callers bound the call through ctx.
func (g *LLMGateway) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	temperature := g.temperature
	llmReq := &model.LLMRequest{
		Model:    g.llm.Name(),
		Contents: buildContents(req),
		Config: &genai.GenerateContentConfig{
			Temperature: &temperature,
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		llmReq.Config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	var out strings.Builder
	for resp, err := range g.llm.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		out.WriteString(collectContentText(resp))
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func buildContents(req CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		var role genai.Role = genai.RoleModel
		if turn.Role == RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	parts := make([]*genai.Part, 0, 2)
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Image.MIMEType,
				Data:     req.Image.Data,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(req.UserText))

	return append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: parts,
	})
}

func collectContentText(resp *model.LLMResponse) string {
	if resp == nil || resp.Content == nil {
		return ""
	}

	var output string
	for _, part := range resp.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		output += part.Text
	}
	return output
}
