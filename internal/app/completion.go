/**
 * @description
 * This file contains the completion proxy logic. It validates an incoming
 * chat turn sequence, builds the system prompt from the GPT's instructions
 * and any retrieved context, and forwards the whole conversation to the
 * OpenAI API with fixed sampling parameters.
 */
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ejacques1/ErinGPT-Builder/pkg/openaiclient"
)

const (
	defaultInstructions = "You are a helpful assistant for this GPT."
	completionMaxTokens = 1000
	completionTemp      = 0.7
)

// CompletionClient defines the upstream call the proxy needs.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openaiclient.ChatRequest) (*openaiclient.ChatResponse, error)
}

// CompletionService proxies chat turns to the completion API.
type CompletionService struct {
	client       CompletionClient
	defaultModel string
}

// NewCompletionService creates a completion proxy service.
func NewCompletionService(client CompletionClient, defaultModel string) CompletionService {
	return CompletionService{client: client, defaultModel: defaultModel}
}

// CompletionInput is the parsed body of a completion request.
type CompletionInput struct {
	Messages     []openaiclient.Message
	Instructions string
	Context      string
	Model        string
}

// CompletionResult is the successful proxy response payload.
type CompletionResult struct {
	Message string             `json:"message"`
	Model   string             `json:"model"`
	Usage   openaiclient.Usage `json:"usage"`
}

// Complete validates the turn sequence, prepends the constructed system
// turn, and forwards the conversation upstream.
func (s CompletionService) Complete(ctx context.Context, in CompletionInput) (*CompletionResult, error) {
	if len(in.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", ErrInvalidArgument)
	}

	model := in.Model
	if model == "" {
		model = s.defaultModel
	}

	messages := make([]openaiclient.Message, 0, len(in.Messages)+1)
	messages = append(messages, openaiclient.Message{
		Role:    "system",
		Content: buildSystemPrompt(in.Instructions, in.Context),
	})
	messages = append(messages, in.Messages...)

	resp, err := s.client.CreateChatCompletion(ctx, openaiclient.ChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemp,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	return &CompletionResult{
		Message: resp.Content,
		Model:   resp.Model,
		Usage:   resp.Usage,
	}, nil
}

// buildSystemPrompt concatenates the GPT's instructions with retrieved
// context when any is present.
func buildSystemPrompt(instructions, contextText string) string {
	prompt := strings.TrimSpace(instructions)
	if prompt == "" {
		prompt = defaultInstructions
	}
	if strings.TrimSpace(contextText) != "" {
		prompt += "\n\nUse the following context to answer:\n" + strings.TrimSpace(contextText)
	}
	return prompt
}
