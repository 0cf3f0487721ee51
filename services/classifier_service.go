package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// One attempt per request, hard timeout. A hung provider call must not hang
// the whole request.
const classifierTimeout = 30 * time.Second

const classifierModel = "gpt-4o-mini"

const classifierSystemPrompt = `You are an AI assistant helping with CRM tasks. You must respond in a structured format that starts with an ACTION: followed by the action type and any relevant details.

Available actions:
1. ACTION: SEARCH - For finding tickets (e.g., "ACTION: SEARCH query: payment issue")
2. ACTION: UPDATE - For updating tickets (e.g., "ACTION: UPDATE ticket: 44 priority: low")
3. ACTION: CREATE - For creating tickets (e.g., "ACTION: CREATE subject: Customer reported login issue")
4. ACTION: INFO - For getting customer info (e.g., "ACTION: INFO customer: 123")

Keep responses concise and professional. Always start with ACTION: followed by the type.
Available ticket statuses: open, pending, solved, closed
Available priorities: low, normal, high, urgent`

// ClassifierService maps free-text requests to one ACTION line via the LLM.
// The raw model text is returned unmodified; parsing happens downstream.
type ClassifierService struct {
	client *openai.Client
}

func NewClassifierService(apiKey string) *ClassifierService {
	return &ClassifierService{client: openai.NewClient(apiKey)}
}

func (s *ClassifierService) Classify(ctx context.Context, userInput, history string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx,
		openai.ChatCompletionRequest{
			Model:       classifierModel,
			Temperature: 0.7,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: classifierSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Previous conversation:\n%s\n\nCurrent request: %s", history, userInput),
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("classifier request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("classifier returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
