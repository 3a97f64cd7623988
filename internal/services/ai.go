package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultDraftCategory = "General"

// chatCompleter is the part of the OpenAI client the service uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client chatCompleter
	model  string
}

// GeneratedTask is a task draft proposed by the model.
type GeneratedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Deadline    *time.Time `json:"deadline"`
}

// rawTask is the shape the model is asked to produce. Deadlines arrive as
// strings in either date or RFC 3339 form.
type rawTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Deadline    *string `json:"deadline"`
}

func NewAIService(apiKey string) *AIService {
	return newAIService(openai.NewClient(apiKey))
}

func newAIService(client chatCompleter) *AIService {
	return &AIService{
		client: client,
		model:  openai.GPT4o,
	}
}

// GenerateTasksFromText extracts task drafts for a project from free text.
func (s *AIService) GenerateTasksFromText(ctx context.Context, projectName, text string, now time.Time) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You are a task extraction assistant for the project %q. Extract concrete tasks from the text below.

Today: %s

Text:
%s

Return a JSON array of the extracted tasks:
[
  {
    "title": "short task title (at most 100 characters)",
    "description": "details of the task",
    "category": "one or two word category such as Backend, Design or Research",
    "deadline": "deadline as YYYY-MM-DD, or null when the text gives none"
  }
]

Rules:
- Return an empty array [] when there are no tasks
- Convert relative expressions such as "tomorrow" or "next week" into dates
- Return only JSON, without any explanation`, projectName, now.Format("2006-01-02"), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var raw []rawTask
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	tasks := make([]GeneratedTask, len(raw))
	for i, r := range raw {
		tasks[i] = GeneratedTask{
			Title:       r.Title,
			Description: r.Description,
			Category:    r.Category,
			Deadline:    parseDeadline(r.Deadline),
		}
	}
	return tasks, nil
}

// stripCodeFence removes a markdown ``` wrapper some models add.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// parseDeadline drops values it cannot read.
func parseDeadline(value *string) *time.Time {
	if value == nil {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(*value)); err == nil {
			return &t
		}
	}
	return nil
}
