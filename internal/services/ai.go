package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/taskdesk-api/internal/models"
)

type AIService struct {
	client *openai.Client
}

// GeneratedTask is a task suggestion. It is returned to the client and never stored.
type GeneratedTask struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

const taskExtractionPrompt = `You are a task extraction assistant. Extract concrete tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of the extracted tasks in this shape:
[
  {
    "title": "short task title",
    "description": "details of the task",
    "priority": "low | medium | high",
    "dueDate": "deadline in ISO8601, e.g. 2025-10-28T23:59:59Z, or null when none is stated"
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative deadlines ("tomorrow", "next week") to concrete times
- dueDate must be an ISO8601 string or null
- Return JSON only, with no surrounding prose`

// GenerateTasksFromText analyzes text and extracts tasks using OpenAI GPT
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := time.Now().UTC().Format(time.RFC3339)
	prompt := fmt.Sprintf(taskExtractionPrompt, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
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

	return parseGeneratedTasks(resp.Choices[0].Message.Content)
}

// parseGeneratedTasks decodes the model output, tolerating a fenced code block.
func parseGeneratedTasks(content string) ([]GeneratedTask, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return tasks, nil
}
