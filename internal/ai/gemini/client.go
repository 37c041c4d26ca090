// Package gemini implements the ai contracts on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
)

const (
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 30 * time.Second

	// attachmentFallbackText accompanies an attachment sent without any
	// user text, so the model still receives an instruction.
	attachmentFallbackText = "Please analyze this attachment."
)

// patchable for retry tests.
var sleep = time.Sleep

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	client *genai.Client
}

func (g *genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return g.client.Chats.Create(ctx, model, config, history)
}

// Generator wraps the GenAI chat API behind the ai.Invoker seam: system
// instruction plus shaped history plus the latest content in, raw text out.
// Every request forces JSON-only output via the response MIME type.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, timeout time.Duration, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Generator{
		chats:      &genaiChats{client: client},
		model:      model,
		maxRetries: maxRetries,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// Invoke implements ai.Invoker.
func (g *Generator) Invoke(ctx context.Context, systemInstruction string, history []ai.Turn, content ai.Content) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if instruction := strings.TrimSpace(systemInstruction); instruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		}
	}

	genHistory := toHistory(history)
	parts := toParts(content)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			if g.logger != nil {
				g.logger.Debug("retrying gemini call",
					zap.Int("attempt", attempt),
					zap.Duration("backoff", backoff),
					zap.Error(lastErr),
				)
			}
			sleep(backoff)
		}

		output, err := g.send(ctx, config, genHistory, parts)
		if err == nil {
			return output, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	return "", lastErr
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, history []*genai.Content, parts []genai.Part) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	chat, err := g.chats.Create(callCtx, g.model, config, history)
	if err != nil {
		return "", fmt.Errorf("create chat session: %w", err)
	}

	resp, err := chat.SendMessage(callCtx, parts...)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	output := collectText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func toHistory(history []ai.Turn) []*genai.Content {
	if len(history) == 0 {
		return nil
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == ai.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	return contents
}

func toParts(content ai.Content) []genai.Part {
	if content.Attachment == nil {
		return []genai.Part{{Text: content.Text}}
	}

	text := content.Text
	if strings.TrimSpace(text) == "" {
		text = attachmentFallbackText
	}

	return []genai.Part{
		{Text: text},
		{InlineData: &genai.Blob{
			MIMEType: content.Attachment.MIMEType,
			Data:     content.Attachment.Data,
		}},
	}
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return errors.Is(err, context.DeadlineExceeded)
}
