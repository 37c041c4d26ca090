package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
	chat    *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	parts    []genai.Part
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts = append(f.parts, parts...)
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, history: history, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testGenerator(chats chatCreator, maxRetries int) *Generator {
	return &Generator{
		chats:      chats,
		model:      "gemini-1.5-flash",
		maxRetries: maxRetries,
		timeout:    time.Second,
		logger:     zap.NewNop(),
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-1.5-flash", nil, tempErr)
	chats.enqueue("gemini-1.5-flash", textResponse("retry ok"), nil)

	g := testGenerator(chats, 2)

	output, err := g.Invoke(context.Background(), "system", nil, ai.Content{Text: "message"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if call.config.ResponseMIMEType != "application/json" {
			t.Fatalf("expected json response mime type, got %q", call.config.ResponseMIMEType)
		}
		if len(call.chat.parts) != 1 || call.chat.parts[0].Text != "message" {
			t.Fatalf("unexpected chat parts: %+v", call.chat.parts)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-1.5-flash", nil, tempErr)
	chats.enqueue("gemini-1.5-flash", nil, tempErr)
	chats.enqueue("gemini-1.5-flash", nil, tempErr)

	g := testGenerator(chats, 2)

	_, err := g.Invoke(context.Background(), "sys", nil, ai.Content{Text: "msg"})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(chats.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnClientError(t *testing.T) {
	chats := newFakeChatCreator()
	badErr := genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}
	chats.enqueue("gemini-1.5-flash", nil, badErr)

	g := testGenerator(chats, 3)

	_, err := g.Invoke(context.Background(), "sys", nil, ai.Content{Text: "msg"})
	if err == nil {
		t.Fatal("expected error for client error")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorConvertsHistoryRoles(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-1.5-flash", textResponse("ok"), nil)

	g := testGenerator(chats, 0)

	history := []ai.Turn{
		{Role: ai.RoleUser, Text: "hi"},
		{Role: ai.RoleModel, Text: "hello"},
	}

	if _, err := g.Invoke(context.Background(), "", history, ai.Content{Text: "next"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := chats.calls[0].history
	if len(got) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(got))
	}
	if got[0].Role != genai.RoleUser || got[0].Parts[0].Text != "hi" {
		t.Fatalf("unexpected first history entry: %+v", got[0])
	}
	if got[1].Role != genai.RoleModel || got[1].Parts[0].Text != "hello" {
		t.Fatalf("unexpected second history entry: %+v", got[1])
	}
}

func TestGeneratorSendsAttachmentAsInlineData(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-1.5-flash", textResponse("ok"), nil)

	g := testGenerator(chats, 0)

	content := ai.Content{
		Attachment: &ai.Attachment{
			Name:     "resume.pdf",
			MIMEType: "application/pdf",
			Data:     []byte("%PDF-1.4"),
		},
	}

	if _, err := g.Invoke(context.Background(), "", nil, content); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := chats.calls[0].chat.parts
	if len(parts) != 2 {
		t.Fatalf("expected text and inline data parts, got %d", len(parts))
	}
	if parts[0].Text != attachmentFallbackText {
		t.Fatalf("expected fallback text for empty message, got %q", parts[0].Text)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "application/pdf" {
		t.Fatalf("unexpected inline data part: %+v", parts[1])
	}
}

func TestGeneratorRejectsEmptyResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-1.5-flash", &genai.GenerateContentResponse{}, nil)

	g := testGenerator(chats, 0)

	if _, err := g.Invoke(context.Background(), "", nil, ai.Content{Text: "msg"}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestCollectTextJoinsParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "first"},
				{Text: "  "},
				{Text: "second"},
			}},
		}},
	}

	if got := collectText(resp); got != "first\nsecond" {
		t.Fatalf("unexpected collected text: %q", got)
	}
}
