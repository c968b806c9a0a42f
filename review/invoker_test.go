package review

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/bookaudit/message"
	"github.com/sweetpotato0/bookaudit/middleware"
	"github.com/sweetpotato0/bookaudit/provider"
)

// MockLLMClient implements provider.Client for testing
type MockLLMClient struct {
	temperature float64
	maxTokens   int64
	model       string
	response    string
	err         error
	requests    []*provider.GenerateRequest
}

func (m *MockLLMClient) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	msg := message.NewMessage(message.RoleAssistant, m.response)
	return &provider.GenerateResponse{Message: msg}, nil
}

func (m *MockLLMClient) SetTemperature(temp float64) {
	m.temperature = temp
}

func (m *MockLLMClient) SetMaxTokens(max int64) {
	m.maxTokens = max
}

func (m *MockLLMClient) SetModel(model string) {
	m.model = model
}

func TestClientInvokerSendsSystemAndUserMessages(t *testing.T) {
	client := &MockLLMClient{response: "ok"}
	inv := NewClientInvoker(client, WithSystemPrompt(JudgeSystemPrompt))

	got, err := inv.Invoke(context.Background(), Invocation{Agent: "A", ChunkID: "c1", Prompt: "review this"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("Expected response ok, got %q", got)
	}

	if len(client.requests) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(client.requests))
	}
	msgs := client.requests[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("Expected system + user messages, got %d", len(msgs))
	}
	if msgs[0].Role != message.RoleSystem || msgs[0].Content != JudgeSystemPrompt {
		t.Errorf("Unexpected system message: %+v", msgs[0])
	}
	if msgs[1].Role != message.RoleUser || msgs[1].Content != "review this" {
		t.Errorf("Unexpected user message: %+v", msgs[1])
	}
}

func TestClientInvokerWithoutSystemPrompt(t *testing.T) {
	client := &MockLLMClient{response: "ok"}
	inv := NewClientInvoker(client)

	if _, err := inv.Invoke(context.Background(), Invocation{Prompt: "p"}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(client.requests[0].Messages) != 1 {
		t.Errorf("Expected a single user message, got %d", len(client.requests[0].Messages))
	}
}

func TestClientInvokerPropagatesProviderError(t *testing.T) {
	client := &MockLLMClient{err: errors.New("rate limited")}
	inv := NewClientInvoker(client)

	if _, err := inv.Invoke(context.Background(), Invocation{Prompt: "p"}); err == nil {
		t.Errorf("Expected provider error to propagate")
	}
}

func TestClientInvokerRunsMiddleware(t *testing.T) {
	client := &MockLLMClient{response: "ok"}
	limiter := middleware.NewRateLimiter(1)
	inv := NewClientInvoker(client, WithMiddleware(middleware.NewChain(limiter)))

	if _, err := inv.Invoke(context.Background(), Invocation{Prompt: "p"}); err != nil {
		t.Fatalf("First invoke failed: %v", err)
	}
	if _, err := inv.Invoke(context.Background(), Invocation{Prompt: "p"}); !errors.Is(err, middleware.ErrRateLimitExceeded) {
		t.Errorf("Expected rate limit error, got %v", err)
	}
	if len(client.requests) != 1 {
		t.Errorf("Expected only 1 request through to the client, got %d", len(client.requests))
	}
}
