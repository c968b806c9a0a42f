package review

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/bookaudit/message"
	"github.com/sweetpotato0/bookaudit/middleware"
	"github.com/sweetpotato0/bookaudit/provider"
)

// JudgeSystemPrompt pins the judge to JSON-only output.
const JudgeSystemPrompt = "You are a helpful assistant that strictly follows the provided instructions and returns only a JSON object."

// ClientInvoker adapts a provider.Client to the Invoker interface, running
// every call through an optional middleware chain.
type ClientInvoker struct {
	client provider.Client
	system string
	chain  *middleware.Chain
}

// InvokerOption configures a ClientInvoker.
type InvokerOption func(*ClientInvoker)

// WithSystemPrompt sets a system message prepended to every call.
func WithSystemPrompt(system string) InvokerOption {
	return func(ci *ClientInvoker) {
		ci.system = system
	}
}

// WithMiddleware sets the middleware chain calls pass through.
func WithMiddleware(chain *middleware.Chain) InvokerOption {
	return func(ci *ClientInvoker) {
		ci.chain = chain
	}
}

// NewClientInvoker creates an Invoker backed by the given provider.
func NewClientInvoker(client provider.Client, opts ...InvokerOption) *ClientInvoker {
	ci := &ClientInvoker{client: client}
	for _, opt := range opts {
		opt(ci)
	}
	return ci
}

// Invoke sends the prompt and returns the raw response text.
func (ci *ClientInvoker) Invoke(ctx context.Context, inv Invocation) (string, error) {
	if ci.client == nil {
		return "", fmt.Errorf("invoker has no provider client")
	}

	mwCtx := middleware.NewContext(ctx)
	mwCtx.Agent = inv.Agent
	mwCtx.ChunkID = inv.ChunkID
	mwCtx.Prompt = inv.Prompt

	call := func(mwCtx *middleware.Context) error {
		msgs := make([]*message.Message, 0, 2)
		if ci.system != "" {
			msgs = append(msgs, message.NewMessage(message.RoleSystem, ci.system))
		}
		msgs = append(msgs, message.NewMessage(message.RoleUser, mwCtx.Prompt))

		resp, err := ci.client.Generate(mwCtx.Context(), &provider.GenerateRequest{Messages: msgs})
		if err != nil {
			mwCtx.Error = err
			return err
		}
		mwCtx.Response = resp.Message.Text()
		return nil
	}

	var err error
	if ci.chain != nil {
		err = ci.chain.Execute(mwCtx, call)
	} else {
		err = call(mwCtx)
	}
	if err != nil {
		return "", err
	}
	return mwCtx.Response, nil
}
