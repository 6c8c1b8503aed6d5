// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the conversation loop sends
// correct CompletionRequests and to feed controlled responses — including
// multi-round tool-calling scripts — without a live LLM backend.
//
// Example:
//
//	p := &mock.Provider{
//	    Responses: []*llm.CompletionResponse{{Content: "Hello!", StopReason: llm.StopEnd}},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/mpreiss/dealbot/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
//
// Each call to Complete consumes the next entry of Responses; once the script
// is exhausted the last entry is returned again. Set Err to inject a failure
// instead.
type Provider struct {
	mu sync.Mutex

	// Responses is the scripted sequence returned by successive Complete calls.
	Responses []*llm.CompletionResponse

	// Err, if non-nil, is returned as the error from every Complete call.
	Err error

	// Caps is returned by Capabilities.
	Caps llm.ModelCapabilities

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	next int
}

// Complete records the call and returns the next scripted response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{StopReason: llm.StopEnd}, nil
	}
	resp := p.Responses[min(p.next, len(p.Responses)-1)]
	p.next++
	return resp, nil
}

// Capabilities returns Caps.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return p.Caps
}

// Reset clears all recorded calls and rewinds the response script. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.next = 0
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
