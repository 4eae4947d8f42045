package conversation

import (
	"context"
	"time"
)

// CallObserver records collaborator latency. metrics.ChatMetrics satisfies it.
type CallObserver interface {
	ObserveLLMCall(provider, operation string, seconds float64, err error)
}

// InstrumentedClient times every completion against a provider label.
type InstrumentedClient struct {
	next      LLMClient
	provider  string
	operation string
	observer  CallObserver
	now       func() time.Time
}

func NewInstrumentedClient(next LLMClient, provider, operation string, observer CallObserver) *InstrumentedClient {
	if next == nil {
		panic("conversation: llm client cannot be nil")
	}
	return &InstrumentedClient{next: next, provider: provider, operation: operation, observer: observer, now: time.Now}
}

func (c *InstrumentedClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	start := c.now()
	resp, err := c.next.Complete(ctx, req)
	if c.observer != nil {
		c.observer.ObserveLLMCall(c.provider, c.operation, c.now().Sub(start).Seconds(), err)
	}
	return resp, err
}
