package host

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
)

// AnthropicHost runs each execution context as a background conversation
// against the Anthropic Messages API. One context holds one transcript; a
// dispatched prompt is a turn appended to it.
type AnthropicHost struct {
	client *Client

	mu       sync.RWMutex
	contexts map[string]*execContext
}

// execContext is the server-side state of one execution context.
type execContext struct {
	mu            sync.Mutex
	id            string
	agentIdentity string
	status        ContextStatus
	transcript    []anthropic.MessageParam
	checklist     []ChecklistItem
	cancel        context.CancelFunc
}

// NewAnthropicHost creates a host backed by the given client.
func NewAnthropicHost(client *Client) *AnthropicHost {
	return &AnthropicHost{
		client:   client,
		contexts: make(map[string]*execContext),
	}
}

// CreateContext provisions a new idle context.
func (h *AnthropicHost) CreateContext(_ context.Context, agentIdentity string) (string, error) {
	ec := &execContext{
		id:            uuid.New().String()[:8],
		agentIdentity: agentIdentity,
		status:        StatusIdle,
	}

	h.mu.Lock()
	h.contexts[ec.id] = ec
	h.mu.Unlock()

	return ec.id, nil
}

// Dispatch sends a prompt to the context and returns immediately. The turn
// runs in a background goroutine; onDone receives the outcome.
func (h *AnthropicHost) Dispatch(handle, prompt string, onDone func(DispatchResult)) error {
	ec, err := h.lookup(handle)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	ec.mu.Lock()
	if ec.cancel != nil {
		ec.cancel()
	}
	ec.cancel = cancel
	ec.status = StatusRunning
	ec.transcript = append(ec.transcript, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
	messages := append([]anthropic.MessageParam(nil), ec.transcript...)
	system := ec.agentIdentity
	ec.mu.Unlock()

	go func() {
		output, err := h.runTurn(ctx, system, messages)

		ec.mu.Lock()
		if err == nil {
			ec.transcript = append(ec.transcript,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(output)))
			ec.checklist = parseChecklist(output)
		}
		ec.status = StatusIdle
		ec.cancel = nil
		ec.mu.Unlock()

		if onDone != nil {
			onDone(DispatchResult{Output: output, Err: err})
		}
	}()

	return nil
}

// runTurn makes a single Messages API call.
func (h *AnthropicHost) runTurn(ctx context.Context, system string, messages []anthropic.MessageParam) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     h.client.Model(),
		MaxTokens: 8192,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := h.client.sdk().Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("messages call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

// Status reports whether the context is idle or running.
func (h *AnthropicHost) Status(handle string) (ContextStatus, error) {
	ec, err := h.lookup(handle)
	if err != nil {
		return "", err
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.status, nil
}

// Checklist returns the context's current checklist items.
func (h *AnthropicHost) Checklist(handle string) ([]ChecklistItem, error) {
	ec, err := h.lookup(handle)
	if err != nil {
		return nil, err
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]ChecklistItem(nil), ec.checklist...), nil
}

// Abort cancels any in-flight turn without waiting for it to stop.
func (h *AnthropicHost) Abort(handle string) {
	ec, err := h.lookup(handle)
	if err != nil {
		return
	}
	ec.mu.Lock()
	if ec.cancel != nil {
		ec.cancel()
		ec.cancel = nil
	}
	ec.mu.Unlock()
}

// Deliver sends a message to the context as a synchronous turn. This can
// block for the full API call; callers decide whether to wait.
func (h *AnthropicHost) Deliver(ctx context.Context, handle, message string) error {
	ec, err := h.lookup(handle)
	if err != nil {
		return err
	}

	ec.mu.Lock()
	ec.transcript = append(ec.transcript, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))
	messages := append([]anthropic.MessageParam(nil), ec.transcript...)
	system := ec.agentIdentity
	ec.mu.Unlock()

	output, err := h.runTurn(ctx, system, messages)
	if err != nil {
		return err
	}

	ec.mu.Lock()
	ec.transcript = append(ec.transcript,
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(output)))
	ec.mu.Unlock()
	return nil
}

// lookup finds a context by handle.
func (h *AnthropicHost) lookup(handle string) (*execContext, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ec, ok := h.contexts[handle]
	if !ok {
		return nil, fmt.Errorf("unknown execution context %q", handle)
	}
	return ec, nil
}

// parseChecklist extracts markdown checklist items from output text.
// Lines of the form "- [ ] item" and "- [x] item" are recognized.
func parseChecklist(output string) []ChecklistItem {
	var items []ChecklistItem
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- [ ] "):
			items = append(items, ChecklistItem{Text: strings.TrimPrefix(trimmed, "- [ ] ")})
		case strings.HasPrefix(trimmed, "- [x] "), strings.HasPrefix(trimmed, "- [X] "):
			items = append(items, ChecklistItem{Text: trimmed[6:], Done: true})
		}
	}
	return items
}
