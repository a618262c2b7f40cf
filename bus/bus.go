// ABOUTME: Typed request/response message bus between foreground and background contexts
// ABOUTME: Action dispatch plus an unsolicited progress broadcast channel
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Action names a request/response operation on the bus.
type Action string

const (
	ActionCheckOnboardingStatus Action = "checkOnboardingStatus"
	ActionStartOnboarding       Action = "startOnboarding"
	ActionSubmitQuestionnaire   Action = "submitQuestionnaire"
	ActionCompleteOnboarding    Action = "completeOnboarding"
	ActionGetCampaigns          Action = "getCampaigns"
	ActionStartGeneration       Action = "startGeneration"
	ActionRetryUnit             Action = "retryUnit"
	ActionGenerationStatus      Action = "generationStatus"
	ActionSignOut               Action = "signOut"
)

// ProgressEvent is the broadcast half of the bus: fire-and-forget updates
// pushed from the background context while onboarding runs.
type ProgressEvent struct {
	Step    string `json:"step"`
	Fetched int    `json:"fetched,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`

	// Set on backend_complete
	EmailCount    int    `json:"email_count,omitempty"`
	CampaignCount int    `json:"campaign_count,omitempty"`
	CampaignIDs   []string `json:"campaign_ids,omitempty"`
}

// Handler processes one action's payload and returns a result to encode.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Requester is the caller-side surface of the bus: a typed request that
// awaits a typed reply.
type Requester interface {
	Request(ctx context.Context, action Action, payload any, out any) error
}

// Dispatcher is the background-context side of the bus. It routes requests
// to registered handlers and fans broadcast events out to subscribers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
	subs     map[int]chan ProgressEvent
	nextSub  int
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Action]Handler),
		subs:     make(map[int]chan ProgressEvent),
	}
}

// Handle registers the handler for an action.
func (d *Dispatcher) Handle(action Action, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = handler
}

// Request dispatches an action in-process. It implements Requester so the
// foreground can run embedded in the same process as the background.
func (d *Dispatcher) Request(ctx context.Context, action Action, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	d.mu.RLock()
	handler, ok := d.handlers[action]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for action %q", action)
	}

	result, err := handler(ctx, data)
	if err != nil {
		return err
	}

	if out != nil && result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := json.Unmarshal(encoded, out); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}

	return nil
}

// Subscribe returns a progress event channel and a cancel function. The
// channel is buffered; slow or departed subscribers drop events rather than
// blocking the broadcaster.
func (d *Dispatcher) Subscribe() (<-chan ProgressEvent, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++
	ch := make(chan ProgressEvent, 64)
	d.subs[id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if sub, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Broadcast pushes an event to every subscriber. Never blocks: a full
// subscriber buffer loses the event.
func (d *Dispatcher) Broadcast(event ProgressEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, ch := range d.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
