package refresh

import (
	"sync"
	"time"
)

// Observer states.
const (
	StateIdle             = "idle"
	StateAwaitingResponse = "awaiting_response"
	StateReady            = "ready"
)

// Message is one conversational message as the transport surfaces it.
// ToolNames holds explicit tool invocations when the transport exposes
// them; Text is the rendered content scanned by keyword inference.
type Message struct {
	ID        string
	Role      string
	Text      string
	ToolNames []string
}

const (
	defaultSignalDelay   = 500 * time.Millisecond
	defaultFallbackDelay = 2 * time.Second
)

// Observer watches one chat session's message stream and emits refresh
// signals when a turn completes. Each message is scanned at most once
// over the observer's lifetime; the processed set only grows and is
// discarded with the session. Inference failures degrade to no targeted
// refresh, never to a panic; the assistant fallback still guarantees a
// full refresh.
type Observer struct {
	mu        sync.Mutex
	hub       *Hub
	state     string
	processed map[string]bool

	signalDelay   time.Duration
	fallbackDelay time.Duration
	after         func(time.Duration, func()) *time.Timer
}

func NewObserver(hub *Hub) *Observer {
	return &Observer{
		hub:           hub,
		state:         StateIdle,
		processed:     make(map[string]bool),
		signalDelay:   defaultSignalDelay,
		fallbackDelay: defaultFallbackDelay,
		after:         time.AfterFunc,
	}
}

// State reports the current lifecycle state.
func (o *Observer) State() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// UserSent marks a new user utterance in flight.
func (o *Observer) UserSent() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateAwaitingResponse
}

// TurnComplete marks the conversational turn finished and scans every
// unprocessed message. Targeted signals fire after a short settle delay;
// if the final message is assistant-authored, a fallback signals all
// three categories after a longer delay regardless of what inference
// found. Stale timers firing after teardown are harmless no-ops since
// signals without listeners are dropped.
func (o *Observer) TurnComplete(msgs []Message) {
	defer func() {
		// inference is best-effort and must never take the session down
		_ = recover()
	}()
	want := o.scan(msgs)

	var cats []Category
	for _, c := range AllCategories {
		if want[c] {
			cats = append(cats, c)
		}
	}
	if len(cats) > 0 {
		o.after(o.signalDelay, func() { o.hub.Signal(cats...) })
	}
	if len(msgs) > 0 && msgs[len(msgs)-1].Role == "assistant" {
		o.after(o.fallbackDelay, func() { o.hub.Signal(AllCategories...) })
	}
}

// scan marks unprocessed messages and collects the categories their tool
// activity maps to. The deferred unlock keeps the mutex released even if
// inference panics mid-scan.
func (o *Observer) scan(msgs []Message) map[Category]bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateReady
	want := make(map[Category]bool)
	for _, m := range msgs {
		if m.ID == "" || o.processed[m.ID] {
			continue
		}
		o.processed[m.ID] = true
		tools := append([]string{}, m.ToolNames...)
		tools = append(tools, InferTools(m.Text)...)
		for _, c := range CategoriesFor(tools) {
			want[c] = true
		}
	}
	return want
}
