package events

// Semantic event kinds, carried in the "event" field.
const (
	KindThreadStarted = "thread/started"
	KindTurnStarted   = "turn/started"
	KindItemStarted   = "item/started"
	KindItemDelta     = "item/agent_message/delta"
	KindItemCompleted = "item/completed"
	KindTurnCompleted = "turn/completed"
	KindTurnError     = "turn/error"
)

// Wire kinds, carried in the "type" field. They mirror the Responses API
// streaming event names so existing clients can consume the stream.
const (
	TypeThreadStarted = "thread/started"
	TypeCreated       = "response.created"
	TypeItemAdded     = "response.output_item.added"
	TypeItemDone      = "response.output_item.done"
	TypeTextDelta     = "response.output_text.delta"
	TypeTextDone      = "response.output_text.done"
	TypeCompleted     = "response.completed"
	TypeTurnError     = "turn/error"
)

const (
	turnKindEnhance   = "enhance"
	responseCompleted = "completed"
)

// Item types.
const (
	ItemUserPrompt   = "user_prompt"
	ItemEnhancement  = "enhancement"
	ItemAgentMessage = "agent_message"
)

// Error codes carried by turn/error events.
const (
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeProviderError       = "PROVIDER_ERROR"
)

// Event is one protocol message. Which fields are set depends on Event.Event;
// unset fields are omitted from the JSON encoding.
type Event struct {
	Event      string          `json:"event"`
	Type       string          `json:"type"`
	TurnID     string          `json:"turn_id,omitempty"`
	ThreadID   string          `json:"thread_id,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	ItemID     string          `json:"item_id,omitempty"`
	ItemType   string          `json:"item_type,omitempty"`
	Payload    *Payload        `json:"payload,omitempty"`
	Item       *Item           `json:"item,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	Choices    []Choice        `json:"choices,omitempty"`
	Text       *string         `json:"text,omitempty"`
	OutputText *string         `json:"output_text,omitempty"`
	Response   *ResponseStatus `json:"response,omitempty"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`

	done bool
}

// Payload carries the text of a completed item.
type Payload struct {
	Text string `json:"text"`
}

// Item describes the item an event refers to.
type Item struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

// Choice mirrors the chat-completions delta shape.
type Choice struct {
	Delta ChoiceDelta `json:"delta"`
}

// ChoiceDelta holds one text fragment.
type ChoiceDelta struct {
	Content string `json:"content"`
}

// ResponseStatus is the terminal status reported by turn/completed.
type ResponseStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Done returns the terminal sentinel. It is always the last event of a stream.
func Done() Event {
	return Event{done: true}
}

// IsDone reports whether e is the terminal sentinel.
func (e Event) IsDone() bool {
	return e.done
}
