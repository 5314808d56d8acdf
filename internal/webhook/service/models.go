package service

import "flowgate/internal/directory"

// Message types the orchestrator acts on.
const (
	MessageTypeText        = "text"
	MessageTypeInteractive = "interactive"
	InteractiveNFMReply    = "nfm_reply"
)

// Event is one inbound webhook delivery.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is a single inbound chat message.
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type     string    `json:"type"`
	NFMReply *NFMReply `json:"nfm_reply,omitempty"`
}

// NFMReply carries a completed Flow. ResponseJSON is itself a JSON document.
type NFMReply struct {
	Name         string `json:"name"`
	Body         string `json:"body"`
	ResponseJSON string `json:"response_json"`
}

// FirstMessage returns entry[0].changes[0].value.messages[0].
func (e Event) FirstMessage() (*Message, bool) {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return nil, false
	}
	messages := e.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return nil, false
	}
	return &messages[0], true
}

// TextBody is the text payload, or empty for non-text messages.
func (m *Message) TextBody() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// Submission is the decoded response_json of a registration Flow.
type Submission struct {
	Guardian  *directory.GuardianInput  `json:"guardian"`
	Child     *directory.DependantInput `json:"child"`
	School    any                       `json:"school"`
	FlowToken string                    `json:"flow_token"`
}
