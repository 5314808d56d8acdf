package messaging

import (
	"encoding/json"
	"fmt"
)

// FlowMessage describes an interactive Flow invitation.
type FlowMessage struct {
	FlowID string
	Body   string
	CTA    string
	// FlowToken correlates the eventual submission; generated when empty.
	FlowToken     string
	ActionPayload *FlowActionPayload
	Header        string
	Footer        string
	// Action is "navigate" or "data_exchange"; defaults to navigate.
	Action string
}

// FlowActionPayload opens the Flow on Screen with Data.
type FlowActionPayload struct {
	Screen string `json:"screen"`
	Data   any    `json:"data,omitempty"`
}

// Result is the outcome of an accepted send.
type Result struct {
	Success   bool
	MessageID string
	FlowToken string
	Data      json.RawMessage
}

// APIError is a non-2xx Cloud API response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("messaging: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

type outbound struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type interactive struct {
	Type   string      `json:"type"`
	Header *header     `json:"header,omitempty"`
	Body   textOnly    `json:"body"`
	Footer *textOnly   `json:"footer,omitempty"`
	Action interaction `json:"action"`
}

type header struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textOnly struct {
	Text string `json:"text"`
}

type interaction struct {
	Name       string         `json:"name"`
	Parameters flowParameters `json:"parameters"`
}

type flowParameters struct {
	FlowMessageVersion string             `json:"flow_message_version"`
	FlowToken          string             `json:"flow_token"`
	FlowID             string             `json:"flow_id"`
	FlowCTA            string             `json:"flow_cta"`
	FlowAction         string             `json:"flow_action"`
	FlowActionPayload  *FlowActionPayload `json:"flow_action_payload,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}
