package messaging

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"flowgate/internal/platform/config"
	"flowgate/pkg/platform/sentinel"
)

type captured struct {
	path        string
	auth        string
	contentType string
	body        []byte
}

type fakeGraph struct {
	mu       sync.Mutex
	requests []captured
	status   int
	response string
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, captured{
		path:        r.URL.Path,
		auth:        r.Header.Get("Authorization"),
		contentType: r.Header.Get("Content-Type"),
		body:        body,
	})
	status, response := f.status, f.response
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, response)
}

func (f *fakeGraph) respond(status int, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.response = status, response
}

func (f *fakeGraph) last() captured {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeGraph) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type ClientSuite struct {
	suite.Suite
	graph  *fakeGraph
	server *httptest.Server
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.reset()
}

func (s *ClientSuite) SetupSubTest() {
	s.reset()
}

func (s *ClientSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}
}

func (s *ClientSuite) reset() {
	if s.server != nil {
		s.server.Close()
	}
	s.graph = &fakeGraph{status: http.StatusOK, response: `{"messages":[{"id":"wamid.ABC"}]}`}
	s.server = httptest.NewServer(s.graph)
	s.client = New(config.WhatsApp{
		GraphURL:      s.server.URL + "/",
		GraphVersion:  "v22.0",
		PhoneNumberID: "1234",
		AccessToken:   "secret-token",
	})
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// =============================================================================
// Text messages
// =============================================================================

func (s *ClientSuite) TestSendText() {
	s.Run("posts text payload and returns message id", func() {
		res, err := s.client.SendText(context.Background(), "254700000001", "hello", false)
		s.Require().NoError(err)
		s.True(res.Success)
		s.Equal("wamid.ABC", res.MessageID)

		req := s.graph.last()
		s.Equal("/v22.0/1234/messages", req.path)
		s.Equal("Bearer secret-token", req.auth)
		s.Equal("application/json", req.contentType)

		body := decode(s.T(), req.body)
		s.Equal("whatsapp", body["messaging_product"])
		s.Equal("individual", body["recipient_type"])
		s.Equal("254700000001", body["to"])
		s.Equal("text", body["type"])
		s.Equal(map[string]any{"preview_url": false, "body": "hello"}, body["text"])
		s.NotContains(body, "interactive")
	})

	s.Run("missing message id still succeeds", func() {
		s.graph.respond(http.StatusOK, `{}`)
		res, err := s.client.SendText(context.Background(), "254700000001", "hi", true)
		s.Require().NoError(err)
		s.True(res.Success)
		s.Empty(res.MessageID)
	})

	s.Run("non-2xx surfaces api error", func() {
		s.graph.respond(http.StatusBadRequest, `{"error":{"message":"bad recipient"}}`)

		_, err := s.client.SendText(context.Background(), "x", "hi", false)
		var apiErr *APIError
		s.Require().ErrorAs(err, &apiErr)
		s.Equal(http.StatusBadRequest, apiErr.StatusCode)
		s.Equal("send_text", apiErr.Op)
		s.Contains(apiErr.Body, "bad recipient")
	})

	s.Run("transport failure surfaces error", func() {
		s.server.Close()
		_, err := s.client.SendText(context.Background(), "x", "hi", false)
		s.Error(err)
	})
}

func (s *ClientSuite) TestNotConfigured() {
	client := New(config.WhatsApp{GraphURL: s.server.URL, GraphVersion: "v22.0"})

	_, err := client.SendText(context.Background(), "x", "hi", false)
	s.ErrorIs(err, sentinel.ErrNotConfigured)

	_, err = client.SendFlow(context.Background(), "x", FlowMessage{FlowID: "1"})
	s.ErrorIs(err, sentinel.ErrNotConfigured)

	_, err = client.UploadPublicKey(context.Background(), "pem")
	s.ErrorIs(err, sentinel.ErrNotConfigured)

	s.Zero(s.graph.count())
}

// =============================================================================
// Flow invitations
// =============================================================================

func (s *ClientSuite) TestSendFlow() {
	s.Run("full invitation", func() {
		res, err := s.client.SendFlow(context.Background(), "254700000001", FlowMessage{
			FlowID:    "2933855406810730",
			Body:      "Complete your account setup",
			CTA:       "Complete Registration",
			FlowToken: "guardian-abc-session",
			Header:    "Welcome",
			Footer:    "Powered by us",
			ActionPayload: &FlowActionPayload{
				Screen: "GUARDIAN_DETAILS",
				Data:   map[string]any{"schools": []string{"a"}},
			},
		})
		s.Require().NoError(err)
		s.Equal("guardian-abc-session", res.FlowToken)

		body := decode(s.T(), s.graph.last().body)
		s.Equal("interactive", body["type"])

		in := body["interactive"].(map[string]any)
		s.Equal("flow", in["type"])
		s.Equal(map[string]any{"type": "text", "text": "Welcome"}, in["header"])
		s.Equal(map[string]any{"text": "Complete your account setup"}, in["body"])
		s.Equal(map[string]any{"text": "Powered by us"}, in["footer"])

		action := in["action"].(map[string]any)
		s.Equal("flow", action["name"])
		params := action["parameters"].(map[string]any)
		s.Equal("3", params["flow_message_version"])
		s.Equal("guardian-abc-session", params["flow_token"])
		s.Equal("2933855406810730", params["flow_id"])
		s.Equal("Complete Registration", params["flow_cta"])
		s.Equal("navigate", params["flow_action"])
		s.Equal(map[string]any{
			"screen": "GUARDIAN_DETAILS",
			"data":   map[string]any{"schools": []any{"a"}},
		}, params["flow_action_payload"])
	})

	s.Run("defaults token and omits optional parts", func() {
		res, err := s.client.SendFlow(context.Background(), "254700000001", FlowMessage{
			FlowID: "99",
			Body:   "Go",
			Action: "data_exchange",
		})
		s.Require().NoError(err)
		s.True(strings.HasPrefix(res.FlowToken, "flow_"))

		in := decode(s.T(), s.graph.last().body)["interactive"].(map[string]any)
		s.NotContains(in, "header")
		s.NotContains(in, "footer")

		params := in["action"].(map[string]any)["parameters"].(map[string]any)
		s.Equal(res.FlowToken, params["flow_token"])
		s.Equal("data_exchange", params["flow_action"])
		s.NotContains(params, "flow_action_payload")
	})

	s.Run("rejection returns no result", func() {
		s.graph.respond(http.StatusUnauthorized, `{"error":"expired"}`)
		res, err := s.client.SendFlow(context.Background(), "x", FlowMessage{FlowID: "1"})
		s.Nil(res)
		var apiErr *APIError
		s.Require().ErrorAs(err, &apiErr)
		s.Equal("send_flow", apiErr.Op)
	})
}

// =============================================================================
// Public key upload
// =============================================================================

func (s *ClientSuite) TestUploadPublicKey() {
	s.Run("posts form encoded key", func() {
		s.graph.respond(http.StatusOK, `{"success":true}`)
		res, err := s.client.UploadPublicKey(context.Background(), "-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----")
		s.Require().NoError(err)
		s.True(res.Success)
		s.JSONEq(`{"success":true}`, string(res.Data))

		req := s.graph.last()
		s.Equal("/v22.0/1234/whatsapp_business_encryption", req.path)
		s.Equal("application/x-www-form-urlencoded", req.contentType)
		form, err := url.ParseQuery(string(req.body))
		s.Require().NoError(err)
		s.Contains(form.Get("business_public_key"), "BEGIN PUBLIC KEY")
	})

	s.Run("rejection surfaces api error", func() {
		s.graph.respond(http.StatusForbidden, `{}`)
		_, err := s.client.UploadPublicKey(context.Background(), "pem")
		var apiErr *APIError
		s.Require().ErrorAs(err, &apiErr)
		s.Equal(http.StatusForbidden, apiErr.StatusCode)
	})
}

func TestNewFlowTokenUnique(t *testing.T) {
	a, b := NewFlowToken(), NewFlowToken()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "flow_"))
}
