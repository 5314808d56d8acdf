package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"flowgate/internal/catalog"
	"flowgate/internal/directory"
	"flowgate/internal/flowcrypto"
	"flowgate/internal/messaging"
	"flowgate/internal/webhook/service/mocks"
	"flowgate/internal/wizard"
	dErrors "flowgate/pkg/domain-errors"
	"flowgate/pkg/platform/sentinel"
)

const (
	sender      = "254700000001"
	sessionFlow = "guardian-test-session"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	directory *mocks.MockDirectory
	messenger *mocks.MockMessenger
	wizard    *mocks.MockWizard
	channel   *mocks.MockChannel
	service   *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.setup()
}

// SetupSubTest gives each subtest its own controller so expectations
// cannot leak between cases.
func (s *ServiceSuite) SetupSubTest() {
	s.setup()
}

func (s *ServiceSuite) setup() {
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.messenger = mocks.NewMockMessenger(s.ctrl)
	s.wizard = mocks.NewMockWizard(s.ctrl)
	s.channel = mocks.NewMockChannel(s.ctrl)
	s.service = New(s.directory, s.messenger, s.wizard, catalog.Default(),
		Config{VerifyToken: "verify-me", FlowID: "2933855406810730"},
		WithChannel(s.channel),
		WithSessionTokens(func() string { return sessionFlow }),
	)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TearDownSubTest() {
	s.ctrl.Finish()
}

func eventWith(msg Message) Event {
	return Event{
		Object: "whatsapp_business_account",
		Entry: []Entry{{
			ID: "waba",
			Changes: []Change{{
				Field: "messages",
				Value: ChangeValue{MessagingProduct: "whatsapp", Messages: []Message{msg}},
			}},
		}},
	}
}

func textEvent(body string) Event {
	return eventWith(Message{From: sender, ID: "wamid.1", Type: MessageTypeText, Text: &Text{Body: body}})
}

func nfmEvent(responseJSON string) Event {
	return eventWith(Message{
		From: sender,
		ID:   "wamid.2",
		Type: MessageTypeInteractive,
		Interactive: &Interactive{
			Type:     InteractiveNFMReply,
			NFMReply: &NFMReply{Name: "flow", Body: "Sent", ResponseJSON: responseJSON},
		},
	})
}

func knownUser() *directory.User {
	return &directory.User{
		ID:                     "42",
		FirstName:              "Jane",
		LastName:               "Doe",
		Email:                  "jane@example.com",
		Phone:                  sender,
		Role:                   "Parent",
		IdentificationDocument: "national_id",
		IdentificationNumber:   "12345678",
		IsActive:               true,
	}
}

func (s *ServiceSuite) expectText(body string) *gomock.Call {
	return s.messenger.EXPECT().SendText(gomock.Any(), sender, body, false).
		Return(&messaging.Result{Success: true}, nil)
}

func (s *ServiceSuite) expectLookup(user *directory.User, found bool, err error) {
	s.directory.EXPECT().GetUserByPhone(gomock.Any(), sender).Return(user, found, err)
}

// =============================================================================
// Verification
// =============================================================================

func (s *ServiceSuite) TestVerify() {
	tests := []struct {
		name    string
		mode    string
		token   string
		wantErr bool
	}{
		{"matching token", "subscribe", "verify-me", false},
		{"wrong token", "subscribe", "nope", true},
		{"wrong mode", "unsubscribe", "verify-me", true},
		{"empty token", "subscribe", "", true},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			challenge, err := s.service.Verify(tt.mode, tt.token, "1158201444")
			if tt.wantErr {
				s.ErrorIs(err, ErrVerificationFailed)
				s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
				s.Empty(challenge)
				return
			}
			s.Require().NoError(err)
			s.Equal("1158201444", challenge)
		})
	}

	s.Run("unset verify token rejects everything", func() {
		svc := New(s.directory, s.messenger, s.wizard, catalog.Default(), Config{})
		_, err := svc.Verify("subscribe", "", "x")
		s.ErrorIs(err, ErrVerificationFailed)
	})
}

// =============================================================================
// Delivery routing
// =============================================================================

func (s *ServiceSuite) TestDeliveryWithoutMessage() {
	s.NoError(s.service.HandleDelivery(s.ctx, Event{}))
	s.NoError(s.service.HandleDelivery(s.ctx, Event{Entry: []Entry{{}}}))
	s.NoError(s.service.HandleDelivery(s.ctx, Event{Entry: []Entry{{Changes: []Change{{Field: "statuses"}}}}}))
}

func (s *ServiceSuite) TestUnsupportedMessageType() {
	err := s.service.HandleDelivery(s.ctx, eventWith(Message{From: sender, Type: "image"}))
	s.NoError(err)
}

func (s *ServiceSuite) TestUnsupportedInteractiveType() {
	err := s.service.HandleDelivery(s.ctx, eventWith(Message{
		From:        sender,
		Type:        MessageTypeInteractive,
		Interactive: &Interactive{Type: "button_reply"},
	}))
	s.NoError(err)
}

// =============================================================================
// Text messages
// =============================================================================

func (s *ServiceSuite) TestUnknownSenderIsInvited() {
	s.expectLookup(nil, false, nil)
	gomock.InOrder(
		s.expectText(welcomeText),
		s.messenger.EXPECT().SendFlow(gomock.Any(), sender, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, msg messaging.FlowMessage) (*messaging.Result, error) {
				s.Equal("2933855406810730", msg.FlowID)
				s.Equal(sessionFlow, msg.FlowToken)
				s.Equal(inviteBody, msg.Body)
				s.Equal(inviteCTA, msg.CTA)
				s.Equal(inviteHeader, msg.Header)
				s.Equal(inviteFooter, msg.Footer)
				s.Equal("navigate", msg.Action)
				s.Require().NotNil(msg.ActionPayload)
				s.Equal("GUARDIAN_DETAILS", msg.ActionPayload.Screen)
				s.Equal(map[string]any{"schools": catalog.Default().Schools()}, msg.ActionPayload.Data)
				return &messaging.Result{Success: true, FlowToken: msg.FlowToken}, nil
			}),
	)

	s.NoError(s.service.HandleDelivery(s.ctx, textEvent("hello")))
}

func (s *ServiceSuite) TestDefaultSessionTokens() {
	token := newSessionToken()
	s.Regexp(`^guardian-[0-9a-f-]{36}-session$`, token)
	s.NotEqual(token, newSessionToken())
}

func (s *ServiceSuite) TestKnownSenderMenu() {
	tests := []struct {
		choice string
		reply  string
	}{
		{"1", "Hi Jane! Option 1. Coming soon!"},
		{"2", activitiesText},
		{"3", "Good news, Jane! There are no new critical alerts right now."},
		{"5", "Option 5. Coming soon!"},
		{"6", AccountInfo(knownUser())},
		{" 2 ", activitiesText},
		{"help", "Sorry Jane, I don't understand that. Please select from the menu options."},
	}
	for _, tt := range tests {
		s.Run(fmt.Sprintf("choice %q", tt.choice), func() {
			s.expectLookup(knownUser(), true, nil)
			gomock.InOrder(
				s.expectText(tt.reply),
				s.expectText(MenuPrompt("Jane")),
			)
			s.NoError(s.service.HandleDelivery(s.ctx, textEvent(tt.choice)))
		})
	}
}

func (s *ServiceSuite) TestLiveJourneyLink() {
	s.expectLookup(knownUser(), true, nil)
	gomock.InOrder(
		s.expectText(journeyText),
		s.messenger.EXPECT().SendText(gomock.Any(), sender, journeyLink, true).Return(&messaging.Result{Success: true}, nil),
		s.expectText(MenuPrompt("Jane")),
	)
	s.NoError(s.service.HandleDelivery(s.ctx, textEvent("4")))
}

func (s *ServiceSuite) TestLookupFailure() {
	s.Run("upstream failure apologises and stops", func() {
		s.expectLookup(nil, false, &directory.APIError{Op: "show_by_phone", StatusCode: 500})
		s.expectText(apologyText)

		err := s.service.HandleDelivery(s.ctx, textEvent("hello"))
		s.Error(err)
		s.Equal(FailureExternalAPI, Classify(err))
	})

	s.Run("missing credentials classify as configuration", func() {
		s.expectLookup(nil, false, fmt.Errorf("directory credentials: %w", sentinel.ErrNotConfigured))
		s.expectText(apologyText)

		err := s.service.HandleDelivery(s.ctx, textEvent("hello"))
		s.Equal(FailureConfiguration, Classify(err))
	})
}

func (s *ServiceSuite) TestSendFailureStillSendsMenu() {
	s.expectLookup(knownUser(), true, nil)
	sendErr := &messaging.APIError{Op: "send_text", StatusCode: 400}
	gomock.InOrder(
		s.messenger.EXPECT().SendText(gomock.Any(), sender, activitiesText, false).Return(nil, sendErr),
		s.expectText(MenuPrompt("Jane")),
	)

	err := s.service.HandleDelivery(s.ctx, textEvent("2"))
	s.ErrorIs(err, sendErr)
}

// =============================================================================
// Flow submissions
// =============================================================================

const fullSubmission = `{
	"guardian": {
		"first_name": "Jane", "last_name": "Doe", "email": "jane@example.com",
		"phone": "+254712345678", "identification_document": "national_id",
		"identification_number": "12345678", "dob": "1990-05-01", "gender": "female"
	},
	"child": {"first_name": "Tom", "middle_name": "K", "last_name": "Doe", "dob": "2018-02-03", "gender": "male"},
	"school": "school_001",
	"flow_token": "guardian-abc-session"
}`

func (s *ServiceSuite) TestRegisteredSenderSubmissionIsIgnored() {
	s.expectLookup(knownUser(), true, nil)
	s.NoError(s.service.HandleDelivery(s.ctx, nfmEvent(fullSubmission)))
}

func (s *ServiceSuite) TestRegistration() {
	s.Run("guardian and child", func() {
		s.expectLookup(nil, false, nil)
		gomock.InOrder(
			s.directory.EXPECT().RegisterGuardian(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, in directory.GuardianInput) (*directory.Guardian, error) {
					s.Equal("Jane", in.FirstName)
					s.Equal("1990-05-01", in.DOB)
					s.Equal("12345678", in.IdentificationNumber)
					return &directory.Guardian{ID: "g-1", FirstName: "Jane", LastName: "Doe"}, nil
				}),
			s.directory.EXPECT().RegisterDependant(gomock.Any(), gomock.Any(), directory.ID("g-1")).DoAndReturn(
				func(_ context.Context, in directory.DependantInput, _ directory.ID) (*directory.Dependant, error) {
					s.Equal("Tom", in.FirstName)
					return &directory.Dependant{ID: "d-1", FirstName: "Tom", MiddleName: "K", LastName: "Doe"}, nil
				}),
			s.expectText(welcomeWithChild("Jane", "Tom K Doe")),
			s.expectText(MenuPrompt("Jane")),
		)
		s.NoError(s.service.HandleDelivery(s.ctx, nfmEvent(fullSubmission)))
	})

	s.Run("guardian without child", func() {
		s.expectLookup(nil, false, nil)
		gomock.InOrder(
			s.directory.EXPECT().RegisterGuardian(gomock.Any(), gomock.Any()).
				Return(&directory.Guardian{ID: "g-2", FirstName: "Ann"}, nil),
			s.expectText(welcomeWithoutChild("Ann")),
			s.expectText(MenuPrompt("Ann")),
		)
		s.NoError(s.service.HandleDelivery(s.ctx, nfmEvent(`{"guardian":{"first_name":"Ann"}}`)))
	})

	s.Run("guardian failure skips child", func() {
		s.expectLookup(nil, false, nil)
		apiErr := &directory.APIError{Op: "register_guardian", StatusCode: 422, Body: `{"message":"email taken"}`}
		gomock.InOrder(
			s.directory.EXPECT().RegisterGuardian(gomock.Any(), gomock.Any()).Return(nil, apiErr),
			s.expectText(guardianFailedText),
			s.expectText(MenuPrompt("")),
		)

		err := s.service.HandleDelivery(s.ctx, nfmEvent(fullSubmission))
		s.ErrorIs(err, apiErr)
		s.Equal(FailureExternalAPI, Classify(err))
	})

	s.Run("child failure keeps guardian", func() {
		s.expectLookup(nil, false, nil)
		gomock.InOrder(
			s.directory.EXPECT().RegisterGuardian(gomock.Any(), gomock.Any()).
				Return(&directory.Guardian{ID: "g-3", FirstName: "Jane"}, nil),
			s.directory.EXPECT().RegisterDependant(gomock.Any(), gomock.Any(), directory.ID("g-3")).
				Return(nil, errors.New("timeout")),
			s.expectText(childFailedText),
			s.expectText(MenuPrompt("Jane")),
		)
		s.Error(s.service.HandleDelivery(s.ctx, nfmEvent(fullSubmission)))
	})

	s.Run("submission without guardian only prompts", func() {
		s.expectLookup(nil, false, nil)
		s.expectText(MenuPrompt(""))
		s.NoError(s.service.HandleDelivery(s.ctx, nfmEvent(`{"flow_token":"x"}`)))
	})

	s.Run("malformed response json", func() {
		s.expectLookup(nil, false, nil)
		gomock.InOrder(
			s.expectText(guardianFailedText),
			s.expectText(MenuPrompt("")),
		)

		err := s.service.HandleDelivery(s.ctx, nfmEvent(`{not json`))
		s.ErrorIs(err, ErrMalformedEvent)
		s.Equal(FailureMalformedEvent, Classify(err))
	})

	s.Run("numeric form fields are registered as text", func() {
		s.expectLookup(nil, false, nil)
		gomock.InOrder(
			s.directory.EXPECT().RegisterGuardian(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, in directory.GuardianInput) (*directory.Guardian, error) {
					s.Equal("12345678", in.IdentificationNumber)
					s.Equal("254712345678", in.Phone)
					return &directory.Guardian{ID: "g-5", FirstName: "Jane"}, nil
				}),
			s.expectText(welcomeWithoutChild("Jane")),
			s.expectText(MenuPrompt("Jane")),
		)
		s.NoError(s.service.HandleDelivery(s.ctx, nfmEvent(
			`{"guardian":{"first_name":"Jane","phone":254712345678,"identification_number":12345678}}`)))
	})

	s.Run("guardian without id does not register child", func() {
		s.expectLookup(nil, false, nil)
		gomock.InOrder(
			s.directory.EXPECT().RegisterGuardian(gomock.Any(), gomock.Any()).
				Return(&directory.Guardian{FirstName: "Jane"}, nil),
			s.expectText(childFailedText),
			s.expectText(MenuPrompt("Jane")),
		)

		err := s.service.HandleDelivery(s.ctx, nfmEvent(fullSubmission))
		s.ErrorIs(err, errNoGuardianID)
		s.Equal(FailureExternalAPI, Classify(err))
	})

	s.Run("lookup failure does not register", func() {
		s.expectLookup(nil, false, errors.New("dial tcp: refused"))
		s.expectText(apologyText)
		s.Error(s.service.HandleDelivery(s.ctx, nfmEvent(fullSubmission)))
	})
}

// =============================================================================
// Flow data exchange
// =============================================================================

func (s *ServiceSuite) TestExchangeFlow() {
	env := flowcrypto.Envelope{EncryptedAESKey: "k", EncryptedFlowData: "d", InitialVector: "iv"}
	material := &flowcrypto.Material{Key: make([]byte, 32), IV: make([]byte, 16)}

	s.Run("decrypts, handles and encrypts", func() {
		resp := wizard.Response{Version: "3.0", Data: map[string]any{"status": "active"}}
		gomock.InOrder(
			s.channel.EXPECT().DecryptRequest(env, gomock.Any()).DoAndReturn(
				func(_ flowcrypto.Envelope, dst any) (*flowcrypto.Material, error) {
					req := dst.(*wizard.Request)
					req.Action = wizard.ActionPing
					return material, nil
				}),
			s.wizard.EXPECT().Handle(gomock.Any(), wizard.Request{Action: wizard.ActionPing}).Return(resp),
			s.channel.EXPECT().EncryptResponse(resp, material).Return("c2VhbGVk", nil),
		)

		out, err := s.service.ExchangeFlow(s.ctx, env)
		s.Require().NoError(err)
		s.Equal("c2VhbGVk", out)
	})

	s.Run("decrypt failure never reaches the wizard", func() {
		s.channel.EXPECT().DecryptRequest(env, gomock.Any()).Return(nil, flowcrypto.ErrCrypto)

		_, err := s.service.ExchangeFlow(s.ctx, env)
		s.ErrorIs(err, flowcrypto.ErrCrypto)
		s.True(dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	s.Run("no channel configured", func() {
		svc := New(s.directory, s.messenger, s.wizard, catalog.Default(), Config{})
		_, err := svc.ExchangeFlow(s.ctx, env)
		s.ErrorIs(err, sentinel.ErrNotConfigured)
		s.True(dErrors.HasCode(err, dErrors.CodeNotConfigured))
	})
}

func (s *ServiceSuite) TestExchangeFlowWithRealChannel() {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	svc := New(s.directory, s.messenger, wizard.New(catalog.Default()), catalog.Default(), Config{},
		WithChannel(flowcrypto.New(key)))

	aesKey := make([]byte, flowcrypto.KeySize)
	iv := make([]byte, flowcrypto.IVSize)
	_, _ = rand.Read(aesKey)
	_, _ = rand.Read(iv)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &key.PublicKey, aesKey, nil)
	s.Require().NoError(err)
	sealed, err := flowcrypto.Seal(aesKey, iv, []byte(`{"version":"3.0","action":"ping"}`))
	s.Require().NoError(err)

	out, err := svc.ExchangeFlow(s.ctx, flowcrypto.Envelope{
		EncryptedAESKey:   base64.StdEncoding.EncodeToString(wrapped),
		EncryptedFlowData: base64.StdEncoding.EncodeToString(sealed),
		InitialVector:     base64.StdEncoding.EncodeToString(iv),
	})
	s.Require().NoError(err)

	raw, err := base64.StdEncoding.DecodeString(out)
	s.Require().NoError(err)
	plain, err := flowcrypto.Open(aesKey, flowcrypto.FlipIV(iv), raw)
	s.Require().NoError(err)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(plain, &resp))
	s.Equal(map[string]any{"version": "3.0", "data": map[string]any{"status": "active"}}, resp)
}

// =============================================================================
// Rendering
// =============================================================================

func (s *ServiceSuite) TestMenuPrompt() {
	s.Equal("Is there anything else I can help you with, Jane?\n\n"+
		"1. Quick Status Update\n2. Last 3 Activities\n3. Critical Alerts\n"+
		"4. Live Journey Link\n5. Authorize a Pickup\n6. Manage My Account\n", MenuPrompt("Jane"))
	s.Equal("Is there anything else I can help you with?\n\n"+menuOptions, MenuPrompt(""))
}

func (s *ServiceSuite) TestAccountInfo() {
	s.Equal("📋 *Account Information*\n\n"+
		"Name: Jane Doe\n"+
		"Email: jane@example.com\n"+
		"Phone: 254700000001\n"+
		"Role: Parent\n"+
		"ID: national_id - 12345678\n"+
		"Account Status: Active ✅", AccountInfo(knownUser()))

	inactive := knownUser()
	inactive.IsActive = false
	s.Contains(AccountInfo(inactive), "Account Status: Inactive ❌")
}
