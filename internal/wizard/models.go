package wizard

// Version is the Flow data API version stamped on every response.
const Version = "3.0"

// Action is the kind of data-exchange request the Flow client sent.
type Action string

const (
	ActionPing         Action = "ping"
	ActionInit         Action = "INIT"
	ActionDataExchange Action = "data_exchange"
)

// Screen names one step of the registration Flow.
type Screen string

const (
	ScreenGuardianDetails Screen = "GUARDIAN_DETAILS"
	ScreenChildDetails    Screen = "CHILD_DETAILS"
	ScreenSchoolSelection Screen = "SCHOOL_SELECTION"
)

// Request is a decrypted Flow data-exchange request.
type Request struct {
	Version   string         `json:"version,omitempty"`
	Action    Action         `json:"action"`
	Screen    Screen         `json:"screen,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	FlowToken string         `json:"flow_token,omitempty"`
}

// Response is the plaintext reply, encrypted by the caller before sending.
type Response struct {
	Version string         `json:"version,omitempty"`
	Screen  Screen         `json:"screen,omitempty"`
	Data    map[string]any `json:"data"`
}

// FieldErrors maps a submitted field name to its first failing message.
type FieldErrors map[string]string

func (f FieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

const errorMessagesKey = "error_messages"

var guardianFields = []string{
	"first_name",
	"middle_name",
	"last_name",
	"email",
	"phone",
	"identification_document",
	"identification_number",
	"dob",
	"gender",
}

var childFields = []string{
	"child_first_name",
	"child_middle_name",
	"child_last_name",
	"child_dob",
	"child_gender",
}
