package auth

// EventType names the state transitions emitted to the caller's state
// layer over the course of a flow.
type EventType string

const (
	SignupStart     EventType = "SIGNUP_START"
	SignupSuccess   EventType = "SIGNUP_SUCCESS"
	SignupError     EventType = "SIGNUP_ERROR"
	LoginStart      EventType = "LOGIN_START"
	LoginSuccess    EventType = "LOGIN_SUCCESS"
	LoginError      EventType = "LOGIN_ERROR"
	LogoutSuccess   EventType = "LOGOUT_SUCCESS"
	LogoutError     EventType = "LOGOUT_ERROR"
	MetadataFetched EventType = "METADATA_FETCHED"
)

type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// Dispatcher receives events as a flow progresses. Dispatch must not
// block; flows treat it as a synchronous notification.
type Dispatcher interface {
	Dispatch(Event)
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(Event)

func (f DispatchFunc) Dispatch(event Event) {
	f(event)
}

// SignupCreatedPayload accompanies SIGNUP_SUCCESS.
type SignupCreatedPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	UID     string `json:"uid"`
}

// SignupErrorPayload echoes the entered form values so the caller can
// re-render the form. The password is deliberately absent.
type SignupErrorPayload struct {
	Message     string `json:"message"`
	DisplayName string `json:"completeName"`
	Email       string `json:"email"`
}

// ErrorPayload accompanies LOGIN_ERROR.
type ErrorPayload struct {
	Message string `json:"message"`
}

// State models a login attempt: IDLE → PENDING → AUTHENTICATED or
// FAILED, with METADATA_FETCHED as the terminal state used for routing.
type State string

const (
	StateIdle            State = "IDLE"
	StatePending         State = "PENDING"
	StateAuthenticated   State = "AUTHENTICATED"
	StateFailed          State = "FAILED"
	StateMetadataFetched State = "METADATA_FETCHED"
)
