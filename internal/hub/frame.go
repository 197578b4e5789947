package hub

import "encoding/json"

// Frame types.
const (
	FrameInvoke     = "invoke"
	FrameCompletion = "completion"
	FrameEvent      = "event"
)

// Invocation targets accepted from clients.
const (
	MethodJoinUserGroup  = "JoinUserGroup"
	MethodLeaveUserGroup = "LeaveUserGroup"
	MethodPing           = "Ping"
)

// Event targets pushed to clients.
const (
	EventUpdate = "update"
	EventPong   = "pong"
)

// Frame is the single JSON message shape exchanged over the socket.
// Which fields are set depends on Type.
type Frame struct {
	Type         string          `json:"type"`
	InvocationID string          `json:"invocationId,omitempty"`
	Target       string          `json:"target,omitempty"`
	Error        string          `json:"error,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// EncodeEvent marshals payload into an event frame.
func EncodeEvent(target string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: FrameEvent, Target: target, Payload: raw})
}

func encodeCompletion(invocationID string, err error) []byte {
	f := Frame{Type: FrameCompletion, InvocationID: invocationID}
	if err != nil {
		f.Error = err.Error()
	}
	// Frame has no unmarshalable fields.
	b, _ := json.Marshal(f)
	return b
}
