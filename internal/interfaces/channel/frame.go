package channel

import (
	"encoding/json"
	"time"

	sonic "github.com/bytedance/sonic"
)

const (
	FrameAck      = "ack"
	FrameError    = "error"
	FrameBoard    = "board"
	FrameCommand  = "command"
	FrameHello    = "hello"
	FrameDismiss  = "dismiss"
	FrameNavigate = "navigate"
)

// ClientFrame is what producers and viewers send. Payload is decoded by the
// handler that owns Type.
type ClientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ServerFrame struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

type helloPayload struct {
	ConnectionID  string `json:"connectionId"`
	OriginChannel string `json:"originChannel,omitempty"`
	Role          string `json:"role"`
}

type viewerMatchPayload struct {
	MatchID string `json:"matchId"`
	Href    string `json:"href,omitempty"`
}

func encodeFrame(frame ServerFrame) ([]byte, error) {
	if frame.At.IsZero() {
		frame.At = time.Now().UTC()
	}
	return sonic.Marshal(frame)
}

func decodeFrame(raw []byte) (ClientFrame, error) {
	var frame ClientFrame
	err := sonic.Unmarshal(raw, &frame)
	return frame, err
}
