package signaling

import (
	"encoding/json"
	"fmt"
)

// Type identifies a signaling bus message.
type Type string

// Message type constants. The names are fixed for interop with browser peers.
const (
	TypeReady       Type = "ready"
	TypeOffer       Type = "offer"
	TypeAnswer      Type = "answer"
	TypeCandidate   Type = "candidate"
	TypeAcknowledge Type = "acknowledge"
	TypeBye         Type = "bye"
)

// Known reports whether t is one of the handshake message types.
func (t Type) Known() bool {
	switch t {
	case TypeReady, TypeOffer, TypeAnswer, TypeCandidate, TypeAcknowledge, TypeBye:
		return true
	default:
		return false
	}
}

// Message is a single control message broadcast on the signaling bus.
//
// From and To are optional addressing fields. Browser peers never set them and
// ignore them when present.
type Message struct {
	Type Type   `json:"type"`
	SDP  string `json:"sdp,omitempty"`

	Candidate     *string `json:"candidate,omitempty"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`

	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Candidate is one discovered network path, as carried by a candidate message.
type Candidate struct {
	Candidate     string
	SDPMid        *string
	SDPMLineIndex *uint16
}

// NewCandidateMessage builds a candidate message. A nil candidate produces the
// end-of-candidates message with all candidate fields null.
func NewCandidateMessage(c *Candidate) *Message {
	msg := &Message{Type: TypeCandidate}
	if c == nil || c.Candidate == "" {
		return msg
	}
	value := c.Candidate
	msg.Candidate = &value
	msg.SDPMid = c.SDPMid
	msg.SDPMLineIndex = c.SDPMLineIndex
	return msg
}

// ICECandidate extracts the candidate carried by a candidate message.
// It returns nil for the end-of-candidates marker.
func (m *Message) ICECandidate() *Candidate {
	if m.Candidate == nil || *m.Candidate == "" {
		return nil
	}
	return &Candidate{
		Candidate:     *m.Candidate,
		SDPMid:        m.SDPMid,
		SDPMLineIndex: m.SDPMLineIndex,
	}
}

// MarshalJSON keeps candidate fields explicit (null) on candidate messages and
// leaves them out everywhere else.
func (m Message) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Type Type   `json:"type"`
		SDP  string `json:"sdp,omitempty"`
		From string `json:"from,omitempty"`
		To   string `json:"to,omitempty"`
	}
	base := envelope{Type: m.Type, SDP: m.SDP, From: m.From, To: m.To}
	if m.Type != TypeCandidate {
		return json.Marshal(base)
	}
	return json.Marshal(struct {
		envelope
		Candidate     *string `json:"candidate"`
		SDPMid        *string `json:"sdpMid"`
		SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	}{base, m.Candidate, m.SDPMid, m.SDPMLineIndex})
}

// Decode parses a raw bus frame.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode signaling message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("decode signaling message: missing type")
	}
	return &msg, nil
}

func (m *Message) String() string {
	if m.From != "" {
		return fmt.Sprintf("%s from %s", m.Type, m.From)
	}
	return string(m.Type)
}
