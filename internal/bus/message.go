package bus

import "encoding/json"

// Frame is one text frame published by a client. The bus relays the bytes
// untouched; it never interprets the payload.
type Frame struct {
	Data []byte

	// sender is the publishing client. It never receives its own frame.
	sender *Client
}

// frameType peeks at the "type" field for logging only.
func frameType(data []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Type == "" {
		return "unknown"
	}
	return probe.Type
}
