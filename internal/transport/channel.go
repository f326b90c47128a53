package transport

import (
	pion "github.com/pion/webrtc/v4"
)

// Channel adapts a pion data channel to handshake.Channel.
type Channel struct {
	dc *pion.DataChannel
}

func (c *Channel) Label() string {
	return c.dc.Label()
}

// Send writes a binary frame.
func (c *Channel) Send(data []byte) error {
	if c.dc.ReadyState() != pion.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	if err := c.dc.Send(data); err != nil {
		return NewError("send", err)
	}
	return nil
}

// SendText writes a text frame, which browser peers receive as a string.
func (c *Channel) SendText(text string) error {
	if c.dc.ReadyState() != pion.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	if err := c.dc.SendText(text); err != nil {
		return NewError("send text", err)
	}
	return nil
}

func (c *Channel) Close() error {
	return c.dc.Close()
}
