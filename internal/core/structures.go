package core

import "fmt"

// ChannelLine is one buffered line of channel conversation.
type ChannelLine struct {
	Source string
	Text   string
}

// Echo renders the line to a client as "[source] text".
func (l ChannelLine) Echo(c *Client) error {
	return c.Print(fmt.Sprintf("[%s] %s", l.Source, l.Text))
}

// Message is an inbox entry. New is flipped off the first time the owner
// reads it; only the owner's worker touches it.
type Message struct {
	Source string
	Text   string
	New    bool
}
