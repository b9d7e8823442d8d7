package handlers

import (
	"strconv"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

const (
	summaryLength = 70
	messageRuler  = "======================================================================"
)

// MessageManager is the inbox: reading, sending, and deleting messages.
type MessageManager struct {
	*session.Base
	ctx *core.Context
}

func NewMessageManager(ctx *core.Context, client *core.Client) *MessageManager {
	m := &MessageManager{Base: session.NewBase(client), ctx: ctx}
	m.Register("delete", "Provides various options for deleting your messages.", m.doDelete)
	m.Register("read", "Allows you to read a message in its entirety.", m.doRead)
	m.Register("send", "Allows you to send a message to someone else.", m.doSend)
	m.Register("show", "Shows messages summaries with status information.", m.doShow)
	return m
}

func (m *MessageManager) Handle() (session.Handler, error) {
	if err := m.Client.Print("Opening message manager ..."); err != nil {
		return nil, err
	}
	return m.CommandLoop("")
}

func (m *MessageManager) doDelete(args []string) (session.Handler, error) {
	messages, err := m.parseArgs(args, true)
	if err != nil || messages == nil {
		return nil, err
	}
	m.Client.Account.DeleteMessages(messages)
	return nil, m.Client.Print("Deletion has been completed.")
}

func (m *MessageManager) doRead(args []string) (session.Handler, error) {
	messages, err := m.parseArgs(args, false)
	if err != nil || len(messages) == 0 {
		return nil, err
	}
	message := messages[0]
	message.New = false
	if err := m.Client.Print("From:", message.Source); err != nil {
		return nil, err
	}
	if err := m.Client.Print(messageRuler); err != nil {
		return nil, err
	}
	paragraphs := strings.Split(message.Text, "\n\n")
	for i, paragraph := range paragraphs {
		flat := strings.ReplaceAll(paragraph, "\n", " ")
		for _, line := range wrapText(flat, summaryLength) {
			if err := m.Client.Print(line); err != nil {
				return nil, err
			}
		}
		if i+1 < len(paragraphs) {
			if err := m.Client.Print(); err != nil {
				return nil, err
			}
		}
	}
	return nil, m.Client.Print(messageRuler)
}

func (m *MessageManager) doSend(args []string) (session.Handler, error) {
	name, err := argOrInput(m.Client, args, 0, "Destination:")
	if err != nil {
		return nil, err
	}
	if name == m.Client.Name {
		return nil, m.Client.Print("You are not allowed to talk to yourself.")
	}
	if !m.ctx.Accounts.Exists(name) {
		return nil, m.Client.Print("Account does not exist.")
	}
	text, err := m.getMessage()
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, m.Client.Print("Empty messages may not be sent.")
	}
	if m.ctx.Accounts.DeliverMessage(m.Client.Name, name, text) {
		return nil, m.Client.Print("Message has been delivered.")
	}
	return nil, m.Client.Print(name, "was removed while you were writing.")
}

func (m *MessageManager) doShow([]string) (session.Handler, error) {
	_, err := m.Client.Account.ShowMessageSummary(
		m.Client, true, summaryLength, "", "")
	return nil, err
}

// getMessage reads a composed message, terminated by two blank lines.
func (m *MessageManager) getMessage() (string, error) {
	for _, line := range []string{
		"Please compose your message.",
		"Enter 2 blank lines to send.",
		messageRuler,
	} {
		if err := m.Client.Print(line); err != nil {
			return "", err
		}
	}
	var lines []string
	for {
		line, err := m.Client.Input()
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		if n := len(lines); n >= 2 && lines[n-1] == "" && lines[n-2] == "" {
			break
		}
	}
	if err := m.Client.Print(messageRuler); err != nil {
		return "", err
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) < 2 {
		return "", nil
	}
	return strings.Join(lines[:len(lines)-2], "\n"), nil
}

// parseArgs resolves a message selection from arguments or interactively.
// A nil slice with a nil error means the selection was cancelled.
func (m *MessageManager) parseArgs(args []string, allowAll bool) ([]*core.Message, error) {
	if len(args) > 0 {
		return m.findMessage(args, allowAll)
	}
	messages, err := m.Client.Account.ShowMessageSummary(
		m.Client, true, summaryLength, "", "")
	if err != nil {
		return nil, err
	}
	return m.pickMessage(messages, allowAll)
}

// findMessage interprets the clue as an index, a read/unread filter, or a
// sender name.
func (m *MessageManager) findMessage(args []string, allowAll bool) ([]*core.Message, error) {
	clue := args[0]
	index, err := strconv.Atoi(clue)
	if err != nil {
		var messages []*core.Message
		if clue == "read" || clue == "unread" {
			messages, err = m.Client.Account.ShowMessageSummary(
				m.Client, true, summaryLength, clue, "")
		} else {
			messages, err = m.Client.Account.ShowMessageSummary(
				m.Client, true, summaryLength, "", clue)
		}
		if err != nil {
			return nil, err
		}
		return m.pickMessage(messages, allowAll)
	}
	messages := m.Client.Account.Messages()
	if index >= 1 && index <= len(messages) {
		return messages[index-1 : index], nil
	}
	return nil, m.Client.Print("That is not a valid message number.")
}

func (m *MessageManager) pickMessage(messages []*core.Message, allowAll bool) ([]*core.Message, error) {
	for len(messages) > 0 {
		line, err := m.Client.Input("Which one?")
		if err != nil {
			return nil, err
		}
		if line == "" {
			return nil, m.Client.Print("Cancelling ...")
		}
		if allowAll && line == "all" {
			return messages, nil
		}
		index, err := strconv.Atoi(line)
		if err != nil || index < 1 || index > len(messages) {
			if err := m.Client.Print("Please enter a valid message number."); err != nil {
				return nil, err
			}
			continue
		}
		return messages[index-1 : index], nil
	}
	return nil, nil
}

// wrapText greedily wraps words to the given width.
func wrapText(text string, width int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
