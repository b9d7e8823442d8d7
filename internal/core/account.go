package core

import (
	"fmt"
	"slices"
	"sync"
)

// Account holds one user's persistent state. All fields are guarded by mu;
// the client binding is a connection id resolved through a ClientTable, so a
// dead connection never keeps its client reachable.
type Account struct {
	mu            sync.Mutex
	password      string
	administrator bool
	online        bool
	contacts      []string
	messages      []*Message
	forgiven      int
	connID        string
}

// NewAccount creates a fresh offline account.
func NewAccount(administrator bool) *Account {
	return &Account{administrator: administrator}
}

// RestoreAccount rebuilds a persisted account. It starts offline.
func RestoreAccount(password string, administrator bool, forgiven int, contacts []string, messages []*Message) *Account {
	return &Account{
		password:      password,
		administrator: administrator,
		forgiven:      forgiven,
		contacts:      slices.Clone(contacts),
		messages:      slices.Clone(messages),
	}
}

func (a *Account) CheckPassword(word string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.password == word
}

func (a *Account) Password() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.password
}

func (a *Account) SetPassword(word string) {
	a.mu.Lock()
	a.password = word
	a.mu.Unlock()
}

func (a *Account) IsAdministrator() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.administrator
}

// ToggleAdministrator flips the flag and returns the new value.
func (a *Account) ToggleAdministrator() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.administrator = !a.administrator
	return a.administrator
}

func (a *Account) Forgiven() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.forgiven
}

// Forgive notes one more pardoned authorization failure.
func (a *Account) Forgive() {
	a.mu.Lock()
	a.forgiven++
	a.mu.Unlock()
}

func (a *Account) ResetForgiven() {
	a.mu.Lock()
	a.forgiven = 0
	a.mu.Unlock()
}

func (a *Account) IsOnline() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.online
}

// TryLogin binds the account to a connection unless it is already online.
func (a *Account) TryLogin(connID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.online {
		return false
	}
	a.online = true
	a.connID = connID
	return true
}

// ReleaseClient clears the online state if connID still holds the binding.
// Safe to call from teardown paths that may race a fresh login.
func (a *Account) ReleaseClient(connID string) {
	a.mu.Lock()
	if a.connID == connID {
		a.online = false
		a.connID = ""
	}
	a.mu.Unlock()
}

// Broadcast prints message to the bound client, if one is connected.
func (a *Account) Broadcast(table ClientTable, message string) {
	a.mu.Lock()
	online, id := a.online, a.connID
	a.mu.Unlock()
	if !online || table == nil {
		return
	}
	if c := table.Lookup(id); c != nil {
		_ = c.Print(message)
	}
}

// ForceDisconnect closes the bound client's connection, if one is connected.
func (a *Account) ForceDisconnect(table ClientTable) {
	a.mu.Lock()
	online, id := a.online, a.connID
	a.mu.Unlock()
	if !online || table == nil {
		return
	}
	if c := table.Lookup(id); c != nil {
		_ = c.Close(true)
	}
}

func (a *Account) HasContact(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Contains(a.contacts, name)
}

// AddContact appends name to the contact list. ErrContactListed is returned
// for duplicates; existence of the named account is the caller's concern.
func (a *Account) AddContact(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.Contains(a.contacts, name) {
		return ErrContactListed
	}
	a.contacts = append(a.contacts, name)
	return nil
}

// RemoveContact reports whether name was present and removed.
func (a *Account) RemoveContact(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := slices.Index(a.contacts, name)
	if i < 0 {
		return false
	}
	a.contacts = slices.Delete(a.contacts, i, i+1)
	return true
}

func (a *Account) Contacts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.contacts)
}

func (a *Account) PurgeContacts() {
	a.mu.Lock()
	a.contacts = nil
	a.mu.Unlock()
}

func (a *Account) Messages() []*Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.messages)
}

// NewMessageCount reports how many inbox entries are still unread.
func (a *Account) NewMessageCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := 0
	for _, m := range a.messages {
		if m.New {
			count++
		}
	}
	return count
}

func (a *Account) appendMessage(m *Message) {
	a.mu.Lock()
	a.messages = append(a.messages, m)
	a.mu.Unlock()
}

// DeleteMessages removes the given inbox entries, matching by identity.
func (a *Account) DeleteMessages(messages []*Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range messages {
		if i := slices.Index(a.messages, m); i >= 0 {
			a.messages = slices.Delete(a.messages, i, i+1)
		}
	}
}

func (a *Account) PurgeMessages() {
	a.mu.Lock()
	a.messages = nil
	a.mu.Unlock()
}

// ShowContacts prints the contact list to client, optionally with each
// contact's online status, and returns the snapshot that was shown.
func (a *Account) ShowContacts(client *Client, status bool, isOnline func(string) bool) ([]string, error) {
	contacts := a.Contacts()
	if len(contacts) == 0 {
		return contacts, client.Print("Contact list is empty.")
	}
	for i, name := range contacts {
		line := fmt.Sprintf("(%d) %s", i+1, name)
		if status {
			filler := "FF"
			if isOnline != nil && isOnline(name) {
				filler = "N"
			}
			line = fmt.Sprintf("(%d) %s [O%sline]", i+1, name, filler)
		}
		if err := client.Print(line); err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

// ShowMessageSummary prints one summary line plus a truncated body per inbox
// entry and returns the (possibly filtered) snapshot. filterStatus accepts
// "read" or "unread"; filterSource keeps only messages from one sender.
func (a *Account) ShowMessageSummary(client *Client, status bool, length int, filterStatus, filterSource string) ([]*Message, error) {
	messages := a.Messages()
	if filterStatus != "" {
		kept := messages[:0:0]
		for _, m := range messages {
			if m.New == (filterStatus == "unread") {
				kept = append(kept, m)
			}
		}
		messages = kept
	}
	if filterSource != "" {
		kept := messages[:0:0]
		for _, m := range messages {
			if m.Source == filterSource {
				kept = append(kept, m)
			}
		}
		messages = kept
	}
	if len(messages) == 0 {
		return messages, client.Print("There are no messages.")
	}
	for i, m := range messages {
		filler := ""
		if status {
			if m.New {
				filler = " [Unread]"
			} else {
				filler = " [read]"
			}
		}
		if err := client.Print(fmt.Sprintf("Message %d from %s%s:", i+1, m.Source, filler)); err != nil {
			return nil, err
		}
		// Truncation counts characters, not bytes, so a multibyte rune is
		// never split.
		text := []rune(oneLine(m.Text))
		if len(text) > length {
			if err := client.Print(fmt.Sprintf("    %s...", string(text[:length]))); err != nil {
				return nil, err
			}
		} else if err := client.Print(fmt.Sprintf("    %s", string(text))); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

func oneLine(text string) string {
	out := []byte(text)
	for i, ch := range out {
		if ch == '\n' {
			out[i] = ' '
		}
	}
	return string(out)
}
