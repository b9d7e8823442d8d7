package core

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Blastus/confabulator/internal/metrics"
)

// AccountRegistry maps account names to accounts. Per-account state lives
// behind each account's own lock; the registry lock only guards the map.
type AccountRegistry struct {
	mu       sync.Mutex
	accounts map[string]*Account
	clients  ClientTable
}

func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{accounts: make(map[string]*Account)}
}

// BindClients supplies the table used to resolve connection ids when
// broadcasting to or disconnecting online accounts.
func (r *AccountRegistry) BindClients(table ClientTable) {
	r.mu.Lock()
	r.clients = table
	r.mu.Unlock()
}

func (r *AccountRegistry) table() ClientTable {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients
}

func (r *AccountRegistry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.accounts[name]
	return ok
}

func (r *AccountRegistry) Get(name string) (*Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[name]
	return a, ok
}

// Create registers a new account under name. The very first account on the
// server is made an administrator. Returns false when the name is taken.
func (r *AccountRegistry) Create(name string) (*Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[name]; ok {
		return nil, false
	}
	a := NewAccount(len(r.accounts) == 0)
	r.accounts[name] = a
	return a, true
}

// Restore registers a loaded account without the first-is-admin rule.
func (r *AccountRegistry) Restore(name string, a *Account) {
	r.mu.Lock()
	r.accounts[name] = a
	r.mu.Unlock()
}

// Discard unregisters name without touching contacts or channels. Used to
// roll back a half-finished registration.
func (r *AccountRegistry) Discard(name string) {
	r.mu.Lock()
	delete(r.accounts, name)
	r.mu.Unlock()
}

// Names returns every account name in sorted order.
func (r *AccountRegistry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)
	return names
}

// All returns a name → account snapshot.
func (r *AccountRegistry) All() map[string]*Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Account, len(r.accounts))
	for name, a := range r.accounts {
		out[name] = a
	}
	return out
}

// IsAdministrator reports the admin flag for name; the second result is
// false when no such account exists.
func (r *AccountRegistry) IsAdministrator(name string) (bool, bool) {
	a, ok := r.Get(name)
	if !ok {
		return false, false
	}
	return a.IsAdministrator(), true
}

func (r *AccountRegistry) IsOnline(name string) bool {
	a, ok := r.Get(name)
	return ok && a.IsOnline()
}

// DeliverMessage stores text in name's inbox and notifies the account if it
// is online. Returns false when the account does not exist.
func (r *AccountRegistry) DeliverMessage(source, name, text string) bool {
	a, ok := r.Get(name)
	if !ok {
		return false
	}
	a.appendMessage(&Message{Source: source, Text: text, New: true})
	metrics.InboxDeliveriesTotal.Inc()
	a.Broadcast(r.table(), fmt.Sprintf("[EVENT] %s has sent you a message.", source))
	return true
}

// Notify prints message on the account's bound client, if online.
func (r *AccountRegistry) Notify(a *Account, message string) {
	a.Broadcast(r.table(), message)
}

// Disconnect closes the account's bound client, if online.
func (r *AccountRegistry) Disconnect(a *Account) {
	a.ForceDisconnect(r.table())
}

// remove deletes name and scrubs it from every other account's contacts.
func (r *AccountRegistry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[name]; !ok {
		return
	}
	delete(r.accounts, name)
	for _, other := range r.accounts {
		other.RemoveContact(name)
	}
	slog.Info("account removed", "name", name)
}
