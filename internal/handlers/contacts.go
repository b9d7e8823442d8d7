package handlers

import (
	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

// ContactManager edits the logged-in account's contact list.
type ContactManager struct {
	*session.Base
	ctx *core.Context
}

func NewContactManager(ctx *core.Context, client *core.Client) *ContactManager {
	m := &ContactManager{Base: session.NewBase(client), ctx: ctx}
	m.Register("add", "Add a friend to your contact list.", m.doAdd)
	m.Register("remove", "Remove someone from your contact list.", m.doRemove)
	m.Register("show", "Display your friend list with online/offline status.", m.doShow)
	return m
}

func (m *ContactManager) Handle() (session.Handler, error) {
	if err := m.Client.Print("Opening contact manager ..."); err != nil {
		return nil, err
	}
	return m.CommandLoop("")
}

func (m *ContactManager) doAdd(args []string) (session.Handler, error) {
	name, err := argOrInput(m.Client, args, 0, "Who?")
	if err != nil {
		return nil, err
	}
	account := m.Client.Account
	if account.HasContact(name) {
		return nil, m.Client.Print(name, "is already in your contact list.")
	}
	if !m.ctx.Accounts.Exists(name) {
		return nil, m.Client.Print(name, "does not currently exist.")
	}
	if err := account.AddContact(name); err != nil {
		return nil, m.Client.Print(name, "is already in your contact list.")
	}
	return nil, m.Client.Print(name, "has been added to your contact list.")
}

func (m *ContactManager) doRemove(args []string) (session.Handler, error) {
	name, err := argOrInput(m.Client, args, 0, "Who?")
	if err != nil {
		return nil, err
	}
	if m.Client.Account.RemoveContact(name) {
		return nil, m.Client.Print(name, "has been removed from your contact list.")
	}
	return nil, m.Client.Print(name, "is not in your contact list.")
}

func (m *ContactManager) doShow([]string) (session.Handler, error) {
	_, err := m.Client.Account.ShowContacts(m.Client, true, m.ctx.Accounts.IsOnline)
	return nil, err
}
