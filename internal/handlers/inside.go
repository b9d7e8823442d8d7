package handlers

import (
	"fmt"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/mathexpr"
	"github.com/Blastus/confabulator/internal/session"
)

// InsideMenu is the main menu for logged-in users. Popping it logs the
// account out.
type InsideMenu struct {
	*session.Base
	ctx *core.Context
}

func NewInsideMenu(ctx *core.Context, client *core.Client) *InsideMenu {
	m := &InsideMenu{Base: session.NewBase(client), ctx: ctx}
	m.Register("admin", "Access the administration console (if you are an administrator).", m.doAdmin)
	m.Register("channel", "Allows you create and connect to message channels.", m.doChannel)
	m.Register("contacts", "Opens up your contacts list and allows you to edit it.", m.doContacts)
	m.Register("eval", "Proof of concept: this is a math expression evaluator.", m.doEval)
	m.Register("messages", "Opens up your account's inbox to read and send messages.", m.doMessages)
	m.Register("options", "You can change some your settings with this command.", m.doOptions)
	return m
}

func (m *InsideMenu) Handle() (session.Handler, error) {
	if err := m.printStatus(); err != nil {
		return nil, err
	}
	next, err := m.CommandLoop("")
	if err != nil {
		return nil, err
	}
	if next == nil {
		// Logging out: unbind the account so it can log in again.
		if account := m.Client.Account; account != nil {
			account.ReleaseClient(m.Client.ID)
		}
		m.Client.Account = nil
		m.Client.Name = ""
	}
	return next, nil
}

func (m *InsideMenu) printStatus() error {
	account := m.Client.Account
	if account.IsAdministrator() {
		if err := m.Client.Print("Welcome, administrator!"); err != nil {
			return err
		}
	}
	unread := account.NewMessageCount()
	if err := m.Client.Print(fmt.Sprintf(
		"You have %d new message%s.", unread, pluralS(unread))); err != nil {
		return err
	}
	contacts := account.Contacts()
	online := 0
	for _, name := range contacts {
		if m.ctx.Accounts.IsOnline(name) {
			online++
		}
	}
	verb := "are"
	if online == 1 {
		verb = "is"
	}
	return m.Client.Print(fmt.Sprintf("%d of your %d friend%s %s online.",
		online, len(contacts), pluralS(len(contacts)), verb))
}

func (m *InsideMenu) doAdmin([]string) (session.Handler, error) {
	account := m.Client.Account
	if account.IsAdministrator() {
		return NewAdminConsole(m.ctx, m.Client), nil
	}
	if account.Forgiven() >= m.ctx.MercyLimit() {
		m.ctx.Bans.Add(m.Client.Addr)
		m.ctx.DeleteAccount(m.Client.Name)
		for _, line := range []string{
			"You have been warned for the last time!",
			"Now your IP address has been blocked &",
			"your account has been completely removed.",
		} {
			if err := m.Client.Print(line); err != nil {
				return nil, err
			}
		}
		return nil, m.Client.Close(false)
	}
	account.Forgive()
	if err := m.Client.Print("You are not authorized to be here."); err != nil {
		return nil, err
	}
	return nil, session.ErrExit
}

func (m *InsideMenu) doChannel(args []string) (session.Handler, error) {
	name, err := argOrInput(m.Client, args, 0, "Channel to open?")
	if err != nil {
		return nil, err
	}
	if len(args) > 1 || len(strings.Fields(name)) > 1 {
		return nil, m.Client.Print("Channel name may not have whitespace!")
	}
	if name == "" {
		return nil, m.Client.Print("Channel name may not be empty.")
	}
	room, _ := m.ctx.Channels.Open(name, m.Client.Name)
	if err := m.Client.Print("Opening the", name, "channel ..."); err != nil {
		return nil, err
	}
	room.Connect(m.Client.ID, m.Client)
	return NewChannelSession(m.ctx, m.Client, room), nil
}

func (m *InsideMenu) doContacts([]string) (session.Handler, error) {
	return NewContactManager(m.ctx, m.Client), nil
}

func (m *InsideMenu) doEval(args []string) (session.Handler, error) {
	version, err := argOrInput(m.Client, args, 0, "Version?")
	if err != nil {
		return nil, err
	}
	switch version {
	case "old":
		return mathexpr.NewEvaluatorV1(m.Client), nil
	case "new":
		return mathexpr.NewEvaluatorV2(m.Client), nil
	}
	return nil, m.Client.Print("Try old or new.")
}

func (m *InsideMenu) doMessages([]string) (session.Handler, error) {
	return NewMessageManager(m.ctx, m.Client), nil
}

func (m *InsideMenu) doOptions([]string) (session.Handler, error) {
	return NewAccountOptions(m.ctx, m.Client), nil
}

func pluralS(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
