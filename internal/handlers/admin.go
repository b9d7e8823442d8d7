package handlers

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

// Graduated shutdown levels: each one disconnects strictly more people than
// the one before it.
const (
	shutdownServer = iota // stop accepting, drop sleepers
	shutdownUsers         // also drop non-administrator accounts
	shutdownAdmin         // also drop other administrators
	shutdownAll           // also drop the caller
)

var shutdownLevels = map[string]int{
	"server": shutdownServer,
	"users":  shutdownUsers,
	"admin":  shutdownAdmin,
	"all":    shutdownAll,
}

// AdminConsole is the server-wide administration menu.
type AdminConsole struct {
	*session.Base
	ctx *core.Context
}

func NewAdminConsole(ctx *core.Context, client *core.Client) *AdminConsole {
	c := &AdminConsole{Base: session.NewBase(client), ctx: ctx}
	c.Register("account", "Access all account related controls.", c.doAccount)
	c.Register("ban", "Access all IP ban filter controls.", c.doBan)
	c.Register("channels", "View a list of all current channels.", c.doChannels)
	c.Register("shutdown", "Arrange for the server to shutdown and save its data.", c.doShutdown)
	return c
}

func (c *AdminConsole) Handle() (session.Handler, error) {
	if err := c.Client.Print("Opening admin console ..."); err != nil {
		return nil, err
	}
	return c.CommandLoop("")
}

// CompleteShutdown drives the shutdown command from the operator console.
// Used for SIGINT, where there is no socket behind the client.
func CompleteShutdown(ctx *core.Context, server core.ServerControl) {
	slog.Info("complete shutdown in progress")
	client := core.NewConsoleClient("KeyboardInterrupt", server)
	console := NewAdminConsole(ctx, client)
	_, _ = console.doShutdown([]string{"all"})
}

func (c *AdminConsole) doAccount(args []string) (session.Handler, error) {
	if len(args) == 0 {
		return nil, c.Client.Print("Try view, remove, or edit.")
	}
	switch args[0] {
	case "view":
		return nil, c.accountView(c.ctx.Accounts.Names())
	case "remove":
		return nil, c.accountRemove(args[1:])
	case "edit":
		return c.accountEdit(args[1:])
	}
	return nil, c.Client.Print("Try view, remove, or edit.")
}

func (c *AdminConsole) accountView(names []string) error {
	for i, name := range names {
		if err := c.Client.Print(fmt.Sprintf("(%d) %s", i+1, name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *AdminConsole) accountRemove(args []string) error {
	var name string
	if len(args) > 0 {
		name = args[0]
		if name == c.Client.Name {
			return c.Client.Print("You cannot remove yourself.")
		}
	} else {
		var err error
		name, err = c.getAccountName()
		if err != nil || name == "" {
			return err
		}
	}
	removed, err := c.disconnectAndRemove(name)
	if err != nil || !removed {
		return err
	}
	return c.Client.Print("Account has been removed.")
}

func (c *AdminConsole) accountEdit(args []string) (session.Handler, error) {
	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		var err error
		name, err = c.getAccountName()
		if err != nil || name == "" {
			return nil, err
		}
	}
	if name == c.Client.Name {
		return nil, c.Client.Print("You may not edit yourself.")
	}
	account, ok := c.ctx.Accounts.Get(name)
	if !ok {
		return nil, c.Client.Print("Unable to access account.")
	}
	return NewAccountEditor(c.Client, name, account), nil
}

// getAccountName lists every other account and reads a selection. An empty
// name with a nil error means nothing was chosen.
func (c *AdminConsole) getAccountName() (string, error) {
	var names []string
	for _, name := range c.ctx.Accounts.Names() {
		if name != c.Client.Name {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", c.Client.Print("There are no other accounts.")
	}
	if err := c.accountView(names); err != nil {
		return "", err
	}
	line, err := c.Client.Input("Account number?")
	if err != nil {
		return "", err
	}
	index, err := strconv.Atoi(line)
	if err != nil || index < 1 || index > len(names) {
		return "", c.Client.Print("You must enter a valid number.")
	}
	return names[index-1], nil
}

func (c *AdminConsole) disconnectAndRemove(name string) (bool, error) {
	account, ok := c.ctx.Accounts.Get(name)
	if !ok {
		return false, c.Client.Print("Account does not exist.")
	}
	c.ctx.Accounts.Disconnect(account)
	c.ctx.DeleteAccount(name)
	return true, nil
}

func (c *AdminConsole) doBan(args []string) (session.Handler, error) {
	if len(args) == 0 {
		return nil, c.Client.Print("Try view, add, or remove.")
	}
	switch args[0] {
	case "view":
		return nil, c.banView(c.ctx.Bans.Snapshot())
	case "add":
		return nil, c.banAdd(args[1:])
	case "remove":
		return nil, c.banRemove(args[1:])
	}
	return nil, c.Client.Print("Try view, add, or remove.")
}

func (c *AdminConsole) banView(addresses []string) error {
	if len(addresses) == 0 {
		return c.Client.Print("No one is in the ban list.")
	}
	for i, address := range addresses {
		if err := c.Client.Print(fmt.Sprintf("(%d) %s", i+1, address)); err != nil {
			return err
		}
	}
	return nil
}

func (c *AdminConsole) banAdd(args []string) error {
	address, err := argOrInput(c.Client, args, 0, "Address:")
	if err != nil {
		return err
	}
	if address == "" {
		return c.Client.Print("Empty address may not be added.")
	}
	if c.ctx.Bans.Add(address) {
		return c.Client.Print("Address has been successfully added.")
	}
	return c.Client.Print("Address in already in ban list.")
}

func (c *AdminConsole) banRemove(args []string) error {
	if len(args) > 0 {
		if !c.ctx.Bans.Remove(args[0]) {
			return c.Client.Print("Address not found.")
		}
		return c.Client.Print("Address has been removed.")
	}
	addresses := c.ctx.Bans.Snapshot()
	if err := c.banView(addresses); err != nil {
		return err
	}
	if len(addresses) == 0 {
		return nil
	}
	line, err := c.Client.Input("Item number?")
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(line)
	if err != nil || index < 1 || index > len(addresses) {
		return c.Client.Print("You must enter a valid number.")
	}
	c.ctx.Bans.Remove(addresses[index-1])
	return c.Client.Print("Address has been removed.")
}

func (c *AdminConsole) doChannels([]string) (session.Handler, error) {
	names := c.ctx.Channels.Names()
	if len(names) == 0 {
		return nil, c.Client.Print("There are no channels at this time.")
	}
	plural := "s "
	if len(names) == 1 {
		plural = " "
	}
	if err := c.Client.Print(fmt.Sprintf("Channel%scurrently in existence:", plural)); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := c.Client.Print("   ", name); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (c *AdminConsole) doShutdown(args []string) (session.Handler, error) {
	if len(args) == 0 {
		return nil, c.Client.Print("Try server, users, admin, or all.")
	}
	level, ok := shutdownLevels[args[0]]
	if !ok {
		return nil, c.Client.Print("Try server, users, admin, or all.")
	}
	message := c.Client.Name + " is shutting down your connection."
	if err := c.shutdownServer(message); err != nil {
		return nil, err
	}
	if level > shutdownServer {
		return nil, c.disconnectAccounts(message, level)
	}
	return nil, nil
}

// shutdownServer stops the accept loop and drops connections that never
// logged in.
func (c *AdminConsole) shutdownServer(message string) error {
	clients, wasRunning := c.Client.Server.StopAccepting()
	if !wasRunning {
		return c.Client.Print("Server was already closed.")
	}
	if err := c.Client.Print("Server has been shutdown."); err != nil {
		return err
	}
	count := 0
	for _, sleeper := range clients {
		if sleeper.Name != "" {
			continue
		}
		_ = sleeper.Print(message)
		_ = sleeper.Close(true)
		count++
	}
	suffix := "s were"
	if count == 1 {
		suffix = " was"
	}
	return c.Client.Print(fmt.Sprintf("%d sleeper%s disconnected.", count, suffix))
}

func (c *AdminConsole) disconnectAccounts(message string, level int) error {
	for _, account := range c.ctx.Accounts.All() {
		if account == c.Client.Account {
			continue
		}
		if level > shutdownUsers || !account.IsAdministrator() {
			c.ctx.Accounts.Notify(account, message)
			c.ctx.Accounts.Disconnect(account)
		}
	}
	if err := c.Client.Print("Shutdown process has been completed."); err != nil {
		return err
	}
	if level == shutdownAll {
		return c.Client.Close(false)
	}
	return nil
}

// AccountEditor lets an administrator inspect and adjust one other account.
type AccountEditor struct {
	*session.Base
	name    string
	account *core.Account
}

func NewAccountEditor(client *core.Client, name string, account *core.Account) *AccountEditor {
	e := &AccountEditor{Base: session.NewBase(client), name: name, account: account}
	e.Register("edit", "Change various attributes of the account.", e.doEdit)
	e.Register("info", "Show information about the current account.", e.doInfo)
	e.Register("password", "Show the password on the account.", e.doPassword)
	e.Register("read", "Show account's contact list or read message summaries.", e.doRead)
	return e
}

func (e *AccountEditor) Handle() (session.Handler, error) {
	if err := e.Client.Print("Opening account editor ..."); err != nil {
		return nil, err
	}
	return e.CommandLoop("")
}

func (e *AccountEditor) doEdit(args []string) (session.Handler, error) {
	attr, err := argOrInput(e.Client, args, 0, "What?")
	if err != nil {
		return nil, err
	}
	switch attr {
	case "admin":
		filler := "not "
		if e.account.ToggleAdministrator() {
			filler = ""
		}
		return nil, e.Client.Print(fmt.Sprintf(
			"%s is %san administrator now.", e.name, filler))
	case "password":
		word, err := argOrInput(e.Client, args, 1, "Password:")
		if err != nil {
			return nil, err
		}
		e.account.SetPassword(word)
		return nil, e.Client.Print("Password has been changed to", strconv.Quote(word))
	case "forgiven":
		reset := len(args) > 1 && args[1] == "reset"
		if !reset {
			answer, err := e.Client.Input("Reset?")
			if err != nil {
				return nil, err
			}
			reset = session.YesWords[answer]
		}
		if reset {
			e.account.ResetForgiven()
			return nil, e.Client.Print("Forgiven count has been set to zero.")
		}
		return nil, nil
	}
	return nil, e.Client.Print("Try admin, password, or forgiven.")
}

func (e *AccountEditor) doInfo([]string) (session.Handler, error) {
	lines := []string{
		fmt.Sprintf("About account %q:", e.name),
		fmt.Sprintf("Admin    = %v", e.account.IsAdministrator()),
		fmt.Sprintf("Online   = %v", e.account.IsOnline()),
		fmt.Sprintf("Friends  = %d", len(e.account.Contacts())),
		fmt.Sprintf("Messages = %d", len(e.account.Messages())),
		fmt.Sprintf("Forgiven = %d", e.account.Forgiven()),
	}
	for _, line := range lines {
		if err := e.Client.Print(line); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (e *AccountEditor) doPassword([]string) (session.Handler, error) {
	if err := e.Client.Print("Username:", strconv.Quote(e.name)); err != nil {
		return nil, err
	}
	return nil, e.Client.Print("Password:", strconv.Quote(e.account.Password()))
}

func (e *AccountEditor) doRead(args []string) (session.Handler, error) {
	attr, err := argOrInput(e.Client, args, 0, "Contacts or messages?")
	if err != nil {
		return nil, err
	}
	switch attr {
	case "contacts":
		if err := e.Client.Print(e.name + "'s contact list:"); err != nil {
			return nil, err
		}
		_, err := e.account.ShowContacts(e.Client, false, nil)
		return nil, err
	case "messages":
		if err := e.Client.Print("First 70 bytes of each message:"); err != nil {
			return nil, err
		}
		_, err := e.account.ShowMessageSummary(e.Client, false, 70, "", "")
		return nil, err
	}
	return nil, e.Client.Print("Try contacts or messages.")
}
