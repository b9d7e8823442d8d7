package handlers

import (
	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

// AccountOptions is the self-service menu: password changes, purges, and
// account deletion.
type AccountOptions struct {
	*session.Base
	ctx *core.Context
}

func NewAccountOptions(ctx *core.Context, client *core.Client) *AccountOptions {
	o := &AccountOptions{Base: session.NewBase(client), ctx: ctx}
	o.Register("delete_account", "Delete your account permanently.", o.doDeleteAccount)
	o.Register("password", "Change your password.", o.doPassword)
	o.Register("purge", "Purge your messages, contacts, or both.", o.doPurge)
	return o
}

func (o *AccountOptions) Handle() (session.Handler, error) {
	if err := o.Client.Print("Opening account options ..."); err != nil {
		return nil, err
	}
	return o.CommandLoop("")
}

func (o *AccountOptions) doDeleteAccount(args []string) (session.Handler, error) {
	confirmed := len(args) > 0 && args[0] == "force"
	if !confirmed {
		answer, err := o.Client.Input("Seriously?")
		if err != nil {
			return nil, err
		}
		confirmed = session.YesWords[answer]
	}
	if !confirmed {
		return nil, o.Client.Print("Cancelling ...")
	}
	if err := o.Client.Print("Your account and connection are being closed."); err != nil {
		return nil, err
	}
	o.ctx.DeleteAccount(o.Client.Name)
	return nil, o.Client.Close(false)
}

func (o *AccountOptions) doPassword(args []string) (session.Handler, error) {
	old, err := argOrInput(o.Client, args, 0, "Old password:")
	if err != nil {
		return nil, err
	}
	account := o.Client.Account
	if !account.CheckPassword(old) {
		return nil, o.Client.Print("Old password is not correct.")
	}
	word, err := argOrInput(o.Client, args, 1, "New password:")
	if err != nil {
		return nil, err
	}
	if word == "" {
		return nil, o.Client.Print("Your password may not be empty.")
	}
	account.SetPassword(word)
	return nil, o.Client.Print("Your password has been changed.")
}

func (o *AccountOptions) doPurge(args []string) (session.Handler, error) {
	command, err := argOrInput(o.Client, args, 0, "What?")
	if err != nil {
		return nil, err
	}
	account := o.Client.Account
	switch command {
	case "messages":
		account.PurgeMessages()
		return nil, o.Client.Print("All of your messages have been deleted.")
	case "contacts":
		account.PurgeContacts()
		return nil, o.Client.Print("All of your contacts have been deleted.")
	case "both":
		account.PurgeMessages()
		account.PurgeContacts()
		return nil, o.Client.Print("Your messages and contacts have been deleted.")
	}
	return nil, o.Client.Print("Try messages, contacts, or both.")
}
