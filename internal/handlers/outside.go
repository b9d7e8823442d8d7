package handlers

import (
	"strings"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

const banner = `/----------------------------\
|                            |
|   Welcome to Confabulator  |
|   ======================   |
|       Go Edition 1.0       |
|                            |
\----------------------------/`

const termsOfService = `/----------------------------\
|      TERMS OF SERVICE      |
|  ========================  |
|  By registering with this  |
|  service, you agree to be  |
|  bound by these principle  |
|  requirements until death  |
|  or the end of the world:  |
|                            |
|  1. This service is being  |
|  provided to you for free  |
|  and must remain free for  |
|  these terms to continue.  |
|                            |
|  2. Administrators should  |
|  be held faultless in all  |
|  they do except promoting  |
|  falsehood and deception.  |
|                            |
|  3. The account given you  |
|  will remain the property  |
|  of the issuer and may be  |
|  removed without warning.  |
|                            |
|  4. You give up all legal  |
|  rights, privacy of data,  |
|  and demands for fairness  |
|  while using this system.  |
|                            |
|  5. Your terms of service  |
|  will remain in effect if  |
|  you lose possession over  |
|  an account you received.  |
\----------------------------/`

// OutsideMenu greets anonymous connections and offers login and registration.
type OutsideMenu struct {
	*session.Base
	ctx *core.Context
}

func NewOutsideMenu(ctx *core.Context, client *core.Client) *OutsideMenu {
	m := &OutsideMenu{Base: session.NewBase(client), ctx: ctx}
	m.Register("login", "Login to the server to access account.", m.doLogin)
	m.Register("register", "Register for an account using this command.", m.doRegister)
	return m
}

func (m *OutsideMenu) Handle() (session.Handler, error) {
	if err := m.Client.Print(banner); err != nil {
		return nil, err
	}
	return m.CommandLoop("")
}

func (m *OutsideMenu) doLogin(args []string) (session.Handler, error) {
	name, err := argOrInput(m.Client, args, 0, "Username:")
	if err != nil {
		return nil, err
	}
	word, err := argOrInput(m.Client, args, 1, "Password:")
	if err != nil {
		return nil, err
	}
	account, ok := m.ctx.Accounts.Get(name)
	if !ok || !account.CheckPassword(word) {
		return nil, m.Client.Print("Authentication failed!")
	}
	if !account.TryLogin(m.Client.ID) {
		return nil, m.Client.Print("Account is already logged in!")
	}
	return m.loginAccount(account, name), nil
}

func (m *OutsideMenu) doRegister(args []string) (session.Handler, error) {
	agreed, err := m.checkTermsOfService()
	if err != nil {
		return nil, err
	}
	if !agreed {
		return nil, session.ErrExit
	}
	name, err := argOrInput(m.Client, args, 0, "Username:")
	if err != nil {
		return nil, err
	}
	if len(strings.Fields(name)) > 1 {
		return nil, m.Client.Print("Username may not have whitespace!")
	}
	account, created := m.ctx.Accounts.Create(name)
	if !created {
		return nil, m.Client.Print("Account already exists!")
	}
	word, err := argOrInput(m.Client, args, 1, "Password:")
	if err != nil {
		m.ctx.Accounts.Discard(name)
		return nil, err
	}
	if len(strings.Fields(word)) != 1 {
		m.ctx.Accounts.Discard(name)
		return nil, m.Client.Print("Password may not have whitespace!")
	}
	account.SetPassword(word)
	if !account.TryLogin(m.Client.ID) {
		return nil, m.Client.Print("Account is already logged in!")
	}
	return m.loginAccount(account, name), nil
}

func (m *OutsideMenu) checkTermsOfService() (bool, error) {
	if err := m.Client.Print(termsOfService); err != nil {
		return false, err
	}
	answer, err := m.Client.Input("Do you agree?")
	if err != nil {
		return false, err
	}
	return session.YesWords[answer], nil
}

func (m *OutsideMenu) loginAccount(account *core.Account, name string) session.Handler {
	m.Client.Name = name
	m.Client.Account = account
	return NewInsideMenu(m.ctx, m.Client)
}

// argOrInput takes positional argument i when present, prompting otherwise.
func argOrInput(client *core.Client, args []string, i int, prompt string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	return client.Input(prompt)
}
