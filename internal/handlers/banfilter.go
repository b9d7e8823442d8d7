// Package handlers contains the menu and channel handlers that make up the
// user-facing side of the server. Each handler is one frame on a connection's
// session stack.
package handlers

import (
	"net"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

// BanFilter screens a fresh connection against the server ban list before
// letting it through to the outside menu. It is the root frame of every
// stack, so it runs a second time when the outside menu pops; that revisit
// says goodbye and closes the connection.
type BanFilter struct {
	client *core.Client
	ctx    *core.Context
	passed bool
}

func NewBanFilter(ctx *core.Context, client *core.Client) *BanFilter {
	return &BanFilter{client: client, ctx: ctx}
}

func (f *BanFilter) Handle() (session.Handler, error) {
	if f.passed {
		if err := f.client.Print("Disconnecting ..."); err != nil {
			return nil, err
		}
		return nil, f.client.Close(false)
	}
	for _, name := range f.identities() {
		if f.ctx.Bans.Contains(name) {
			return nil, f.client.Close(false)
		}
	}
	f.passed = true
	return NewOutsideMenu(f.ctx, f.client), nil
}

// identities is the address plus whatever reverse DNS says about it.
func (f *BanFilter) identities() []string {
	names := []string{f.client.Addr}
	if hosts, err := net.LookupAddr(f.client.Addr); err == nil {
		for _, host := range hosts {
			names = append(names, strings.TrimSuffix(host, "."))
		}
	}
	return names
}
