package core

// Context bundles the shared registries every handler works against.
type Context struct {
	Accounts *AccountRegistry
	Channels *ChannelRegistry
	Bans     *BanList
	Settings *Settings
}

func NewContext() *Context {
	return &Context{
		Accounts: NewAccountRegistry(),
		Channels: NewChannelRegistry(),
		Bans:     NewBanList(),
		Settings: NewSettings(),
	}
}

// MercyLimit is the number of pardoned admin-console attempts before a ban.
func (c *Context) MercyLimit() int {
	return c.Settings.GetInt("mercy_limit", DefaultMercyLimit)
}

// DeleteAccount removes the account and every reference to its name: other
// accounts' contact lists and all channel mute, ban, and muter entries. The
// registry lock is released before the per-room scrubbing.
func (c *Context) DeleteAccount(name string) {
	c.Accounts.remove(name)
	for _, room := range c.Channels.Rooms() {
		room.ScrubName(name)
	}
}
