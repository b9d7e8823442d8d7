package main

import (
	"fmt"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/store"
)

// loadState populates the in-memory context from the database. The ban list
// is bound to the store afterwards so later edits write through immediately.
func loadState(ctx *core.Context, st *store.Store) error {
	accounts, err := st.LoadAccounts()
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	for _, rec := range accounts {
		messages := make([]*core.Message, 0, len(rec.Messages))
		for _, msg := range rec.Messages {
			messages = append(messages, &core.Message{
				Source: msg.Source,
				Text:   msg.Body,
				New:    msg.Unread,
			})
		}
		ctx.Accounts.Restore(rec.Name, core.RestoreAccount(
			rec.Password, rec.Administrator, rec.Forgiven,
			rec.Contacts, messages))
	}

	channels, err := st.LoadChannels()
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	for _, rec := range channels {
		lines := make([]core.ChannelLine, 0, len(rec.Lines))
		for _, line := range rec.Lines {
			lines = append(lines, core.ChannelLine{
				Source: line.Source,
				Text:   line.Body,
			})
		}
		room := core.RestoreRoom(
			rec.Name, rec.Owner, rec.Password,
			rec.BufferSize, rec.ReplaySize,
			parseRoomState(rec.State), lines)
		ctx.Channels.Restore(rec.ID, room)
	}

	bans, err := st.BanList()
	if err != nil {
		return fmt.Errorf("load bans: %w", err)
	}
	ctx.Bans.Load(bans)
	ctx.Bans.BindStore(st)

	settings, err := st.GetAllSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	for key, value := range settings {
		ctx.Settings.Set(key, value)
	}
	return nil
}

// saveState writes the in-memory context back to the database. Bans are
// already persisted through the bound store, so only accounts, channels, and
// settings need flushing here.
func saveState(ctx *core.Context, st *store.Store) error {
	var accounts []store.AccountRecord
	for _, name := range ctx.Accounts.Names() {
		account, ok := ctx.Accounts.Get(name)
		if !ok {
			continue
		}
		var messages []store.MessageRecord
		for _, msg := range account.Messages() {
			messages = append(messages, store.MessageRecord{
				Source: msg.Source,
				Body:   msg.Text,
				Unread: msg.New,
			})
		}
		accounts = append(accounts, store.AccountRecord{
			Name:          name,
			Password:      account.Password(),
			Administrator: account.IsAdministrator(),
			Forgiven:      account.Forgiven(),
			Contacts:      account.Contacts(),
			Messages:      messages,
		})
	}
	if err := st.ReplaceAccounts(accounts); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}

	var channels []store.ChannelRecord
	for _, room := range ctx.Channels.Rooms() {
		name, owner, password, bufferSize, replaySize, state, buffer := room.PersistState()
		id, ok := ctx.Channels.ID(name)
		if !ok {
			continue
		}
		var lines []store.LineRecord
		for _, line := range buffer {
			lines = append(lines, store.LineRecord{
				Source: line.Source,
				Body:   line.Text,
			})
		}
		channels = append(channels, store.ChannelRecord{
			ID:         id,
			Name:       name,
			Owner:      owner,
			Password:   password,
			BufferSize: bufferSize,
			ReplaySize: replaySize,
			State:      state.String(),
			Lines:      lines,
		})
	}
	if err := st.ReplaceChannels(channels); err != nil {
		return fmt.Errorf("save channels: %w", err)
	}

	stored, err := st.GetAllSettings()
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	live := ctx.Settings.All()
	for key := range stored {
		if _, ok := live[key]; !ok {
			if err := st.DeleteSetting(key); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
		}
	}
	for key, value := range live {
		if err := st.SetSetting(key, value); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	return nil
}

func parseRoomState(name string) core.RoomState {
	switch name {
	case "start":
		return core.RoomStart
	case "setup":
		return core.RoomSetup
	case "reset":
		return core.RoomReset
	case "final":
		return core.RoomFinal
	default:
		return core.RoomReady
	}
}
