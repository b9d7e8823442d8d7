package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/metrics"
	"github.com/Blastus/confabulator/internal/session"
	"github.com/Blastus/confabulator/internal/summary"
)

// ChannelSession runs one member's visit to a channel: setup when the room
// is new, then the message loop. Lines starting with ':' are commands, all
// other lines are conversation.
type ChannelSession struct {
	*session.Base
	ctx  *core.Context
	room *core.ChannelRoom
}

func NewChannelSession(ctx *core.Context, client *core.Client, room *core.ChannelRoom) *ChannelSession {
	s := &ChannelSession{Base: session.NewBase(client), ctx: ctx, room: room}
	s.Register("admin", "Owner: change this channels settings.", s.doAdmin)
	s.Register("ban", "Owner: ban a user from joining this channel.", s.doBan)
	s.Register("bot", "Owner: add optional channel commands.", s.doBot)
	s.Register("invite", "Invite someone to join this channel.", s.doInvite)
	s.Register("kick", "Owner: kick a user off this channel.", s.doKick)
	s.Register("list", "Show everyone connected to this channel.", s.doList)
	s.Register("map", "Owner: add optional channel modifiers.", s.doMap)
	s.Register("mute", "Access and change your muted user list.", s.doMute)
	s.Register("run", "Owner: add optional channel extensions.", s.doRun)
	s.Register("summary", "Proof of concept: Mark V Shaney summarizes the channel.", s.doSummary)
	s.Register("whisper", "Send a message to one specific person.", s.doWhisper)
	return s
}

// Handle visits the channel once. Whatever happens, the member is dropped
// from the room and its kick flags are drained on the way out; pushing the
// channel admin console counts as leaving, and the console reconnects the
// member when it pops.
func (s *ChannelSession) Handle() (next session.Handler, err error) {
	defer func() {
		s.room.DrainKicks(s.Client.Name)
		s.room.Disconnect(s.Client.ID)
	}()
	return s.dispatch()
}

func (s *ChannelSession) dispatch() (session.Handler, error) {
	state := s.room.EnterState(s.Client.Name)
	switch state {
	case core.RoomFinal:
		return nil, nil
	case core.RoomStart:
		err := s.setupChannel()
		s.room.FinishSetup()
		if err != nil {
			return nil, err
		}
		return s.runChannel()
	case core.RoomSetup, core.RoomReset:
		return nil, s.Client.Print(s.room.Owner(), "is setting up this channel.")
	case core.RoomReady:
		return s.runChannel()
	}
	return nil, fmt.Errorf("%v is not a proper status value", state)
}

func (s *ChannelSession) setupChannel() error {
	if err := s.setupPassword(); err != nil {
		return err
	}
	if err := s.setupBufferSize(); err != nil {
		return err
	}
	return s.setupReplaySize()
}

func (s *ChannelSession) setupPassword() error {
	answer, err := s.Client.Input("Password protect this channel?")
	if err != nil {
		return err
	}
	if !session.YesWords[answer] {
		return nil
	}
	for {
		password, err := s.Client.Input("Set password to:")
		if err != nil {
			return err
		}
		if password != "" {
			s.room.SetPassword(password)
			return nil
		}
		if err := s.Client.Print("Password may not be empty."); err != nil {
			return err
		}
	}
}

func (s *ChannelSession) setupBufferSize() error {
	answer, err := s.Client.Input("Do you want to set the buffer size?")
	if err != nil {
		return err
	}
	if !session.YesWords[answer] {
		return nil
	}
	size, err := getSize(s.Client, nil)
	if err != nil {
		return err
	}
	s.room.SetBufferSize(size)
	return nil
}

func (s *ChannelSession) setupReplaySize() error {
	answer, err := s.Client.Input("Do you want to set the replay size?")
	if err != nil {
		return err
	}
	if !session.YesWords[answer] {
		return nil
	}
	size, err := getSize(s.Client, nil)
	if err != nil {
		return err
	}
	s.room.SetReplaySize(size)
	return nil
}

// getSize reads a non-negative size; all, infinite, and total mean no bound.
func getSize(client *core.Client, args []string) (int, error) {
	for {
		var line string
		if len(args) > 0 {
			line, args = args[0], nil
		} else {
			var err error
			line, err = client.Input("Size limitation:")
			if err != nil {
				return 0, err
			}
		}
		switch line {
		case "all", "infinite", "total":
			return core.SizeInfinite, nil
		}
		size, err := strconv.Atoi(line)
		if err != nil || size < 0 {
			if err := client.Print("Please enter a non-negative number."); err != nil {
				return 0, err
			}
			continue
		}
		return size, nil
	}
}

func (s *ChannelSession) runChannel() (session.Handler, error) {
	if s.room.IsBanned(s.Client.Name) {
		return nil, s.Client.Print("You have been banned from this channel.")
	}
	ok, err := s.authenticate()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.Client.Print("You have failed authentication.")
	}
	if err := s.room.ReplayTo(s.Client); err != nil {
		return nil, err
	}
	if err := s.showStatus(); err != nil {
		return nil, err
	}
	next, err := s.messageLoop()
	leaving := core.ChannelLine{Source: "EVENT", Text: s.Client.Name + " is leaving."}
	s.room.Broadcast(leaving, s.Client, false)
	return next, err
}

func (s *ChannelSession) authenticate() (bool, error) {
	password := s.room.Password()
	if password == "" {
		return true, nil
	}
	if ok, err := s.privileged(false); err != nil || ok {
		return ok, err
	}
	answer, err := s.Client.Input("Password to connect:")
	if err != nil {
		return false, err
	}
	return answer == password, nil
}

// privileged reports whether the client is an administrator or the channel
// owner, optionally complaining when it is neither.
func (s *ChannelSession) privileged(complain bool) (bool, error) {
	if s.Client.Account != nil && s.Client.Account.IsAdministrator() {
		return true, nil
	}
	if s.Client.Name == s.room.Owner() {
		return true, nil
	}
	if complain {
		return false, s.Client.Print("Only administrators or channel owner may do that.")
	}
	return false, nil
}

func (s *ChannelSession) showStatus() error {
	connected := s.room.MemberCount()
	noun := "people are"
	if connected == 1 {
		noun = "person is"
	}
	return s.Client.Print(fmt.Sprintf("%d %s connected.", connected, noun))
}

func (s *ChannelSession) messageLoop() (session.Handler, error) {
	joining := core.ChannelLine{Source: "EVENT", Text: s.Client.Name + " is joining."}
	s.room.Broadcast(joining, s.Client, false)
	for {
		line, err := s.Client.Input()
		if err != nil {
			return nil, err
		}
		if s.room.IsKicked(s.Client.Name) {
			return nil, s.Client.Print("You have been kicked out of this channel.")
		}
		if strings.HasPrefix(line, ":") {
			next, done, err := s.Dispatch(line[1:])
			if err != nil {
				return nil, err
			}
			if done {
				return next, nil
			}
			continue
		}
		stored := s.room.AddLine(s.Client.Name, line)
		s.room.Broadcast(stored, s.Client, true)
	}
}

func (s *ChannelSession) doAdmin([]string) (session.Handler, error) {
	ok, err := s.privileged(true)
	if err != nil || !ok {
		return nil, err
	}
	return NewChannelAdmin(s.ctx, s.Client, s.room), nil
}

func (s *ChannelSession) doBan(args []string) (session.Handler, error) {
	ok, err := s.privileged(true)
	if err != nil || !ok {
		return nil, err
	}
	if len(args) == 0 {
		return nil, s.Client.Print("Try add, del, or list.")
	}
	switch args[0] {
	case "add":
		name, err := argOrInput(s.Client, args, 1, "Who?")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, s.Client.Print("Cancelling ...")
		}
		return nil, s.addBan(name)
	case "del":
		name, err := argOrInput(s.Client, args, 1, "Who?")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, s.Client.Print("Cancelling ...")
		}
		return nil, s.delBan(name)
	case "list":
		return nil, s.listBan()
	}
	return nil, s.Client.Print("Try add, del, or list.")
}

// isProtected reports whether name is immune to kicks and bans. known is
// false when no such account exists, in which case a notice was printed.
func (s *ChannelSession) isProtected(name string) (protected, known bool, err error) {
	if s.room.Owner() == name {
		return true, true, nil
	}
	administrator, exists := s.ctx.Accounts.IsAdministrator(name)
	if !exists {
		return false, false, s.Client.Print(name, "does not exist.")
	}
	return administrator, true, nil
}

func (s *ChannelSession) addBan(name string) error {
	protected, known, err := s.isProtected(name)
	if err != nil || !known {
		return err
	}
	if protected {
		return s.Client.Print(name, "cannot be banned.")
	}
	if !s.room.AddBan(name) {
		return s.Client.Print(name, "was already been banned.")
	}
	if err := s.kick(name, false); err != nil {
		return err
	}
	return s.Client.Print(name, "has been banned.")
}

func (s *ChannelSession) delBan(name string) error {
	if s.room.RemoveBan(name) {
		return s.Client.Print(name, "is no longer banned on this channel.")
	}
	return s.Client.Print(name, "was not banned on this channel.")
}

func (s *ChannelSession) listBan() error {
	banned := s.room.BannedSnapshot()
	if len(banned) == 0 {
		return s.Client.Print("No one has been banned on this channel.")
	}
	if err := s.Client.Print("Those that are banned from this channel:"); err != nil {
		return err
	}
	for _, name := range banned {
		if err := s.Client.Print("   ", name); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChannelSession) doInvite(args []string) (session.Handler, error) {
	if s.room.Name() == "" {
		return nil, s.Client.Print("This channel has been permanently closed.")
	}
	if s.room.Password() != "" {
		ok, err := s.privileged(true)
		if err != nil || !ok {
			return nil, err
		}
	}
	return nil, s.sendInvitation(args)
}

func (s *ChannelSession) sendInvitation(args []string) error {
	name, err := argOrInput(s.Client, args, 0, "Who?")
	if err != nil {
		return err
	}
	if name == "" {
		return s.Client.Print("Cancelling ...")
	}
	if name == s.Client.Name {
		return s.Client.Print("You are already here.")
	}
	channelName := s.room.Name()
	if channelName == "" {
		return s.Client.Print("This channel has been permanently closed.")
	}
	message := fmt.Sprintf("%s has invited you to channel %s.", s.Client.Name, channelName)
	if password := s.room.Password(); password != "" {
		message += "\n\nUse this to get in: '" + password + "'"
	}
	if s.ctx.Accounts.DeliverMessage(s.Client.Name, name, message) {
		return s.Client.Print("Invitation has been sent.")
	}
	return s.Client.Print(name, "does not exist.")
}

func (s *ChannelSession) doKick(args []string) (session.Handler, error) {
	ok, err := s.privileged(true)
	if err != nil || !ok {
		return nil, err
	}
	name, err := argOrInput(s.Client, args, 0, "Who?")
	if err != nil {
		return nil, err
	}
	return nil, s.kick(name, true)
}

// kick flags a connected member for removal. The verbose flag silences the
// caller-facing notices when banning already explains the outcome.
func (s *ChannelSession) kick(name string, verbose bool) error {
	report := func(values ...any) error {
		if !verbose {
			return nil
		}
		return s.Client.Print(values...)
	}
	if name == "" {
		return report("Cancelling ...")
	}
	protected, known, err := s.isProtected(name)
	if err != nil || !known {
		return err
	}
	if protected {
		return report(name, "cannot be kicked.")
	}
	if s.room.KickMember(name) {
		return report(name, "has been kicked.")
	}
	return report(name, "is not on this channel.")
}

func (s *ChannelSession) doList([]string) (session.Handler, error) {
	members := s.room.Members()
	if len(members) == 1 {
		return nil, s.Client.Print("You alone are on this channel.")
	}
	if err := s.Client.Print("Current connected to this channel:"); err != nil {
		return nil, err
	}
	for _, name := range members {
		if err := s.Client.Print("   ", name); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (s *ChannelSession) doMute(args []string) (session.Handler, error) {
	if len(args) == 0 {
		return nil, s.Client.Print("Try add, del, or list.")
	}
	switch args[0] {
	case "add":
		muted, err := argOrInput(s.Client, args, 1, "Who?")
		if err != nil {
			return nil, err
		}
		return nil, s.addMute(muted)
	case "del":
		muted, err := argOrInput(s.Client, args, 1, "Who?")
		if err != nil {
			return nil, err
		}
		return nil, s.delMute(muted)
	case "list":
		return nil, s.listMute()
	}
	return nil, s.Client.Print("Try add, del, or list.")
}

func (s *ChannelSession) addMute(muted string) error {
	if muted == "" {
		return s.Client.Print("Cancelling ...")
	}
	if !s.ctx.Accounts.Exists(muted) {
		return s.Client.Print(muted, "does not exist.")
	}
	if s.room.AddMute(muted, s.Client.Name) {
		return s.Client.Print(muted, "has been muted.")
	}
	return s.Client.Print(muted, "was already muted.")
}

func (s *ChannelSession) delMute(muted string) error {
	if muted == "" {
		return s.Client.Print("Cancelling ...")
	}
	if s.room.RemoveMute(muted, s.Client.Name) {
		return s.Client.Print(muted, "is no longer muted.")
	}
	return s.Client.Print(muted, "was not muted.")
}

func (s *ChannelSession) listMute() error {
	muted := s.room.MutedBy(s.Client.Name)
	if len(muted) == 0 {
		return s.Client.Print("Your list is empty.")
	}
	listing := append([]string{"You have muted:"}, muted...)
	return s.Client.Print(strings.Join(listing, "\n    "))
}

func (s *ChannelSession) doSummary([]string) (session.Handler, error) {
	buffer := s.room.BufferSnapshot()
	if len(buffer) == 0 {
		return nil, s.Client.Print("There is nothing to summarize.")
	}
	clauses := (len(buffer) + 3) / 4
	return summary.NewSummarizer(s.Client, s.room, buffer, clauses), nil
}

func (s *ChannelSession) doWhisper(args []string) (session.Handler, error) {
	name, err := argOrInput(s.Client, args, 0, "Who?")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, s.Client.Print("Cancelling ...")
	}
	if !s.ctx.Accounts.Exists(name) {
		return nil, s.Client.Print(name, "does not exist.")
	}
	message, err := s.Client.Input("Message:")
	if err != nil {
		return nil, err
	}
	if message == "" {
		return nil, s.Client.Print("You may not whisper empty messages.")
	}
	if s.sendWhisper(name, message) {
		return nil, s.Client.Print("Message sent.")
	}
	return nil, s.Client.Print(name, "no longer has an account.")
}

// sendWhisper delivers directly when the target is here and has not muted
// the sender, and falls back to the inbox otherwise. Only a direct delivery
// counts as a whisper; inbox fallbacks are counted as inbox deliveries.
func (s *ChannelSession) sendWhisper(name, message string) bool {
	target := s.room.MayWhisper(s.Client, name)
	if target == nil {
		return s.ctx.Accounts.DeliverMessage(s.Client.Name, name, message)
	}
	_ = target.Print(fmt.Sprintf("(%s) %s", s.Client.Name, message))
	metrics.WhispersTotal.Inc()
	return true
}

func (s *ChannelSession) doBot([]string) (session.Handler, error) {
	return nil, s.reserved()
}

func (s *ChannelSession) doMap([]string) (session.Handler, error) {
	return nil, s.reserved()
}

func (s *ChannelSession) doRun([]string) (session.Handler, error) {
	return nil, s.reserved()
}

func (s *ChannelSession) reserved() error {
	ok, err := s.privileged(true)
	if err != nil || !ok {
		return err
	}
	return s.Client.Print("Reserved command for future expansion ...")
}

// ChannelAdmin is the per-channel owner console. Only one holder at a time;
// contenders are told who has it and are put back on the channel.
type ChannelAdmin struct {
	*session.Base
	ctx  *core.Context
	room *core.ChannelRoom
}

func NewChannelAdmin(ctx *core.Context, client *core.Client, room *core.ChannelRoom) *ChannelAdmin {
	a := &ChannelAdmin{Base: session.NewBase(client), ctx: ctx, room: room}
	a.Register("buffer", "Set the buffer size of this channel.", a.doBuffer)
	a.Register("close", "Kick everyone off the channel (useful after delete).", a.doClose)
	a.Register("delete", "Un-register this channel as though it did not exist.", a.doDelete)
	a.Register("finalize", "Delete, close, and reset the channel (returns you to main menu).", a.doFinalize)
	a.Register("history", "Show the entire contents of the channel buffer.", a.doHistory)
	a.Register("owner", "Change the owner of this channel.", a.doOwner)
	a.Register("password", "Change the password of this channel.", a.doPassword)
	a.Register("purge", "Clear the contents of the channel buffer.", a.doPurge)
	a.Register("rename", "Give this channel a new name not used by another channel.", a.doRename)
	a.Register("replay", "Set the replay size of this channel.", a.doReplay)
	a.Register("reset", "Make the channel like new again with nothing in it.", a.doReset)
	a.Register("settings", "Show channel owner, password, buffer size, and replay size.", a.doSettings)
	return a
}

func (a *ChannelAdmin) Handle() (session.Handler, error) {
	if !a.room.TryAdmin(a.Client.Name) {
		if err := a.Client.Print(a.room.AdminName(),
			"is currently using the admin console."); err != nil {
			return nil, err
		}
		a.room.Connect(a.Client.ID, a.Client)
		return nil, nil
	}
	next, err := a.console()
	a.room.ReleaseAdmin()
	if err != nil {
		return nil, err
	}
	if next == nil {
		a.room.Connect(a.Client.ID, a.Client)
	}
	return next, nil
}

func (a *ChannelAdmin) console() (session.Handler, error) {
	if err := a.Client.Print("Opening admin console ..."); err != nil {
		return nil, err
	}
	return a.CommandLoop("")
}

func (a *ChannelAdmin) doBuffer(args []string) (session.Handler, error) {
	size, err := getSize(a.Client, args)
	if err != nil {
		return nil, err
	}
	a.room.SetBufferSize(size)
	return nil, nil
}

func (a *ChannelAdmin) doClose([]string) (session.Handler, error) {
	a.room.KickAll()
	return nil, a.Client.Print("Everyone has been kicked off the channel.")
}

func (a *ChannelAdmin) doDelete([]string) (session.Handler, error) {
	name := a.room.TakeName()
	if name == "" {
		return nil, a.Client.Print("This channel had been previously deleted.")
	}
	a.ctx.Channels.Delete(name)
	return nil, a.Client.Print("This channel is no longer enabled.")
}

func (a *ChannelAdmin) doFinalize([]string) (session.Handler, error) {
	if name := a.room.Finalize(a.Client.Name); name != "" {
		a.ctx.Channels.Delete(name)
	}
	if err := a.Client.Print("The channel has been finalized."); err != nil {
		return nil, err
	}
	if err := a.Client.Print("Returning to the main menu ..."); err != nil {
		return nil, err
	}
	return nil, session.ErrExit
}

func (a *ChannelAdmin) doHistory([]string) (session.Handler, error) {
	buffer := a.room.BufferSnapshot()
	if len(buffer) == 0 {
		return nil, a.Client.Print("The channel buffer is empty.")
	}
	for _, line := range buffer {
		if err := line.Echo(a.Client); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (a *ChannelAdmin) doOwner(args []string) (session.Handler, error) {
	newOwner, err := argOrInput(a.Client, args, 0, "New owner:")
	if err != nil {
		return nil, err
	}
	if newOwner == "" {
		return nil, a.Client.Print("Cancelling ...")
	}
	if len(args) > 1 || len(strings.Fields(newOwner)) > 1 {
		return nil, a.Client.Print("Username may not have whitespace!")
	}
	if newOwner == a.room.Owner() {
		return nil, a.Client.Print(newOwner, "already owns this channel.")
	}
	if !a.ctx.Accounts.Exists(newOwner) {
		return nil, a.Client.Print(newOwner, "does not have an account.")
	}
	a.room.TransferOwner(newOwner)
	return nil, a.Client.Print(newOwner, "is now the owner of this channel.")
}

func (a *ChannelAdmin) doPassword(args []string) (session.Handler, error) {
	if len(args) == 0 {
		return nil, a.Client.Print("Try set or unset.")
	}
	switch args[0] {
	case "set":
		word, err := argOrInput(a.Client, args, 1, "Password:")
		if err != nil {
			return nil, err
		}
		if word == "" {
			return nil, a.Client.Print("Password may not be empty.")
		}
		a.room.SetPassword(word)
		return nil, a.Client.Print("Password has been set to:", word)
	case "unset":
		a.room.ClearPassword()
		return nil, a.Client.Print("The password has been cleared.")
	}
	return nil, a.Client.Print("Try set or unset.")
}

func (a *ChannelAdmin) doPurge([]string) (session.Handler, error) {
	a.room.PurgeBuffer()
	return nil, a.Client.Print("The buffer has been cleared.")
}

func (a *ChannelAdmin) doRename(args []string) (session.Handler, error) {
	oldName := a.room.Name()
	if oldName == "" {
		return nil, a.Client.Print("Deleted channels cannot be renamed.")
	}
	newName, err := argOrInput(a.Client, args, 0, "New name:")
	if err != nil {
		return nil, err
	}
	if newName == "" {
		return nil, a.Client.Print("Cancelling ...")
	}
	if len(args) > 1 || len(strings.Fields(newName)) > 1 {
		return nil, a.Client.Print("Channel name may not have whitespace!")
	}
	if a.room.Name() == "" {
		return nil, a.Client.Print("This channel has been deleted.")
	}
	if a.ctx.Channels.Rename(oldName, newName) {
		a.room.SetName(newName)
		return nil, a.Client.Print(newName, "is the new name of this channel.")
	}
	return nil, a.Client.Print("The name", newName, "is already in use.")
}

func (a *ChannelAdmin) doReplay(args []string) (session.Handler, error) {
	size, err := getSize(a.Client, args)
	if err != nil {
		return nil, err
	}
	a.room.SetReplaySize(size)
	return nil, nil
}

func (a *ChannelAdmin) doReset([]string) (session.Handler, error) {
	a.room.Reset(a.Client.Name)
	return nil, a.Client.Print("Channel has been reset, and you are its owner.")
}

func (a *ChannelAdmin) doSettings([]string) (session.Handler, error) {
	owner, password, bufferSize, replaySize := a.room.Configuration()
	lines := []string{
		"Owner:       " + owner,
		"Password:    " + password,
		"Buffer size: " + sizeText(bufferSize),
		"Replay size: " + sizeText(replaySize),
	}
	for _, line := range lines {
		if err := a.Client.Print(line); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func sizeText(size int) string {
	if size == core.SizeInfinite {
		return "Infinite"
	}
	return strconv.Itoa(size)
}
