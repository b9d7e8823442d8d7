package core

import (
	"slices"
	"sync"

	"github.com/Blastus/confabulator/internal/metrics"
)

// RoomState tracks a channel's setup lifecycle.
type RoomState int

const (
	RoomStart RoomState = iota // created, not yet configured
	RoomSetup                  // first entrant is configuring it
	RoomReady                  // open for conversation
	RoomReset                  // wiped, waiting for the owner to return
	RoomFinal                  // permanently closed
)

func (s RoomState) String() string {
	switch s {
	case RoomStart:
		return "start"
	case RoomSetup:
		return "setup"
	case RoomReady:
		return "ready"
	case RoomReset:
		return "reset"
	case RoomFinal:
		return "final"
	}
	return "unknown"
}

// SizeInfinite marks a buffer or replay size with no configured bound.
const SizeInfinite = -1

// builtinBufferLimit caps the line buffer regardless of configuration.
const builtinBufferLimit = 10000

// ChannelRoom is the shared state of one named channel. Clients connect by
// connection id; all mutation happens under mu with snapshots taken before
// any network writes.
type ChannelRoom struct {
	mu           sync.Mutex
	name         string // empty once deleted
	owner        string
	password     string
	buffer       []ChannelLine
	bufferSize   int
	replaySize   int
	state        RoomState
	connected    map[string]member
	mutedToMuter map[string][]string
	kicked       []string
	banned       []string

	// adminMu serialises the channel admin console; adminName records the
	// holder for the takeover notice.
	adminMu   sync.Mutex
	adminName string
}

// member pairs a connected client with its name as of connect time. Filters
// and kick flags use this copy: the live Name field belongs to the client's
// own worker and may be cleared at logout while a broadcast is in flight.
type member struct {
	name   string
	client *Client
}

// NewChannelRoom creates an unconfigured room owned by owner.
func NewChannelRoom(name, owner string) *ChannelRoom {
	return &ChannelRoom{
		name:         name,
		owner:        owner,
		bufferSize:   SizeInfinite,
		replaySize:   10,
		state:        RoomStart,
		connected:    make(map[string]member),
		mutedToMuter: make(map[string][]string),
	}
}

// RestoreRoom rebuilds a persisted room with no connected members.
func RestoreRoom(name, owner, password string, bufferSize, replaySize int, state RoomState, lines []ChannelLine) *ChannelRoom {
	r := NewChannelRoom(name, owner)
	r.password = password
	r.bufferSize = bufferSize
	r.replaySize = replaySize
	r.state = state
	r.buffer = slices.Clone(lines)
	return r
}

// Name returns the channel name, or "" once the channel has been deleted.
func (r *ChannelRoom) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// SetName records a successful rename.
func (r *ChannelRoom) SetName(name string) {
	r.mu.Lock()
	r.name = name
	r.mu.Unlock()
}

// TakeName clears the name and returns the old one, so the caller can
// unregister it without holding the room lock.
func (r *ChannelRoom) TakeName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.name
	r.name = ""
	return name
}

func (r *ChannelRoom) Owner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// TransferOwner assigns a new owner. Reports whether the name differed from
// the current owner.
func (r *ChannelRoom) TransferOwner(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == r.owner {
		return false
	}
	r.owner = name
	return true
}

func (r *ChannelRoom) Password() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.password
}

func (r *ChannelRoom) SetPassword(word string) {
	r.mu.Lock()
	r.password = word
	r.mu.Unlock()
}

func (r *ChannelRoom) ClearPassword() {
	r.mu.Lock()
	r.password = ""
	r.mu.Unlock()
}

func (r *ChannelRoom) SetBufferSize(size int) {
	r.mu.Lock()
	r.bufferSize = size
	r.mu.Unlock()
}

func (r *ChannelRoom) SetReplaySize(size int) {
	r.mu.Lock()
	r.replaySize = size
	r.mu.Unlock()
}

// Configuration returns the values shown by the settings command.
func (r *ChannelRoom) Configuration() (owner, password string, bufferSize, replaySize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner, r.password, r.bufferSize, r.replaySize
}

// EnterState advances the setup state machine for an arriving member and
// returns the state the caller should act on. The first entrant of a START
// room sees RoomStart and must configure it; a returning owner restarts a
// RESET room.
func (r *ChannelRoom) EnterState(name string) RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RoomFinal {
		return RoomFinal
	}
	if r.state == RoomReset && name == r.owner {
		r.state = RoomStart
	}
	state := r.state
	if r.state == RoomStart {
		r.state = RoomSetup
	}
	return state
}

// FinishSetup opens the room after configuration, successful or not.
func (r *ChannelRoom) FinishSetup() {
	r.mu.Lock()
	r.state = RoomReady
	r.mu.Unlock()
}

func (r *ChannelRoom) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Connect registers a member under its connection id, capturing the client's
// name. Callers connect their own client, so the read is worker-local.
func (r *ChannelRoom) Connect(connID string, client *Client) {
	r.mu.Lock()
	r.connected[connID] = member{name: client.Name, client: client}
	r.mu.Unlock()
}

// Disconnect removes the member registered under connID.
func (r *ChannelRoom) Disconnect(connID string) {
	r.mu.Lock()
	delete(r.connected, connID)
	r.mu.Unlock()
}

// Members returns the connected member names in sorted order.
func (r *ChannelRoom) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.connected))
	for _, m := range r.connected {
		names = append(names, m.name)
	}
	slices.Sort(names)
	return names
}

func (r *ChannelRoom) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connected)
}

// AddLine appends a line to the buffer, evicting the oldest entries beyond
// the effective capacity, and returns the stored line. A zero buffer size
// records nothing but still returns the line for broadcasting.
func (r *ChannelRoom) AddLine(source, text string) ChannelLine {
	line := ChannelLine{Source: source, Text: text}
	r.mu.Lock()
	capacity := builtinBufferLimit
	if r.bufferSize != SizeInfinite && r.bufferSize < capacity {
		capacity = r.bufferSize
	}
	if capacity > 0 {
		r.buffer = append(r.buffer, line)
		if over := len(r.buffer) - capacity; over > 0 {
			r.buffer = slices.Delete(r.buffer, 0, over)
		}
	}
	r.mu.Unlock()
	metrics.ChannelLinesTotal.Inc()
	return line
}

// Broadcast sends line to the connected members. Recipients who are flagged
// as kicked or who muted the line's source are skipped; the sender only
// receives its own line when echo is set. Recipient write errors are their
// own workers' problem and are ignored here.
func (r *ChannelRoom) Broadcast(line ChannelLine, sender *Client, echo bool) {
	r.mu.Lock()
	recipients := make([]member, 0, len(r.connected))
	for _, m := range r.connected {
		recipients = append(recipients, m)
	}
	muters := slices.Clone(r.mutedToMuter[line.Source])
	kicked := slices.Clone(r.kicked)
	r.mu.Unlock()

	for _, m := range recipients {
		if slices.Contains(kicked, m.name) {
			continue
		}
		if slices.Contains(muters, m.name) {
			continue
		}
		if !echo && m.client == sender {
			continue
		}
		_ = line.Echo(m.client)
		metrics.BroadcastDeliveriesTotal.Inc()
	}
}

// ReplayTo shows the trailing replaySize lines of the buffer to client.
func (r *ChannelRoom) ReplayTo(client *Client) error {
	r.mu.Lock()
	var lines []ChannelLine
	switch {
	case r.replaySize == SizeInfinite:
		lines = slices.Clone(r.buffer)
	case r.replaySize > 0:
		start := len(r.buffer) - r.replaySize
		if start < 0 {
			start = 0
		}
		lines = slices.Clone(r.buffer[start:])
	}
	r.mu.Unlock()
	for _, line := range lines {
		if err := line.Echo(client); err != nil {
			return err
		}
	}
	return nil
}

// BufferSnapshot copies the whole line buffer.
func (r *ChannelRoom) BufferSnapshot() []ChannelLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.buffer)
}

func (r *ChannelRoom) PurgeBuffer() {
	r.mu.Lock()
	r.buffer = nil
	r.mu.Unlock()
}

func (r *ChannelRoom) IsBanned(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.banned, name)
}

// AddBan reports whether name was newly banned.
func (r *ChannelRoom) AddBan(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.banned, name) {
		return false
	}
	r.banned = append(r.banned, name)
	return true
}

// RemoveBan reports whether name had been banned.
func (r *ChannelRoom) RemoveBan(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.banned, name)
	if i < 0 {
		return false
	}
	r.banned = slices.Delete(r.banned, i, i+1)
	return true
}

func (r *ChannelRoom) BannedSnapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.banned)
}

// AddMute records that muter no longer wants to hear muted. Reports whether
// the entry is new.
func (r *ChannelRoom) AddMute(muted, muter string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	muters := r.mutedToMuter[muted]
	if slices.Contains(muters, muter) {
		return false
	}
	r.mutedToMuter[muted] = append(muters, muter)
	return true
}

// RemoveMute undoes AddMute. Reports whether the entry existed.
func (r *ChannelRoom) RemoveMute(muted, muter string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	muters := r.mutedToMuter[muted]
	i := slices.Index(muters, muter)
	if i < 0 {
		return false
	}
	muters = slices.Delete(muters, i, i+1)
	if len(muters) == 0 {
		delete(r.mutedToMuter, muted)
	} else {
		r.mutedToMuter[muted] = muters
	}
	return true
}

// MutedBy lists everyone muter has muted on this channel.
func (r *ChannelRoom) MutedBy(muter string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var muted []string
	for name, muters := range r.mutedToMuter {
		if slices.Contains(muters, muter) {
			muted = append(muted, name)
		}
	}
	slices.Sort(muted)
	return muted
}

// KickMember flags name for removal if it is currently connected. The flag
// is observed on the member's next read.
func (r *ChannelRoom) KickMember(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.connected {
		if m.name == name {
			r.kicked = append(r.kicked, name)
			return true
		}
	}
	return false
}

// KickAll flags every connected member.
func (r *ChannelRoom) KickAll() {
	r.mu.Lock()
	for _, m := range r.connected {
		r.kicked = append(r.kicked, m.name)
	}
	r.mu.Unlock()
}

func (r *ChannelRoom) IsKicked(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.kicked, name)
}

// DrainKicks removes every kick flag for name. Run when the member's worker
// leaves the room, whatever the reason.
func (r *ChannelRoom) DrainKicks(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := slices.Index(r.kicked, name); i >= 0; i = slices.Index(r.kicked, name) {
		r.kicked = slices.Delete(r.kicked, i, i+1)
	}
}

// MayWhisper returns the connected member named name, or nil when sender
// may not whisper there. A nil result with the target online means one of
// the sender's muters is the target; the caller falls back to the inbox.
func (r *ChannelRoom) MayWhisper(sender *Client, name string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.mutedToMuter[sender.Name], name) {
		return nil
	}
	for _, m := range r.connected {
		if m.name == name {
			return m.client
		}
	}
	return nil
}

// Reset wipes the channel back to a new-like condition owned by byName and
// flags every member for removal. The owner's next visit restarts setup.
func (r *ChannelRoom) Reset(byName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RoomReset
	for _, m := range r.connected {
		r.kicked = append(r.kicked, m.name)
	}
	r.resetLocked(byName)
}

// Finalize permanently closes the channel, returning the old name so the
// caller can unregister it.
func (r *ChannelRoom) Finalize(byName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RoomFinal
	name := r.name
	r.name = ""
	for _, m := range r.connected {
		r.kicked = append(r.kicked, m.name)
	}
	r.resetLocked(byName)
	return name
}

func (r *ChannelRoom) resetLocked(owner string) {
	r.owner = owner
	r.password = ""
	r.buffer = nil
	r.bufferSize = SizeInfinite
	r.replaySize = 10
	r.mutedToMuter = make(map[string][]string)
	r.banned = nil
}

// ScrubName removes every trace of a deleted account from the room.
func (r *ChannelRoom) ScrubName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mutedToMuter, name)
	for i := slices.Index(r.banned, name); i >= 0; i = slices.Index(r.banned, name) {
		r.banned = slices.Delete(r.banned, i, i+1)
	}
	for muted, muters := range r.mutedToMuter {
		if i := slices.Index(muters, name); i >= 0 {
			muters = slices.Delete(muters, i, i+1)
			if len(muters) == 0 {
				delete(r.mutedToMuter, muted)
			} else {
				r.mutedToMuter[muted] = muters
			}
		}
	}
}

// TryAdmin attempts to take the channel admin console for name.
func (r *ChannelRoom) TryAdmin(name string) bool {
	if !r.adminMu.TryLock() {
		return false
	}
	r.mu.Lock()
	r.adminName = name
	r.mu.Unlock()
	return true
}

// ReleaseAdmin gives the console back. The recorded name is left in place
// for the takeover notice shown to the next contender.
func (r *ChannelRoom) ReleaseAdmin() {
	r.adminMu.Unlock()
}

// AdminName names the current (or most recent) console holder.
func (r *ChannelRoom) AdminName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adminName
}

// PersistState returns the persistent view of the room for saving.
func (r *ChannelRoom) PersistState() (name, owner, password string, bufferSize, replaySize int, state RoomState, lines []ChannelLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.owner, r.password, r.bufferSize, r.replaySize, r.state, slices.Clone(r.buffer)
}
