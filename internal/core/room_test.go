package core

import (
	"testing"
)

func TestRoomStateMachine(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")

	// First entrant sees START and must configure the room.
	if got := r.EnterState("alice"); got != RoomStart {
		t.Fatalf("first EnterState = %v", got)
	}
	// Anyone arriving mid-setup sees SETUP.
	if got := r.EnterState("bob"); got != RoomSetup {
		t.Fatalf("mid-setup EnterState = %v", got)
	}
	r.FinishSetup()
	if got := r.EnterState("bob"); got != RoomReady {
		t.Fatalf("ready EnterState = %v", got)
	}

	// Reset parks the room until the owner returns.
	r.Reset("alice")
	if got := r.EnterState("bob"); got != RoomReset {
		t.Fatalf("non-owner after reset = %v", got)
	}
	if got := r.EnterState("alice"); got != RoomStart {
		t.Fatalf("owner after reset = %v", got)
	}

	// Final is sticky.
	r.FinishSetup()
	r.Finalize("alice")
	if got := r.EnterState("alice"); got != RoomFinal {
		t.Fatalf("EnterState after finalize = %v", got)
	}
}

func TestRoomStateStrings(t *testing.T) {
	cases := map[RoomState]string{
		RoomStart: "start",
		RoomSetup: "setup",
		RoomReady: "ready",
		RoomReset: "reset",
		RoomFinal: "final",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Errorf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}

func TestRoomBufferEviction(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	r.SetBufferSize(3)
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		r.AddLine("alice", text)
	}
	buffer := r.BufferSnapshot()
	if len(buffer) != 3 {
		t.Fatalf("buffer length = %d", len(buffer))
	}
	for i, want := range []string{"three", "four", "five"} {
		if buffer[i].Text != want {
			t.Fatalf("buffer[%d] = %q, want %q", i, buffer[i].Text, want)
		}
	}
}

func TestRoomZeroBufferRecordsNothing(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	r.SetBufferSize(0)
	line := r.AddLine("alice", "vanishes")
	if line.Text != "vanishes" {
		t.Fatalf("AddLine returned %+v", line)
	}
	if len(r.BufferSnapshot()) != 0 {
		t.Fatal("zero-sized buffer stored a line")
	}
}

func TestRoomReplaySizes(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	for _, text := range []string{"one", "two", "three", "four"} {
		r.AddLine("alice", text)
	}

	cases := []struct {
		size int
		want int
	}{
		{SizeInfinite, 4},
		{0, 0},
		{2, 2},
		{10, 4},
	}
	for _, c := range cases {
		r.SetReplaySize(c.size)
		client, _, recv := newPipeClient("viewer")
		if err := r.ReplayTo(client); err != nil {
			t.Fatalf("ReplayTo(size=%d): %v", c.size, err)
		}
		_ = client.Print("done")
		lines := recv.waitLines(t, c.want+1)
		if len(lines) != c.want+1 {
			t.Fatalf("replay size %d produced %d lines: %v", c.size, len(lines)-1, lines)
		}
		if c.size == 2 && lines[0] != "[alice] three" {
			t.Fatalf("replay should keep the trailing lines, got %v", lines)
		}
	}
}

func TestRoomBroadcastFilters(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")

	sender, _, senderRecv := newPipeClient("alice")
	listener, _, listenerRecv := newPipeClient("bob")
	muter, _, muterRecv := newPipeClient("carol")
	kicked, _, kickedRecv := newPipeClient("dave")

	r.Connect(sender.ID, sender)
	r.Connect(listener.ID, listener)
	r.Connect(muter.ID, muter)
	r.Connect(kicked.ID, kicked)

	r.AddMute("alice", "carol")
	r.KickMember("dave")

	line := r.AddLine("alice", "hello")
	r.Broadcast(line, sender, false)

	// Flush markers so missing deliveries are detectable.
	for _, c := range []*Client{sender, listener, muter, kicked} {
		_ = c.Print("marker")
	}

	if lines := senderRecv.waitLines(t, 1); lines[0] != "marker" {
		t.Fatalf("sender got its own line without echo: %v", lines)
	}
	if lines := listenerRecv.waitLines(t, 2); lines[0] != "[alice] hello" {
		t.Fatalf("listener missed the line: %v", lines)
	}
	if lines := muterRecv.waitLines(t, 1); lines[0] != "marker" {
		t.Fatalf("muter received a muted source: %v", lines)
	}
	if lines := kickedRecv.waitLines(t, 1); lines[0] != "marker" {
		t.Fatalf("kicked member received a line: %v", lines)
	}

	// With echo the sender hears itself.
	r.Broadcast(r.AddLine("alice", "again"), sender, true)
	if lines := senderRecv.waitLines(t, 2); lines[1] != "[alice] again" {
		t.Fatalf("sender missed the echo: %v", lines)
	}
}

func TestRoomUsesConnectTimeNames(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")

	sender, _, _ := newPipeClient("alice")
	listener, _, listenerRecv := newPipeClient("bob")
	r.Connect(sender.ID, sender)
	r.Connect(listener.ID, listener)

	// The owning worker clears Name at logout; the room keeps working with
	// the name it captured at connect time.
	listener.Name = ""

	if got := r.Members(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("Members = %v", got)
	}
	if !r.KickMember("bob") {
		t.Fatal("connect-time name no longer kickable")
	}
	r.DrainKicks("bob")

	r.Broadcast(r.AddLine("alice", "hello"), sender, false)
	if lines := listenerRecv.waitLines(t, 1); lines[0] != "[alice] hello" {
		t.Fatalf("listener missed the line: %v", lines)
	}
}

func TestRoomBroadcastDuringLogout(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")

	sender, _, _ := newPipeClient("alice")
	listener, _, listenerRecv := newPipeClient("bob")
	r.Connect(sender.ID, sender)
	r.Connect(listener.ID, listener)

	// Broadcasts must never read the live Name field, so flipping it from
	// another goroutine mid-broadcast is race-free.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			listener.Name = ""
			listener.Name = "bob"
		}
	}()
	for i := 0; i < 200; i++ {
		r.Broadcast(ChannelLine{Source: "alice", Text: "hello"}, sender, false)
	}
	<-done

	if lines := listenerRecv.waitLines(t, 200); lines[0] != "[alice] hello" {
		t.Fatalf("listener missed deliveries: %v", lines[0])
	}
}

func TestRoomKickFlags(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	member, _, _ := newPipeClient("bob")
	r.Connect(member.ID, member)

	if r.KickMember("ghost") {
		t.Fatal("kicked someone who is not connected")
	}
	if !r.KickMember("bob") {
		t.Fatal("kick of a connected member failed")
	}
	if !r.KickMember("bob") {
		t.Fatal("repeat kick should flag again")
	}
	if !r.IsKicked("bob") {
		t.Fatal("kick flag missing")
	}
	r.DrainKicks("bob")
	if r.IsKicked("bob") {
		t.Fatal("DrainKicks left a flag behind")
	}
}

func TestRoomMayWhisper(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	sender, _, _ := newPipeClient("alice")
	target, _, _ := newPipeClient("bob")
	r.Connect(sender.ID, sender)
	r.Connect(target.ID, target)

	if got := r.MayWhisper(sender, "bob"); got != target {
		t.Fatal("whisper to a connected member should resolve")
	}
	if got := r.MayWhisper(sender, "ghost"); got != nil {
		t.Fatal("whisper to a missing member should fail")
	}

	// bob mutes alice: the whisper is denied even though bob is connected.
	r.AddMute("alice", "bob")
	if got := r.MayWhisper(sender, "bob"); got != nil {
		t.Fatal("whisper should be blocked by the target's mute")
	}
}

func TestRoomResetWipesConfiguration(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	r.SetPassword("secret")
	r.SetBufferSize(5)
	r.AddLine("alice", "history")
	r.AddBan("bob")
	r.FinishSetup()

	r.Reset("carol")

	if r.Owner() != "carol" {
		t.Fatalf("owner after reset = %q", r.Owner())
	}
	if r.Password() != "" {
		t.Fatal("password survived reset")
	}
	if len(r.BufferSnapshot()) != 0 {
		t.Fatal("buffer survived reset")
	}
	if r.IsBanned("bob") {
		t.Fatal("ban survived reset")
	}
	if r.State() != RoomReset {
		t.Fatalf("state after reset = %v", r.State())
	}
}

func TestRoomFinalizeReturnsName(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	if got := r.Finalize("alice"); got != "lobby" {
		t.Fatalf("Finalize returned %q", got)
	}
	if r.Name() != "" {
		t.Fatal("name survived finalize")
	}
	if r.State() != RoomFinal {
		t.Fatalf("state = %v", r.State())
	}
}

func TestRoomAdminLock(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	if !r.TryAdmin("alice") {
		t.Fatal("first TryAdmin failed")
	}
	if r.TryAdmin("bob") {
		t.Fatal("second TryAdmin should fail while held")
	}
	if r.AdminName() != "alice" {
		t.Fatalf("AdminName = %q", r.AdminName())
	}
	r.ReleaseAdmin()
	if !r.TryAdmin("bob") {
		t.Fatal("TryAdmin after release failed")
	}
	r.ReleaseAdmin()
}

func TestRoomPersistRoundTrip(t *testing.T) {
	r := NewChannelRoom("lobby", "alice")
	r.SetPassword("secret")
	r.SetBufferSize(20)
	r.SetReplaySize(5)
	r.FinishSetup()
	r.AddLine("alice", "hello")

	name, owner, password, bufferSize, replaySize, state, lines := r.PersistState()
	restored := RestoreRoom(name, owner, password, bufferSize, replaySize, state, lines)

	if restored.Name() != "lobby" || restored.Owner() != "alice" {
		t.Fatal("identity lost in round trip")
	}
	if restored.Password() != "secret" {
		t.Fatal("password lost in round trip")
	}
	if restored.State() != RoomReady {
		t.Fatalf("state = %v", restored.State())
	}
	buffer := restored.BufferSnapshot()
	if len(buffer) != 1 || buffer[0].Text != "hello" {
		t.Fatalf("buffer = %v", buffer)
	}
}
