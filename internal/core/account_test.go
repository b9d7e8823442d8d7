package core

import (
	"errors"
	"testing"
)

func TestAccountPassword(t *testing.T) {
	a := NewAccount(false)
	if !a.CheckPassword("") {
		t.Fatal("fresh account should have an empty password")
	}
	a.SetPassword("secret")
	if !a.CheckPassword("secret") || a.CheckPassword("wrong") {
		t.Fatal("password check broken after SetPassword")
	}
	if a.Password() != "secret" {
		t.Fatalf("Password() = %q", a.Password())
	}
}

func TestAccountToggleAdministrator(t *testing.T) {
	a := NewAccount(false)
	if a.ToggleAdministrator() != true {
		t.Fatal("first toggle should grant")
	}
	if !a.IsAdministrator() {
		t.Fatal("flag not set")
	}
	if a.ToggleAdministrator() != false {
		t.Fatal("second toggle should revoke")
	}
}

func TestAccountForgiven(t *testing.T) {
	a := NewAccount(false)
	a.Forgive()
	a.Forgive()
	if a.Forgiven() != 2 {
		t.Fatalf("Forgiven = %d", a.Forgiven())
	}
	a.ResetForgiven()
	if a.Forgiven() != 0 {
		t.Fatalf("Forgiven after reset = %d", a.Forgiven())
	}
}

func TestAccountLoginBinding(t *testing.T) {
	a := NewAccount(false)
	if !a.TryLogin("conn-1") {
		t.Fatal("first login refused")
	}
	if a.TryLogin("conn-2") {
		t.Fatal("second login should be refused while online")
	}
	if !a.IsOnline() {
		t.Fatal("account should be online")
	}

	// Releasing with a stale id must not disturb the active binding.
	a.ReleaseClient("conn-2")
	if !a.IsOnline() {
		t.Fatal("stale release dropped the active binding")
	}

	a.ReleaseClient("conn-1")
	if a.IsOnline() {
		t.Fatal("account should be offline after release")
	}
	if !a.TryLogin("conn-3") {
		t.Fatal("relogin refused after release")
	}
}

func TestAccountContacts(t *testing.T) {
	a := NewAccount(false)
	if err := a.AddContact("alice"); err != nil {
		t.Fatalf("AddContact: %v", err)
	}
	if err := a.AddContact("alice"); !errors.Is(err, ErrContactListed) {
		t.Fatalf("duplicate AddContact = %v, want ErrContactListed", err)
	}
	if !a.HasContact("alice") {
		t.Fatal("HasContact missed alice")
	}
	if !a.RemoveContact("alice") {
		t.Fatal("RemoveContact missed alice")
	}
	if a.RemoveContact("alice") {
		t.Fatal("RemoveContact found a ghost")
	}
	_ = a.AddContact("bob")
	a.PurgeContacts()
	if len(a.Contacts()) != 0 {
		t.Fatalf("contacts after purge = %v", a.Contacts())
	}
}

func TestAccountMessages(t *testing.T) {
	first := &Message{Source: "alice", Text: "one", New: true}
	second := &Message{Source: "bob", Text: "two", New: false}
	a := RestoreAccount("", false, 0, nil, []*Message{first, second})

	if a.NewMessageCount() != 1 {
		t.Fatalf("NewMessageCount = %d", a.NewMessageCount())
	}
	a.DeleteMessages([]*Message{first})
	if got := a.Messages(); len(got) != 1 || got[0] != second {
		t.Fatalf("messages after delete = %v", got)
	}
	a.PurgeMessages()
	if len(a.Messages()) != 0 {
		t.Fatal("messages survived purge")
	}
}

func TestShowContactsStatus(t *testing.T) {
	a := NewAccount(false)
	_ = a.AddContact("alice")
	_ = a.AddContact("bob")

	c, _, r := newPipeClient("viewer")
	online := func(name string) bool { return name == "alice" }
	shown, err := a.ShowContacts(c, true, online)
	if err != nil {
		t.Fatalf("ShowContacts: %v", err)
	}
	if len(shown) != 2 {
		t.Fatalf("shown = %v", shown)
	}
	lines := r.waitLines(t, 2)
	if lines[0] != "(1) alice [Online]" {
		t.Fatalf("first line = %q", lines[0])
	}
	if lines[1] != "(2) bob [OFFline]" {
		t.Fatalf("second line = %q", lines[1])
	}
}

func TestShowMessageSummaryFilters(t *testing.T) {
	a := RestoreAccount("", false, 0, nil, []*Message{
		{Source: "alice", Text: "short note", New: true},
		{Source: "bob", Text: "read already", New: false},
	})

	c, _, r := newPipeClient("viewer")
	shown, err := a.ShowMessageSummary(c, true, 70, "unread", "")
	if err != nil {
		t.Fatalf("ShowMessageSummary: %v", err)
	}
	if len(shown) != 1 || shown[0].Source != "alice" {
		t.Fatalf("unread filter = %v", shown)
	}
	lines := r.waitLines(t, 2)
	if lines[0] != "Message 1 from alice [Unread]:" {
		t.Fatalf("summary line = %q", lines[0])
	}
	if lines[1] != "    short note" {
		t.Fatalf("body line = %q", lines[1])
	}

	shown, err = a.ShowMessageSummary(c, true, 70, "", "bob")
	if err != nil {
		t.Fatalf("ShowMessageSummary by source: %v", err)
	}
	if len(shown) != 1 || shown[0].Source != "bob" {
		t.Fatalf("source filter = %v", shown)
	}
}

func TestShowMessageSummaryTruncates(t *testing.T) {
	long := "aaaaaaaaaabbbbbbbbbb"
	a := RestoreAccount("", false, 0, nil, []*Message{
		{Source: "alice", Text: long, New: true},
	})
	c, _, r := newPipeClient("viewer")
	if _, err := a.ShowMessageSummary(c, false, 10, "", ""); err != nil {
		t.Fatalf("ShowMessageSummary: %v", err)
	}
	lines := r.waitLines(t, 2)
	if lines[1] != "    aaaaaaaaaa..." {
		t.Fatalf("truncated body = %q", lines[1])
	}
}

func TestShowMessageSummaryTruncatesMultibyte(t *testing.T) {
	long := "héllo wörld, hôw are yoü?"
	a := RestoreAccount("", false, 0, nil, []*Message{
		{Source: "alice", Text: long, New: true},
	})
	c, _, r := newPipeClient("viewer")
	if _, err := a.ShowMessageSummary(c, false, 10, "", ""); err != nil {
		t.Fatalf("ShowMessageSummary: %v", err)
	}
	lines := r.waitLines(t, 2)
	if lines[1] != "    héllo wörl..." {
		t.Fatalf("truncated body = %q", lines[1])
	}
}
