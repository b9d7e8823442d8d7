package core

import "testing"

func TestSettingsGetInt(t *testing.T) {
	s := NewSettings()
	if got := s.GetInt("missing", 7); got != 7 {
		t.Fatalf("missing key = %d", got)
	}
	s.Set("count", "42")
	if got := s.GetInt("count", 7); got != 42 {
		t.Fatalf("count = %d", got)
	}
	s.Set("count", "not a number")
	if got := s.GetInt("count", 7); got != 7 {
		t.Fatalf("malformed value = %d", got)
	}
}

func TestSettingsUnset(t *testing.T) {
	s := NewSettings()
	s.Set("key", "value")
	s.Unset("key")
	if _, ok := s.Get("key"); ok {
		t.Fatal("key survived Unset")
	}
}

func TestContextMercyLimit(t *testing.T) {
	ctx := NewContext()
	if ctx.MercyLimit() != DefaultMercyLimit {
		t.Fatalf("default mercy limit = %d", ctx.MercyLimit())
	}
	ctx.Settings.Set("mercy_limit", "5")
	if ctx.MercyLimit() != 5 {
		t.Fatalf("overridden mercy limit = %d", ctx.MercyLimit())
	}
}
