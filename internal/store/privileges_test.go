package store

import "testing"

func TestPrivilegeGroupGraph(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"root", "staff", "moderators", "helpers"} {
		if _, err := s.CreatePrivilegeGroup(name); err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
	}
	// root -> staff -> moderators, staff -> helpers
	for _, edge := range [][2]string{
		{"root", "staff"},
		{"staff", "moderators"},
		{"staff", "helpers"},
	} {
		if err := s.LinkPrivilegeGroups(edge[0], edge[1]); err != nil {
			t.Fatalf("link %v: %v", edge, err)
		}
	}

	cases := []struct {
		root, desc string
		want       bool
	}{
		{"root", "staff", true},
		{"root", "moderators", true}, // transitive
		{"root", "helpers", true},
		{"staff", "moderators", true},
		{"moderators", "root", false}, // edges are directed
		{"root", "root", false},       // not its own descendant
		{"helpers", "moderators", false},
	}
	for _, c := range cases {
		got, err := s.HasDescendant(c.root, c.desc)
		if err != nil {
			t.Fatalf("HasDescendant(%q, %q): %v", c.root, c.desc, err)
		}
		if got != c.want {
			t.Errorf("HasDescendant(%q, %q) = %v, want %v", c.root, c.desc, got, c.want)
		}
	}
}

func TestPrivilegeGroupListing(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"zeta", "alpha"} {
		if _, err := s.CreatePrivilegeGroup(name); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	names, err := s.PrivilegeGroups()
	if err != nil {
		t.Fatalf("PrivilegeGroups: %v", err)
	}
	if len(names) != 2 || names[0] != "zeta" || names[1] != "alpha" {
		t.Fatalf("names = %v, want creation order", names)
	}
}

func TestPrivilegeGroupDeleteCascades(t *testing.T) {
	s := newTestStore(t)
	s.CreatePrivilegeGroup("root")
	s.CreatePrivilegeGroup("staff")
	s.LinkPrivilegeGroups("root", "staff")

	if err := s.DeletePrivilegeGroup("staff"); err != nil {
		t.Fatalf("DeletePrivilegeGroup: %v", err)
	}
	got, err := s.HasDescendant("root", "staff")
	if err != nil {
		t.Fatalf("HasDescendant: %v", err)
	}
	if got {
		t.Fatal("descendant survived group deletion")
	}
}
