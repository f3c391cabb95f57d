package repo

import (
	"reflect"
	"testing"
)

func TestParseChanged(t *testing.T) {
	out := "U   trunk/file.txt\n" +
		"A   trunk/new.txt\n" +
		"D   trunk/old.txt\n" +
		"_U  trunk/props.txt\n" +
		"UU  trunk/both.txt\n"

	want := []Change{
		{Type: "U", Path: "trunk/file.txt"},
		{Type: "A", Path: "trunk/new.txt"},
		{Type: "D", Path: "trunk/old.txt"},
		{Type: "_U", Path: "trunk/props.txt"},
		{Type: "UU", Path: "trunk/both.txt"},
	}
	if got := ParseChanged(out); !reflect.DeepEqual(got, want) {
		t.Errorf("ParseChanged =\n%#v\nwant\n%#v", got, want)
	}
}

func TestParseChangedReplaced(t *testing.T) {
	out := "D   trunk/a.txt\n" +
		"A   trunk/a.txt\n" +
		"U   trunk/b.txt\n"

	changes := ParseChanged(out)
	if len(changes) != 3 {
		t.Fatalf("got %d changes", len(changes))
	}
	if !changes[0].Replaced || !changes[1].Replaced {
		t.Error("add+delete of the same path should mark both entries replaced")
	}
	if changes[2].Replaced {
		t.Error("plain update marked replaced")
	}
}

func TestParseChangedEmpty(t *testing.T) {
	if got := ParseChanged(""); got != nil {
		t.Errorf("ParseChanged(\"\") = %v, want nil", got)
	}
	if got := ParseChanged("\n\n"); got != nil {
		t.Errorf("blank input = %v, want nil", got)
	}
}

func TestChangeTypePredicates(t *testing.T) {
	tests := []struct {
		typ   string
		isAdd bool
		isDel bool
	}{
		{"A", true, false},
		{"A+", true, false},
		{"D", false, true},
		{"U", false, false},
		{"_U", false, false},
		{"UU", false, false},
	}
	for _, tt := range tests {
		c := Change{Type: tt.typ}
		if c.IsAdd() != tt.isAdd || c.IsDelete() != tt.isDel {
			t.Errorf("%q: IsAdd=%v IsDelete=%v, want %v/%v",
				tt.typ, c.IsAdd(), c.IsDelete(), tt.isAdd, tt.isDel)
		}
	}
}

func TestParseLock(t *testing.T) {
	out := "UUID Token: opaquelocktoken:ab-12\n" +
		"Owner: alice\n" +
		"Created: 2026-01-05 10:00:00 +0000 (Mon, 05 Jan 2026)\n" +
		"Expires: \n" +
		"Comment (2 lines):\n" +
		"working on the\n" +
		"release notes\n"

	lock := ParseLock(out)
	if lock == nil {
		t.Fatal("ParseLock returned nil for locked path")
	}
	if lock.Token != "opaquelocktoken:ab-12" {
		t.Errorf("token = %q", lock.Token)
	}
	if lock.Owner != "alice" {
		t.Errorf("owner = %q", lock.Owner)
	}
	if lock.Comment != "working on the\nrelease notes" {
		t.Errorf("comment = %q", lock.Comment)
	}
}

func TestParseLockUnlocked(t *testing.T) {
	if lock := ParseLock(""); lock != nil {
		t.Errorf("ParseLock(\"\") = %+v, want nil", lock)
	}
	if lock := ParseLock("  \n"); lock != nil {
		t.Errorf("whitespace output = %+v, want nil", lock)
	}
}
