package targets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tidwall/gjson"

	"multibot/internal/config"
)

func writeDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func ptr(v float64) *float64 { return &v }

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := s.Load(); !errors.Is(err, config.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	s := NewStore(writeDoc(t, `{"chatbots": {`))
	if _, err := s.Load(); !errors.Is(err, config.ErrConfigMalformed) {
		t.Fatalf("expected ErrConfigMalformed, got %v", err)
	}
}

func TestLoadWithoutSectionIsEmpty(t *testing.T) {
	s := NewStore(writeDoc(t, `{"API_ENDPOINT": "x"}`))
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestLoadKeepsDocumentOrder(t *testing.T) {
	s := NewStore(writeDoc(t, `{"chatbots": {
		"zeta":  {"title": "Zeta", "x": 1, "y": 1},
		"alpha": {"title": "Alpha", "x": 2, "y": 2, "rel_x": 0.5, "rel_y": 0.25, "send": "click", "send_x": 9, "send_y": 8},
		"mid":   {"title": "Mid", "x": 3, "y": 3, "delay_ms": 40}
	}}`))
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if !reflect.DeepEqual(ids, []string{"zeta", "alpha", "mid"}) {
		t.Fatalf("unexpected order %v", ids)
	}
	a := entries[1]
	if !a.HasRelative() || *a.RelX != 0.5 || *a.RelY != 0.25 {
		t.Fatalf("relative coordinate not loaded: %+v", a)
	}
	if a.SendMethodOrDefault() != SendClick || a.SendX != 9 || a.SendY != 8 {
		t.Fatalf("send fields not loaded: %+v", a)
	}
	if entries[0].SendMethodOrDefault() != SendEnter {
		t.Fatalf("expected enter default")
	}
}

func TestLoadLegacySection(t *testing.T) {
	s := NewStore(writeDoc(t, `{"chatbot_input": {"coordinates": {"claude": {"title": "Claude", "x": 5, "y": 6}}}}`))
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "claude" || entries[0].X != 5 {
		t.Fatalf("legacy section not read: %+v", entries)
	}
}

func TestPutPreservesExistingEntriesAndKeys(t *testing.T) {
	path := writeDoc(t, `{
  "API_ENDPOINT": "https://stt.example",
  "DISPATCH_DELAY_MS": 700,
  "chatbots": {
    "one": {"title": "One", "x": 10, "y": 20, "rel_x": 0.1, "rel_y": 0.2},
    "two": {"title": "Two", "x": 30, "y": 40, "send": "ctrl+enter", "delay_ms": 50}
  }
}`)
	s := NewStore(path)
	before, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := s.Put(Entry{ID: "three", Title: "Three", X: 50, Y: 60}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	after, err := s.Load()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(after) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(after))
	}
	if !reflect.DeepEqual(after[:2], before) {
		t.Fatalf("existing entries changed:\nbefore %+v\nafter  %+v", before, after[:2])
	}
	if after[2].ID != "three" {
		t.Fatalf("new entry not appended: %+v", after[2])
	}

	raw, _ := os.ReadFile(path)
	if gjson.GetBytes(raw, "API_ENDPOINT").String() != "https://stt.example" {
		t.Fatalf("unrelated key lost: %s", raw)
	}
	if gjson.GetBytes(raw, "DISPATCH_DELAY_MS").Int() != 700 {
		t.Fatalf("unrelated key lost: %s", raw)
	}
}

func TestPutSameIdentifierLastWriteWins(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	for i, title := range []string{"First", "Second", "Third"} {
		if err := s.Put(Entry{ID: "bot", Title: title, X: i, Y: i}); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
		if err := s.Put(Entry{ID: "other", Title: "Other", X: 1, Y: 1}); err != nil {
			t.Fatalf("Put other failed: %v", err)
		}
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	seen := map[string]int{}
	for _, e := range entries {
		seen[e.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("identifier %s stored %d times", id, n)
		}
	}
	bot, err := s.Get("bot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if bot.Title != "Third" || bot.X != 2 {
		t.Fatalf("expected last write, got %+v", bot)
	}
	if entries[0].ID != "bot" {
		t.Fatalf("replaced entry moved: %+v", entries)
	}
}

func TestSaveDeduplicatesKeepingFirstPosition(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	err := s.Save([]Entry{
		{ID: "a", Title: "A1", X: 1, Y: 1},
		{ID: "b", Title: "B", X: 2, Y: 2},
		{ID: "a", Title: "A2", X: 3, Y: 3},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "a" || entries[0].Title != "A2" || entries[1].ID != "b" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestSaveRefusesToOverwriteMalformed(t *testing.T) {
	path := writeDoc(t, `not json`)
	s := NewStore(path)
	if err := s.Save([]Entry{{ID: "a", Title: "A"}}); !errors.Is(err, config.ErrConfigMalformed) {
		t.Fatalf("expected ErrConfigMalformed, got %v", err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "not json" {
		t.Fatalf("malformed document was overwritten")
	}
}

func TestDelete(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	if err := s.Save([]Entry{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	entries, _ := s.Load()
	if len(entries) != 1 || entries[0].ID != "b" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name string
		e    Entry
		ok   bool
	}{
		{"minimal", Entry{ID: "a", Title: "A"}, true},
		{"no id", Entry{Title: "A"}, false},
		{"no title", Entry{ID: "a"}, false},
		{"half relative", Entry{ID: "a", Title: "A", RelX: ptr(0.5)}, false},
		{"relative out of range", Entry{ID: "a", Title: "A", RelX: ptr(1.5), RelY: ptr(0.5)}, false},
		{"relative edges", Entry{ID: "a", Title: "A", RelX: ptr(0), RelY: ptr(1)}, true},
		{"bad send", Entry{ID: "a", Title: "A", Send: "telepathy"}, false},
		{"bad input", Entry{ID: "a", Title: "A", Input: "morse"}, false},
		{"upper case send", Entry{ID: "a", Title: "A", Send: "ENTER"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("ok=%v, err=%v", tt.ok, err)
			}
		})
	}
}
