package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", got, want)
	}
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	c, err := ParseCursor("  ")
	if err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %+v err=%v", c, err)
	}
	if _, err := ParseCursor("%%%"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(500) != MaxLimit || NormalizeLimit(7) != 7 {
		t.Fatal("unexpected normalized limits")
	}
}

func TestTrim(t *testing.T) {
	ids := []int{1, 2, 3}
	key := func(i int) Cursor { return Cursor{CreatedAt: time.Unix(int64(i), 0), ID: uuid.Nil} }

	page, next := Trim(ids, 2, key)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected trimmed page with cursor, got %v %q", page, next)
	}
	c, err := ParseCursor(next)
	if err != nil || c.CreatedAt.Unix() != 2 {
		t.Fatalf("cursor should point at last kept row, got %+v err=%v", c, err)
	}

	page, next = Trim(ids, 5, key)
	if len(page) != 3 || next != "" {
		t.Fatalf("expected last page, got %v %q", page, next)
	}
}
