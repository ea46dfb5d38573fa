package ids

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"
)

func TestTimeSegment(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	if got := TimeSegment(ts); got != "LOYW3V28" {
		t.Fatalf("unexpected segment %q", got)
	}
}

func TestRandomSegment(t *testing.T) {
	got, err := RandomSegment(bytes.NewReader([]byte{0, 1, 35, 36, 71}), 5)
	if err != nil {
		t.Fatalf("random segment: %v", err)
	}
	if got != "01Z0Z" {
		t.Fatalf("unexpected segment %q", got)
	}

	live, err := RandomSegment(nil, 8)
	if err != nil {
		t.Fatalf("random segment: %v", err)
	}
	if !regexp.MustCompile(`^[A-Z0-9]{8}$`).MatchString(live) {
		t.Fatalf("unexpected alphabet in %q", live)
	}
}

func TestRandomSegmentShortRead(t *testing.T) {
	_, err := RandomSegment(bytes.NewReader([]byte{1}), 4)
	if err == nil {
		t.Fatal("expected error on short read")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("unexpected error %v", err)
	}
}
