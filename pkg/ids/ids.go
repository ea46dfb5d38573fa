// Package ids builds the short human-readable identifiers printed on orders
// and receipts.
package ids

import (
	"crypto/rand"
	"io"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Source yields random bytes; crypto/rand.Reader unless a test swaps it.
type Source = io.Reader

// TimeSegment renders t as upper-case base36 Unix milliseconds.
func TimeSegment(t time.Time) string {
	return strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
}

// RandomSegment returns n upper-case base36 characters read from src.
func RandomSegment(src Source, n int) (string, error) {
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(buf), nil
}
