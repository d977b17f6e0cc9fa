package model

import (
	"regexp"
	"testing"
	"time"
)

func TestNewReference(t *testing.T) {
	now := time.UnixMilli(1717236000000)
	pattern := regexp.MustCompile(`^BK1717236000000[0-9A-F]{5}$`)

	a := NewReference(BookingRefPrefix, now)
	b := NewReference(BookingRefPrefix, now)
	if !pattern.MatchString(a) {
		t.Errorf("unexpected reference %q", a)
	}
	if a == b {
		t.Error("references minted in the same millisecond must differ")
	}
}
