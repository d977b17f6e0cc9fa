package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BookingRefPrefix  = "BK"
	PackageRefPrefix  = "PKG"
	referenceSuffixSz = 5
)

// NewReference returns a public booking code: prefix, unix millis and five
// upper-case hex characters, e.g. BK1717236000000A1B2C.
func NewReference(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:referenceSuffixSz]
	return fmt.Sprintf("%s%d%s", prefix, now.UnixMilli(), suffix)
}
