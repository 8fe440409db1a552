package storage

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	maxOriginalLen = 100
	entropyLen     = 16
	fallbackName   = "file"
)

var (
	unsafeChars  = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	validBlobRe  = regexp.MustCompile(`^[0-9]+-[0-9a-z]+-[A-Za-z0-9._-]+$`)
	separatorsRe = regexp.MustCompile(`[/\\]`)
)

// BlobName returns the stored name for an upload received at now:
// <epochMillis>-<entropy>-<sanitized original>.
func BlobName(now time.Time, original string) string {
	// Fresh 80-bit entropy per name; a monotonic source only varies the low
	// bits within one millisecond.
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
	entropy := strings.ToLower(id[10:])
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), entropy, SanitizeName(original))
}

// SanitizeName strips any directory part from a client-supplied file name and
// replaces characters outside [A-Za-z0-9._-] with underscores.
func SanitizeName(original string) string {
	parts := separatorsRe.Split(original, -1)
	base := parts[len(parts)-1]
	base = unsafeChars.ReplaceAllString(base, "_")
	if len(base) > maxOriginalLen {
		// Keep the tail so the extension survives.
		base = base[len(base)-maxOriginalLen:]
	}
	if base == "" || strings.Trim(base, ".") == "" {
		return fallbackName
	}
	return base
}

// ValidName reports whether name has the shape produced by BlobName.
func ValidName(name string) bool {
	return validBlobRe.MatchString(name)
}

// NameTime extracts the receive time encoded at the start of a blob name.
func NameTime(name string) (time.Time, bool) {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
