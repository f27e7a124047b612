// Package formats implements the named string format checks used by schema
// validation: email, url, date, datetime, uuid, ipv4, ipv6 and string.
package formats

import (
	"fmt"
	"net/netip"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format identifies a named string format.
type Format string

const (
	Email    Format = "email"
	URL      Format = "url"
	Date     Format = "date"
	DateTime Format = "datetime"
	UUID     Format = "uuid"
	IPv4     Format = "ipv4"
	IPv6     Format = "ipv6"
	String   Format = "string"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlPattern      = regexp.MustCompile(`^https?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&/=]*)$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d{3})?(?:Z|[+-]\d{2}:\d{2})$`)
	ipv4Pattern     = regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
)

type checker struct {
	check   func(string) bool
	message string
}

var checkers = map[Format]checker{
	Email:    {emailPattern.MatchString, "Must be a valid email address"},
	URL:      {urlPattern.MatchString, "Must be a valid URL"},
	Date:     {isDate, "Must be a valid date (YYYY-MM-DD)"},
	DateTime: {isDateTime, "Must be a valid ISO 8601 datetime"},
	UUID:     {isUUID, "Must be a valid UUID"},
	IPv4:     {ipv4Pattern.MatchString, "Must be a valid IPv4 address"},
	IPv6:     {isIPv6, "Must be a valid IPv6 address"},
	String:   {func(string) bool { return true }, "Must be a string"},
}

// Known reports whether f names a supported format.
func Known(f Format) bool {
	_, ok := checkers[f]
	return ok
}

// Names returns the supported format identifiers in sorted order.
func Names() []string {
	out := make([]string, 0, len(checkers))
	for f := range checkers {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}

// Check reports whether s conforms to format f. It returns an error only
// when f is not a known format.
func Check(f Format, s string) (bool, error) {
	c, ok := checkers[f]
	if !ok {
		return false, &UnknownFormatError{Format: f}
	}
	return c.check(s), nil
}

// Message returns the human-readable failure message for f.
func Message(f Format) string {
	if c, ok := checkers[f]; ok {
		return c.message
	}
	return fmt.Sprintf("Unknown format %q", string(f))
}

// UnknownFormatError is returned by Check for unsupported format names.
type UnknownFormatError struct {
	Format Format
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format %q (supported: %s)", string(e.Format), strings.Join(Names(), ", "))
}

// isDate requires both the YYYY-MM-DD shape and a real calendar date.
func isDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func isDateTime(s string) bool {
	if !dateTimePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// isUUID accepts the canonical 36-character form of RFC 4122 versions 1-5.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	if v := id.Version(); v < 1 || v > 5 {
		return false
	}
	return id.Variant() == uuid.RFC4122
}

// isIPv6 accepts only the full eight-group form; "::" compression and zones
// are rejected.
func isIPv6(s string) bool {
	if strings.Count(s, ":") != 7 || strings.Contains(s, "::") {
		return false
	}
	for _, group := range strings.Split(s, ":") {
		if len(group) < 1 || len(group) > 4 {
			return false
		}
	}
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is6() && addr.Zone() == ""
}
