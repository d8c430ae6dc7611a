// Package callerid holds the immutable caller identity value type.
//
// Asterisk reports the name and number of both ends of a call in
// several events, using the literal marker "<unknown>" when a field is
// not known. That marker is never stored; it is collapsed to the empty
// string on construction and on every replacement.
package callerid

import (
	"fmt"
	"strings"
)

const unknownMarker = "<unknown>"

// Privacy is the tri-state presentation flag of a caller identity.
type Privacy int

const (
	PrivacyUnknown Privacy = iota
	PrivacyPublic
	PrivacyPrivate
)

// CallerID is one end of a call: a directory tuple of name, number,
// account code and presentation. Values are immutable; replacement
// methods return a new value.
type CallerID struct {
	Name    string
	Number  string
	Code    int
	Privacy Privacy
}

// New creates a CallerID, normalizing unknown markers to empty strings.
func New(name, number string) CallerID {
	return CallerID{
		Name:   normalize(name),
		Number: normalize(number),
	}
}

// WithName returns a copy with the name replaced (normalized).
func (c CallerID) WithName(name string) CallerID {
	c.Name = normalize(name)
	return c
}

// WithNumber returns a copy with the number replaced (normalized).
func (c CallerID) WithNumber(number string) CallerID {
	c.Number = normalize(number)
	return c
}

// WithCode returns a copy with the account code replaced. Zero means
// no account code.
func (c CallerID) WithCode(code int) CallerID {
	c.Code = code
	return c
}

// WithPrivacy returns a copy with the presentation flag replaced.
func (c CallerID) WithPrivacy(p Privacy) CallerID {
	c.Privacy = p
	return c
}

func (c CallerID) String() string {
	tag := ""
	switch c.Privacy {
	case PrivacyPublic:
		tag = ";pub"
	case PrivacyPrivate:
		tag = ";priv"
	}
	name := strings.ReplaceAll(c.Name, `\`, `\\`)
	name = strings.ReplaceAll(name, `"`, `\"`)
	return fmt.Sprintf(`"%s" <%s%s;code=%d>`, name, c.Number, tag, c.Code)
}

// ParsePresentation maps a raw CID-CallingPres value ("allowed_not_screened",
// "prohib_passed_screen", ...) to a Privacy flag.
func ParsePresentation(pres string) Privacy {
	switch {
	case strings.HasPrefix(pres, "allowed"):
		return PrivacyPublic
	case strings.HasPrefix(pres, "prohib"):
		return PrivacyPrivate
	default:
		return PrivacyUnknown
	}
}

func normalize(s string) string {
	if s == unknownMarker {
		return ""
	}
	return s
}
