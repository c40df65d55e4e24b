package parse

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/net/idna"
)

const (
	// MaxLength is the longest accepted address, in UTF-16 code units.
	MaxLength = 320
	// MaxLocalLength is the longest accepted local part, in UTF-16 code units.
	MaxLocalLength = 64
)

// Structural failures, worded for end users.
const (
	ErrEmpty        = "Email must be a non-empty string."
	ErrTooLong      = "Email address exceeds maximum length of 320 characters."
	ErrMissingAt    = "Email must contain an @ symbol."
	ErrLocalTooLong = "Local part exceeds maximum length of 64 characters."
)

// Address is the structural split of a raw email string.
// The check/ package and the validator receive this as parameter.
type Address struct {
	Raw         string // the input, unmodified
	Local       string // everything before the last @
	Domain      string // everything after the last @, lower-cased
	ASCIIDomain string // Domain in IDNA ASCII form, used for DNS queries
	Parsed      bool   // true once Local and Domain are populated
	Err         string // non-empty when the structure is rejected
}

// Failed reports whether the address was rejected structurally.
func (a Address) Failed() bool {
	return a.Err != ""
}

// Split extracts the local part and domain from raw and enforces the
// length limits. The last @ is used so that quoted local parts containing
// an @ still split on the real separator.
func Split(raw string) Address {
	a := Address{Raw: raw}

	if raw == "" {
		a.Err = ErrEmpty
		return a
	}
	if Length(raw) > MaxLength {
		a.Err = ErrTooLong
		return a
	}

	atIdx := strings.LastIndex(raw, "@")
	if atIdx < 1 {
		a.Err = ErrMissingAt
		return a
	}

	a.Local = raw[:atIdx]
	a.Domain = strings.ToLower(raw[atIdx+1:])
	a.ASCIIDomain = toASCII(a.Domain)
	a.Parsed = true

	if Length(a.Local) > MaxLocalLength {
		a.Err = ErrLocalTooLong
	}
	return a
}

// Length counts s in UTF-16 code units, the unit browsers and JSON clients
// use for string length. Characters outside the Basic Multilingual Plane
// count twice; invalid UTF-8 bytes count once each.
func Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// toASCII converts an internationalized domain to its Punycode form.
// Plain ASCII domains and domains that fail IDNA validation are returned as-is.
func toASCII(domain string) string {
	for i := 0; i < len(domain); i++ {
		if domain[i] > 127 {
			a, err := idna.Lookup.ToASCII(domain)
			if err != nil {
				return domain
			}
			return a
		}
	}
	return domain
}
