package check

import "regexp"

// emailPattern is a practical approximation of RFC 5322: dotted or quoted
// local part, then a dotted-label domain with an alphabetic TLD of at least
// two letters, or a bracketed address literal.
//
// The general-address branch of the literal uses \x21-\x5a\x53-\x7f, so unlike
// the quoted local part it admits '[', '\\' and ']'. Do not tighten it: the
// accept/reject boundary is part of the scoring contract.
var emailPattern = regexp.MustCompile(
	`^(?:[a-zA-Z0-9!#$%&'*+/=?^_\x60{|}~-]+(?:\.[a-zA-Z0-9!#$%&'*+/=?^_\x60{|}~-]+)*` +
		`|"(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")` +
		`@(?:(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}` +
		`|\[(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
		`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?` +
		`|[a-zA-Z0-9-]*[a-zA-Z0-9]:(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])$`,
)

// Syntax reports whether the whole address matches the syntax pattern.
// It is applied to the original string, not to the split parts.
func Syntax(email string) bool {
	return emailPattern.MatchString(email)
}
