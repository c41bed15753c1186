// Package email normalizes and checks contact email addresses.
package email

import (
	"net/mail"
	"strings"
)

// Normalize trims and lowercases an address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValid reports whether address is a bare addr-spec with a dotted domain.
// Display-name forms ("Ann <ann@x.io>") are rejected.
func IsValid(address string) bool {
	if address == "" || len(address) > 254 {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address || parsed.Name != "" {
		return false
	}
	domain := Domain(address)
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// Domain returns the lowercased part after the last '@', or "".
func Domain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}
