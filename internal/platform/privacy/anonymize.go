// Package privacy masks personal data before it reaches logs.
package privacy

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// AnonymizeIP zeroes the host part of an address: the last octet for IPv4,
// everything after the /48 prefix for IPv6.
//
// Returns "invalid" for unparseable addresses and "unknown" for empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// MaskPhone keeps the area code and the last two digits:
// "(11) 91234-5678" -> "(11) *****-**78".
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}
	var b strings.Builder
	digits := 0
	total := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			total++
		}
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			b.WriteRune(r)
			continue
		}
		digits++
		if digits <= 2 || digits > total-2 {
			b.WriteRune(r)
		} else {
			b.WriteByte('*')
		}
	}
	return b.String()
}

// MaskEmail keeps the first rune of the local part and the domain.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	r, _ := utf8.DecodeRuneInString(local)
	return string(r) + "***@" + domain
}
