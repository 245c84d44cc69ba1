package features

import (
	"strconv"
	"strings"
)

// ParseIPv4 converts a dotted-quad string into sum(octet[i] << 8*(3-i)).
// It requires exactly four decimal octets in 0..255. On failure it returns 0 and false;
// callers that only see the value cannot tell a failure from 0.0.0.0.
func ParseIPv4(s string) (uint32, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 {
		return 0, false
	}

	var ip uint32
	for i, p := range parts {
		if p == "" || len(p) > 3 {
			return 0, false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return 0, false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return 0, false
		}
		ip |= uint32(n) << (8 * (3 - i))
	}
	return ip, true
}

// EncodeIP is ParseIPv4 without the failure flag.
func EncodeIP(s string) uint32 {
	ip, _ := ParseIPv4(s)
	return ip
}

// FormatIPv4 is the inverse of ParseIPv4.
func FormatIPv4(ip uint32) string {
	var b strings.Builder
	for i := 3; i >= 0; i-- {
		b.WriteString(strconv.Itoa(int(ip >> (8 * i) & 0xff)))
		if i > 0 {
			b.WriteByte('.')
		}
	}
	return b.String()
}
