package pskstore

import (
	"fmt"
	"strings"
)

// EscapeSSID renders raw SSID bytes using the on-disk escaping rules:
// backslash and space are escaped with a leading backslash, and any byte
// at or below 0x20 is rendered as \xHH. Everything else is literal,
// including bytes above 0x7f — SSIDs are opaque byte strings, not text.
func EscapeSSID(ssid []byte) string {
	var b strings.Builder
	for _, c := range ssid {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == ' ':
			b.WriteString(`\ `)
		case c <= 0x20:
			fmt.Fprintf(&b, `\x%02X`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// UnescapeSSID reverses EscapeSSID. It is lenient about malformed escapes
// at the very end of the string (a lone trailing backslash is taken
// literally) since the store must never panic on hand-edited files.
func UnescapeSSID(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			out = append(out, c)
			continue
		}
		switch s[i+1] {
		case '\\':
			out = append(out, '\\')
			i++
		case ' ':
			out = append(out, ' ')
			i++
		case 'x':
			if i+3 < len(s) {
				if v, ok := hexByte(s[i+2], s[i+3]); ok {
					out = append(out, v)
					i += 3
					continue
				}
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}
