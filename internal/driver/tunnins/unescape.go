// internal/driver/tunnins/unescape.go
package tunnins

import "unicode/utf16"

// Unescape decodes %hh and %uhhhh escape sequences into UTF-16 code units.
// A '%' that does not start a valid sequence is kept as is.
func Unescape(s string) []uint16 {
	in := utf16.Encode([]rune(s))
	out := make([]uint16, 0, len(in))

	for i := 0; i < len(in); i++ {
		c := in[i]
		if c != '%' {
			out = append(out, c)
			continue
		}

		if i+5 < len(in) && in[i+1] == 'u' {
			if v, ok := hexValue(in[i+2 : i+6]); ok {
				out = append(out, v)
				i += 5
				continue
			}
		}

		if i+2 < len(in) {
			if v, ok := hexValue(in[i+1 : i+3]); ok {
				out = append(out, v)
				i += 2
				continue
			}
		}

		out = append(out, c)
	}

	return out
}

func hexValue(units []uint16) (uint16, bool) {
	var v uint16
	for _, u := range units {
		var d uint16
		switch {
		case u >= '0' && u <= '9':
			d = u - '0'
		case u >= 'a' && u <= 'f':
			d = u - 'a' + 10
		case u >= 'A' && u <= 'F':
			d = u - 'A' + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}
