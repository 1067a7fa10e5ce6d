package provision

// MaxBodySize is the capacity of the decode buffer and therefore the largest
// form body the portal accepts.
const MaxBodySize = 512

// invalidByteThreshold marks the first byte value that cannot appear in a
// form-urlencoded body. Decoding stops there even if more input remains.
const invalidByteThreshold = 0x7F

// Decode decodes a percent/plus encoded form body.
//
// Exactly len(src) bytes are considered. Decoding also stops at the first NUL
// or non-ASCII byte, which never appear in a well-formed body. A '%' that is
// not followed by two hex digits is copied through unchanged.
func Decode(src []byte) ([]byte, error) {
	if len(src) > MaxBodySize {
		return nil, NewInputTooLargeError("form body", len(src), MaxBodySize)
	}

	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		c := src[i]
		if c == 0 || c >= invalidByteThreshold {
			break
		}

		switch {
		case c == '%' && i+2 < len(src) && isHex(src[i+1]) && isHex(src[i+2]):
			dst = append(dst, unhex(src[i+1])<<4|unhex(src[i+2]))
			i += 3
		case c == '+':
			dst = append(dst, ' ')
			i++
		default:
			dst = append(dst, c)
			i++
		}
	}

	return dst, nil
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case 'a' <= c && c <= 'f':
		return true
	case 'A' <= c && c <= 'F':
		return true
	}
	return false
}

// unhex converts a hex digit to its nibble value; c must satisfy isHex
func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
