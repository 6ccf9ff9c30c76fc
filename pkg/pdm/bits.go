package pdm

import "strings"

// EachBit calls fn for every bit in data, bytes in order and each
// byte most significant bit first.
func EachBit(data []byte, fn func(Symbol)) {
	for _, b := range data {
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				fn(One)
			} else {
				fn(Zero)
			}
		}
	}
}

// Bits expands data into symbols in transmission order.
func Bits(data []byte) []Symbol {
	bits := make([]Symbol, 0, len(data)*8)
	EachBit(data, func(s Symbol) {
		bits = append(bits, s)
	})
	return bits
}

// ParseBits parses a string of '0' and '1', ignoring anything else
// so "0100 1000" is accepted.
func ParseBits(str string) []Symbol {
	bits := make([]Symbol, 0, len(str))
	for _, c := range str {
		switch c {
		case '0':
			bits = append(bits, Zero)
		case '1':
			bits = append(bits, One)
		}
	}
	return bits
}

// FormatBits renders symbols as a '0'/'1' string.
func FormatBits(bits []Symbol) string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, s := range bits {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// FrameBytes groups bits into bytes, first bit most significant.
// A trailing group shorter than 8 bits is dropped.
func FrameBytes(bits []Symbol) []byte {
	out := make([]byte, len(bits)/8)
	for n := range out {
		var b byte
		for _, s := range bits[n*8 : n*8+8] {
			b = b<<1 | byte(s&1)
		}
		out[n] = b
	}
	return out
}

// Frame decodes bits into text, mapping each byte to the character
// with that code point.
func Frame(bits []Symbol) string {
	data := FrameBytes(bits)
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

// Trailing returns the number of bits Frame drops.
func Trailing(bits []Symbol) int {
	return len(bits) % 8
}
