package render

import (
	"bytes"
	"unicode/utf8"
)

// DefaultSniffBytes is how much of a file IsBinary looks at by default
const DefaultSniffBytes = 8000

// IsBinary reports whether sample looks like binary data: it contains a NUL
// byte or is not valid UTF-8. A rune cut off at the end of the sample is ignored.
func IsBinary(sample []byte) bool {
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	trimmed := sample
	for i := 0; i < utf8.UTFMax-1 && len(trimmed) > 0; i++ {
		if utf8.Valid(trimmed) {
			return false
		}
		r, _ := utf8.DecodeLastRune(trimmed)
		if r != utf8.RuneError {
			break
		}
		trimmed = trimmed[:len(trimmed)-1]
	}
	return !utf8.Valid(trimmed)
}

// Sniff returns at most n leading bytes of content
func Sniff(content []byte, n int) []byte {
	if n <= 0 {
		n = DefaultSniffBytes
	}
	if len(content) > n {
		return content[:n]
	}
	return content
}
