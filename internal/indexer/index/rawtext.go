package index

import "unicode/utf8"

// File names are arbitrary bytes on most systems, while JSON strings must be
// UTF-8. SplitRaw and JoinRaw carry such a name through JSON unchanged: valid
// UTF-8 travels as a string, anything else as base64-encoded bytes.

// SplitRaw returns s as a JSON-safe string, or as raw bytes when s is not
// valid UTF-8.
func SplitRaw(s string) (string, []byte) {
	if utf8.ValidString(s) {
		return s, nil
	}
	return "", []byte(s)
}

// JoinRaw reverses SplitRaw.
func JoinRaw(s string, raw []byte) string {
	if raw != nil {
		return string(raw)
	}
	return s
}
