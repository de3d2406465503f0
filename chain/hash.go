package chain

import (
	"fmt"
	"unicode/utf16"
)

//HashPrefix is put in front of every display hash
const HashPrefix = "00000"

// Hash maps the input to a display hash of the form "00000" followed by ten
// hex digits. It is a 32-bit rolling hash (acc*31 + c over UTF-16 code units)
// and offers no collision or preimage resistance whatsoever.
func Hash(s string) string {
	var acc int32
	for _, c := range utf16.Encode([]rune(s)) {
		acc = (acc << 5) - acc + int32(c) //wraps like a 32-bit signed int
	}

	//widen before negating, abs(MinInt32) doesn't fit an int32
	abs := int64(acc)
	if abs < 0 {
		abs = -abs
	}

	return fmt.Sprintf("%s%010x", HashPrefix, abs)
}

//Truncate shortens a hash for display as its first and last 8 characters
func Truncate(h string) string {
	if len(h) <= 16 {
		return h
	}

	return h[:8] + "..." + h[len(h)-8:]
}
