package suggest

import "strings"

// Reference strips the trailing parenthesized label from a suggestion so it
// can be submitted for analysis:
//
//	"John 3:16-21 (God's Love & Judgment)" -> "John 3:16-21"
//	"John 3 (Full Chapter)"                -> "John 3"
//	"Luke 10:25-37"                        -> "Luke 10:25-37"
func Reference(suggestion string) string {
	s := strings.TrimSpace(suggestion)
	if !strings.HasSuffix(s, ")") {
		return s
	}
	idx := strings.LastIndex(s, " (")
	if idx <= 0 {
		return s
	}
	return strings.TrimSpace(s[:idx])
}
