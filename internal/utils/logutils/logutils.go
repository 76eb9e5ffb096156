package logutils

import (
	"fmt"
	"unicode/utf8"
)

// FormatPrinter is a simple wrapper that implements the Stringer interface by
// printing an arbitrary object with a given format specifier/verb.
// Formatting only happens if the log line is actually emitted.
type FormatPrinter struct {
	verb  string
	item  any
	limit int
}

func (v FormatPrinter) String() string {
	s := fmt.Sprintf(v.verb, v.item)
	if v.limit > 0 && len(s) > v.limit {
		cut := v.limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return fmt.Sprintf("%s... (%d bytes truncated)", s[:cut], len(s)-cut)
	}
	return s
}

func Format(verb string, item any) FormatPrinter {
	return FormatPrinter{verb: verb, item: item}
}

// Truncate is like Format but cuts the output after at most limit bytes,
// never inside a UTF-8 sequence. Request and
// response bodies can be megabytes long (e.g., a full commit history).
func Truncate(limit int, verb string, item any) FormatPrinter {
	return FormatPrinter{verb: verb, item: item, limit: limit}
}
