// internal/driver/tunnins/line_ending.go
package tunnins

import "fmt"

// LineEnding is a named command terminator
type LineEnding struct {
	ID       string
	Sequence string
	Label    string
}

// DefaultLineEnding is CRLF
const DefaultLineEnding = "crlf"

// LineEndings lists the terminators in dropdown order
var LineEndings = []LineEnding{
	{ID: "none", Sequence: "", Label: "None"},
	{ID: "lf", Sequence: "\n", Label: `LF - \n (Common UNIX/Mac)`},
	{ID: "crlf", Sequence: "\r\n", Label: `CRLF - \r\n (Common Windows)`},
	{ID: "cr", Sequence: "\r", Label: `CR - \r (Old MacOS)`},
	{ID: "null", Sequence: "\x00", Label: `NULL - \x00 (Can happen)`},
	{ID: "lfcr", Sequence: "\n\r", Label: `LFCR - \n\r (Just stupid)`},
}

// LookupLineEnding resolves a line ending by id. An empty id selects the default.
func LookupLineEnding(id string) (LineEnding, error) {
	if id == "" {
		id = DefaultLineEnding
	}
	for _, le := range LineEndings {
		if le.ID == id {
			return le, nil
		}
	}
	return LineEnding{}, fmt.Errorf("unknown line ending: %q", id)
}
