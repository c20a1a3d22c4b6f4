// internal/driver/tunnins/command.go
package tunnins

import (
	"errors"
	"fmt"
	"unicode/utf16"

	"tunnins-service/pkg/driver"
)

// Action ids
const (
	ActionSend              = "send"
	ActionStart             = "start"
	ActionStop              = "stop"
	ActionCut               = "cut"
	ActionGlobalStart       = "globalStart"
	ActionGlobalStop        = "globalStop"
	ActionGlobalCut         = "globalCut"
	ActionGlobalStatusReply = "globalStatusReply"
)

// Option ids and their defaults
const (
	OptionCommand = "id_send"
	OptionRow     = "row"
	OptionColumn  = "column"

	DefaultRow    = "A"
	DefaultColumn = "1"
)

// ErrUnknownAction is returned for action ids the device does not support
var ErrUnknownAction = errors.New("unknown action")

// fixedCommands are the actions that take no options
var fixedCommands = map[string]string{
	ActionGlobalStart:       "GLOBSTART",
	ActionGlobalStop:        "GLOBSTOP",
	ActionGlobalCut:         "GLOBCUT",
	ActionGlobalStatusReply: "GET_STA",
}

// cellCommands address a single cell by row and column
var cellCommands = map[string]string{
	ActionStart: "START",
	ActionStop:  "STOP",
	ActionCut:   "CUT",
}

// Command is a device command as UTF-16 code units. Escapes may produce
// values outside ASCII, so the text is kept unencoded until it hits the wire.
type Command []uint16

// String renders the command for logs and the command history
func (c Command) String() string {
	return string(utf16.Decode(c))
}

// Encode appends the terminator and converts every code unit to its low
// byte, matching a latin1 encoding of the text.
func (c Command) Encode(ending LineEnding) []byte {
	terminator := utf16.Encode([]rune(ending.Sequence))
	payload := make([]byte, 0, len(c)+len(terminator))
	for _, u := range c {
		payload = append(payload, byte(u))
	}
	for _, u := range terminator {
		payload = append(payload, byte(u))
	}
	return payload
}

// BuildCommand translates an action into its command text
func BuildCommand(action *driver.Action) (Command, error) {
	if action == nil {
		return nil, fmt.Errorf("%w: nil action", ErrUnknownAction)
	}

	if text, ok := fixedCommands[action.ID]; ok {
		return Command(utf16.Encode([]rune(text))), nil
	}

	if verb, ok := cellCommands[action.ID]; ok {
		row := Unescape(action.Option(OptionRow, DefaultRow))
		column := Unescape(action.Option(OptionColumn, DefaultColumn))

		cmd := Command(utf16.Encode([]rune(verb + " [")))
		cmd = append(cmd, row...)
		cmd = append(cmd, column...)
		cmd = append(cmd, ']')
		return cmd, nil
	}

	if action.ID == ActionSend {
		return Command(Unescape(action.Option(OptionCommand, ""))), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.ID)
}
