// internal/driver/tunnins/definitions.go
package tunnins

import (
	"strconv"

	"tunnins-service/internal/config"
	"tunnins-service/pkg/driver"
)

// Validation patterns shown to the host for the connection fields
const (
	RegexIP   = `/^((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$/`
	RegexPort = `/^([1-9]|[1-8][0-9]|9[0-9]|[1-8][0-9]{2}|9[0-8][0-9]|99[0-9]|[1-8][0-9]{3}|9[0-8][0-9]{2}|99[0-8][0-9]|999[0-9]|[1-5][0-9]{4}|6[0-4][0-9]{3}|65[0-4][0-9]{2}|655[0-2][0-9]|6553[0-5])$/`
)

// ConfigFields returns the configuration inputs of an instance
func ConfigFields() []driver.ConfigField {
	endings := make([]driver.Choice, 0, len(LineEndings))
	for _, le := range LineEndings {
		endings = append(endings, driver.Choice{ID: le.ID, Label: le.Label})
	}

	return []driver.ConfigField{
		{
			ID:    "info",
			Type:  driver.FieldTypeStaticText,
			Label: "Information",
			Width: 12,
			Value: "This module connects to the TunninS software",
		},
		{
			ID:      "transport",
			Type:    driver.FieldTypeDropdown,
			Label:   "Transport",
			Width:   4,
			Default: config.TransportTCP,
			Choices: []driver.Choice{
				{ID: config.TransportTCP, Label: "TCP"},
				{ID: config.TransportSerial, Label: "Serial (RS-232 bridge)"},
			},
		},
		{
			ID:    "host",
			Type:  driver.FieldTypeTextInput,
			Label: "Target IP",
			Width: 6,
			Regex: RegexIP,
		},
		{
			ID:      "port",
			Type:    driver.FieldTypeTextInput,
			Label:   "Target Port",
			Width:   2,
			Default: strconv.Itoa(config.DefaultDevicePort),
			Regex:   RegexPort,
		},
		{
			ID:      "id_end",
			Type:    driver.FieldTypeDropdown,
			Label:   "Command End Character:",
			Default: DefaultLineEnding,
			Choices: endings,
		},
		{
			ID:    "serial_port",
			Type:  driver.FieldTypeTextInput,
			Label: "Serial Port",
			Width: 6,
		},
		{
			ID:      "baud_rate",
			Type:    driver.FieldTypeNumber,
			Label:   "Baud Rate",
			Width:   3,
			Default: "9600",
		},
	}
}

func cellOptions() []driver.OptionField {
	return []driver.OptionField{
		{ID: OptionRow, Type: driver.FieldTypeTextInput, Label: "Row", Default: DefaultRow},
		{ID: OptionColumn, Type: driver.FieldTypeTextInput, Label: "Column", Default: DefaultColumn},
	}
}

// ActionDefinitions returns every action in registration order
func ActionDefinitions() []driver.ActionDefinition {
	return []driver.ActionDefinition{
		{
			ID:   ActionSend,
			Name: "Send Custom Command",
			Options: []driver.OptionField{
				{
					ID:      OptionCommand,
					Type:    driver.FieldTypeTextInput,
					Label:   "Command:",
					Tooltip: "Use %hh to insert Hex codes",
				},
			},
		},
		{ID: ActionStart, Name: "Start command", Options: cellOptions()},
		{ID: ActionStop, Name: "Stop command", Options: cellOptions()},
		{ID: ActionCut, Name: "Cut command", Options: cellOptions()},
		{ID: ActionGlobalStart, Name: "Global Start", Options: []driver.OptionField{}},
		{ID: ActionGlobalStop, Name: "Global Stop", Options: []driver.OptionField{}},
		{ID: ActionGlobalCut, Name: "Global Cut", Options: []driver.OptionField{}},
		{ID: ActionGlobalStatusReply, Name: "Get Global Status Reply", Options: []driver.OptionField{}},
	}
}

// PresetDefinitions returns the ready-made buttons; TunninS ships none
func PresetDefinitions() []driver.Preset {
	return []driver.Preset{}
}
