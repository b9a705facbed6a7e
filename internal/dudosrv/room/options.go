package room

import "encoding/json"

const (
	MinDice = 3
	MaxDice = 20

	MinDiceValue = 3
	MaxDiceValue = 9
)

// Options is the room configuration. It is immutable during play; the
// set-option verb mutates it in the lobby only.
type Options struct {
	MaxDice            int  `json:"max-dice"`
	MaxDiceValue       int  `json:"max-dice-value"`
	AllowCalza         bool `json:"allow-calza"`
	RollDiceAtStart    bool `json:"roll-dice-at-start"`
	LosersSeeDice      bool `json:"losers-see-dice"`
	ShowResultsTable   bool `json:"show-results-table"`
	RandomMaxDiceValue bool `json:"random-max-dice-value"`
}

func DefaultOptions() Options {
	return Options{
		MaxDice:          5,
		MaxDiceValue:     6,
		AllowCalza:       true,
		RollDiceAtStart:  true,
		LosersSeeDice:    true,
		ShowResultsTable: true,
	}
}

// apply validates an option name/value pair and mutates o on success.
// The returned payload echoes the accepted option for broadcast.
func (o *Options) apply(option string, value json.RawMessage) (map[string]interface{}, error) {
	switch option {
	case "max-dice":
		var ival int
		if err := json.Unmarshal(value, &ival); err != nil {
			return nil, ErrValidation
		}
		if ival < MinDice || ival > MaxDice {
			return nil, ErrValidation
		}
		o.MaxDice = ival
		return map[string]interface{}{option: ival}, nil
	case "max-dice-value":
		var ival int
		if err := json.Unmarshal(value, &ival); err != nil {
			return nil, ErrValidation
		}
		if ival < MinDiceValue || ival > MaxDiceValue {
			return nil, ErrValidation
		}
		o.MaxDiceValue = ival
		return map[string]interface{}{option: ival}, nil
	case "allow-calza", "roll-dice-at-start", "losers-see-dice",
		"show-results-table", "random-max-dice-value":
		var bval bool
		if err := json.Unmarshal(value, &bval); err != nil {
			return nil, ErrValidation
		}
		switch option {
		case "allow-calza":
			o.AllowCalza = bval
		case "roll-dice-at-start":
			o.RollDiceAtStart = bval
		case "losers-see-dice":
			o.LosersSeeDice = bval
		case "show-results-table":
			o.ShowResultsTable = bval
		case "random-max-dice-value":
			o.RandomMaxDiceValue = bval
		}
		return map[string]interface{}{option: bval}, nil
	default:
		return nil, ErrValidation
	}
}
