package deck

import (
	"encoding/json"
	"fmt"
)

// Action is what a button does when it is invoked.
// The set of implementations is closed: Shortcut and TextAndEnter.
type Action interface {
	actionType() string
}

// Shortcut presses a key combination given as symbolic key names.
type Shortcut struct {
	Keys []string `json:"keys"`
}

func (Shortcut) actionType() string { return "shortcut" }

// TextAndEnter types Text and submits it with the Return key.
type TextAndEnter struct {
	Text string `json:"text"`
}

func (TextAndEnter) actionType() string { return "text_and_enter" }

type actionEnvelope struct {
	Type string   `json:"type"`
	Keys []string `json:"keys,omitempty"`
	Text *string  `json:"text,omitempty"`
}

func MarshalAction(a Action) ([]byte, error) {
	switch a := a.(type) {
	case Shortcut:
		keys := a.Keys
		if keys == nil {
			keys = []string{}
		}
		return json.Marshal(struct {
			Type string   `json:"type"`
			Keys []string `json:"keys"`
		}{a.actionType(), keys})
	case TextAndEnter:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{a.actionType(), a.Text})
	case nil:
		return nil, fmt.Errorf("action is not set")
	default:
		return nil, fmt.Errorf("unsupported action %T", a)
	}
}

func UnmarshalAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}
	switch env.Type {
	case Shortcut{}.actionType():
		return Shortcut{Keys: env.Keys}, nil
	case TextAndEnter{}.actionType():
		if env.Text == nil {
			return nil, fmt.Errorf("text_and_enter action requires text")
		}
		return TextAndEnter{Text: *env.Text}, nil
	case "":
		return nil, fmt.Errorf("action type is missing")
	default:
		return nil, fmt.Errorf("unknown action type %q", env.Type)
	}
}

type buttonFields Button

type buttonJSON struct {
	buttonFields
	Action json.RawMessage `json:"action"`
}

func (b Button) MarshalJSON() ([]byte, error) {
	action, err := MarshalAction(b.Action)
	if err != nil {
		return nil, fmt.Errorf("button %q: %w", b.ID, err)
	}
	return json.Marshal(buttonJSON{buttonFields: buttonFields(b), Action: action})
}

func (b *Button) UnmarshalJSON(data []byte) error {
	var raw buttonJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Action) == 0 {
		return fmt.Errorf("button %q: action is missing", raw.ID)
	}
	action, err := UnmarshalAction(raw.Action)
	if err != nil {
		return fmt.Errorf("button %q: %w", raw.ID, err)
	}
	*b = Button(raw.buttonFields)
	b.Action = action
	if b.Repeat != nil && b.Repeat.IntervalMS == 0 {
		b.Repeat.IntervalMS = DefaultRepeatInterval
	}
	return nil
}
