package webhook

import (
	"encoding/json"
	"fmt"
)

// Interaction types delivered by the chat platform.
const (
	TypeViewSubmission = "view_submission"
	TypeBlockActions   = "block_actions"
)

// User identifies the person who triggered the interaction.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// View is a submitted modal form: the callback ID names the form, the
// private metadata carries the request/stage the caller stashed when
// opening it, and Values holds the field inputs keyed by block ID.
type View struct {
	CallbackID      string            `json:"callback_id"`
	PrivateMetadata string            `json:"private_metadata"`
	Values          map[string]string `json:"values"`
}

// Action is one button/menu click.
type Action struct {
	ActionID string `json:"action_id"`
	Value    string `json:"value"`
}

// Interaction is an inbound interaction payload, either a form
// submission or a set of actions. MessageID identifies the card the
// actions were clicked on, when the platform provides it.
type Interaction struct {
	Type      string   `json:"type"`
	User      User     `json:"user"`
	TriggerID string   `json:"trigger_id"`
	ChannelID string   `json:"channel_id,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
	View      *View    `json:"view,omitempty"`
	Actions   []Action `json:"actions,omitempty"`
}

// ParseInteraction decodes and minimally validates a payload.
func ParseInteraction(body []byte) (*Interaction, error) {
	var itc Interaction
	if err := json.Unmarshal(body, &itc); err != nil {
		return nil, fmt.Errorf("failed to parse interaction payload: %w", err)
	}
	switch itc.Type {
	case TypeViewSubmission:
		if itc.View == nil {
			return nil, fmt.Errorf("view_submission payload without view")
		}
	case TypeBlockActions:
		if len(itc.Actions) == 0 {
			return nil, fmt.Errorf("block_actions payload without actions")
		}
	default:
		return nil, fmt.Errorf("unsupported interaction type %q", itc.Type)
	}
	return &itc, nil
}
