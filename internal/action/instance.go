package action

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Instance is the action payload attached to one assistant reply.
//
// Data is nil when the tag is unknown, when the payload is absent or when it
// does not decode as the tag's shape. Raw keeps the payload as received.
type Instance struct {
	ActionID int64           `json:"action_id"`
	Type     Type            `json:"action_type"`
	Name     string          `json:"action_name"`
	Data     Config          `json:"data"`
	Raw      json.RawMessage `json:"-"`
}

// NewInstance builds the instance a definition delivers. The data is a copy
// of the definition's config.
func NewInstance(d Definition) *Instance {
	return &Instance{ActionID: d.ID, Type: d.Type, Name: d.Name, Data: Clone(d.Config)}
}

func (i *Instance) UnmarshalJSON(b []byte) error {
	var aux struct {
		ActionID json.RawMessage `json:"action_id"`
		Type     Type            `json:"action_type"`
		Name     string          `json:"action_name"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*i = Instance{Type: aux.Type, Name: aux.Name, Raw: aux.Data}
	i.ActionID = parseID(aux.ActionID)
	if aux.Type.Known() && !isEmptyJSON(aux.Data) {
		if c, err := Decode(aux.Type, aux.Data); err == nil {
			i.Data = c
		}
	}
	return nil
}

// parseID accepts the id as a JSON number or as a quoted number, since model
// generated payloads use both. Anything else yields zero.
func parseID(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var n json.Number
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		n = json.Number(s)
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return int64(f)
	}
	return 0
}
