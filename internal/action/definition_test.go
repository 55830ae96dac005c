package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionbot/internal/errs"
)

func TestDefinitionJSON(t *testing.T) {
	raw := `{"id":7,"chatbot_id":2,"name":"Book","action_type":"SHOW_FORM",
		"trigger_keywords":["book","reserve"],"description":"bookings",
		"config":{"fields":[{"name":"x","label":"X","type":"text","required":true}]},
		"is_active":true}`

	var d Definition
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, int64(7), d.ID)
	assert.Equal(t, ShowForm, d.Type)
	assert.Equal(t, []string{"book", "reserve"}, d.TriggerKeywords)
	require.IsType(t, FormConfig{}, d.Config)
	assert.Equal(t, FormField{Name: "x", Label: "X", Type: FieldText, Required: true}, d.Config.(FormConfig).Fields[0])
	assert.NoError(t, d.Validate())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	var back Definition
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, d.Config, back.Config)
	assert.Equal(t, d.TriggerKeywords, back.TriggerKeywords)
}

func TestDefinitionMissingConfigGetsDefaults(t *testing.T) {
	var d Definition
	require.NoError(t, json.Unmarshal([]byte(`{"chatbot_id":1,"name":"n","action_type":"NOTIFY","config":null}`), &d))
	assert.Equal(t, DefaultsFor(Notify), d.Config)
}

func TestDefinitionUnknownType(t *testing.T) {
	var d Definition
	err := json.Unmarshal([]byte(`{"name":"n","action_type":"DANCE"}`), &d)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDefinitionValidate(t *testing.T) {
	d := Definition{ChatbotID: 1, Name: "  ", Type: Notify, Config: DefaultsFor(Notify)}
	assert.ErrorIs(t, d.Validate(), errs.ErrValidation)

	d.Name = "Call"
	d.ChatbotID = 0
	assert.ErrorIs(t, d.Validate(), errs.ErrValidation)

	d.ChatbotID = 1
	assert.NoError(t, d.Validate())
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"book", "reserve table", "visit"}, ParseKeywords(" book, reserve table ,, visit ,"))
	assert.Empty(t, ParseKeywords(""))
	assert.Empty(t, ParseKeywords(" , ,"))
	assert.Equal(t, "a, b", JoinKeywords([]string{"a", "b"}))
}
