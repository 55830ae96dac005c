package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionbot/internal/action"
	"actionbot/internal/types"
)

func TestActionConversion(t *testing.T) {
	d := action.Definition{
		ID: 3, ChatbotID: 1, Name: "Book", Type: action.ShowForm,
		TriggerKeywords: []string{"book"},
		Config: action.FormConfig{Fields: []action.FormField{
			{Name: "x", Label: "X", Type: action.FieldText, Required: true},
		}},
		IsActive: true,
	}
	row, err := ActionFrom(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":[{"name":"x","label":"X","type":"text","required":true}]}`, string(row.Config))

	back, err := row.Definition()
	require.NoError(t, err)
	assert.Equal(t, d, back)

	row.Config = nil
	back, err = row.Definition()
	require.NoError(t, err)
	assert.Equal(t, action.DefaultsFor(action.ShowForm), back.Config)
}

func TestChatbotApplyAndView(t *testing.T) {
	c := Chatbot{Name: "Support", LLMProvider: "claude", IsActive: true}
	key := "sk-ant-0123456789abcdef"
	inactive := false
	c.Apply(types.ChatbotRequest{APIKey: &key, IsActive: &inactive})
	assert.Equal(t, "Support", c.Name)
	assert.False(t, c.IsActive)

	v := c.View(nil)
	assert.True(t, v.APIKey.IsSet)
	assert.NotContains(t, v.APIKey.MaskedKey, "0123456789ab")
}

func TestMessageInstance(t *testing.T) {
	var m Message
	assert.Nil(t, m.Instance())
	require.NoError(t, m.SetAction(&action.Instance{ActionID: 2, Type: action.Notify, Name: "n", Data: action.NotifyConfig{Message: "m"}}))
	inst := m.Instance()
	require.NotNil(t, inst)
	assert.Equal(t, action.NotifyConfig{Message: "m"}, inst.Data)
}
