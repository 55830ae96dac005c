package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceDecode(t *testing.T) {
	t.Run("numeric id", func(t *testing.T) {
		var i Instance
		require.NoError(t, json.Unmarshal([]byte(`{"action_id":3,"action_type":"REDIRECT","action_name":"Site","data":{"url":"https://ex.com","label":"Open"}}`), &i))
		assert.Equal(t, int64(3), i.ActionID)
		assert.Equal(t, RedirectConfig{URL: "https://ex.com", Label: "Open"}, i.Data)
	})

	t.Run("quoted id", func(t *testing.T) {
		var i Instance
		require.NoError(t, json.Unmarshal([]byte(`{"action_id":"12","action_type":"NOTIFY","data":{"message":"m"}}`), &i))
		assert.Equal(t, int64(12), i.ActionID)
	})

	t.Run("unknown tag keeps raw", func(t *testing.T) {
		var i Instance
		require.NoError(t, json.Unmarshal([]byte(`{"action_id":1,"action_type":"DANCE","data":{"x":1}}`), &i))
		assert.Nil(t, i.Data)
		assert.JSONEq(t, `{"x":1}`, string(i.Raw))
	})

	t.Run("undecodable data", func(t *testing.T) {
		var i Instance
		require.NoError(t, json.Unmarshal([]byte(`{"action_id":1,"action_type":"SHOW_GUIDE","data":{"steps":"nope"}}`), &i))
		assert.Nil(t, i.Data)
	})
}

func TestNewInstanceCopiesConfig(t *testing.T) {
	d := Definition{ID: 4, Name: "Guide", Type: ShowGuide, Config: DefaultsFor(ShowGuide)}
	inst := NewInstance(d)
	inst.Data.(GuideConfig).Steps[0].Title = "changed"
	assert.Equal(t, "Step 1", d.Config.(GuideConfig).Steps[0].Title)

	b, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"action_type":"SHOW_GUIDE"`)
	assert.Contains(t, string(b), `"action_id":4`)
}
