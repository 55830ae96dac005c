package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionbot/internal/action"
	"actionbot/internal/errs"
	"actionbot/internal/types"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []types.SubmitActionRequest
	err   error
	res   types.SubmitResult
}

func (f *fakeSubmitter) SubmitAction(_ context.Context, req types.SubmitActionRequest) (types.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func formInstance() *action.Instance {
	return &action.Instance{
		ActionID: 11,
		Type:     action.ShowForm,
		Name:     "Booking",
		Data: action.FormConfig{Fields: []action.FormField{
			{Name: "name", Label: "Name", Type: action.FieldText, Required: true},
			{Name: "slot", Label: "Slot", Type: action.FieldSelect, Required: true, Options: []string{"am", "pm"}},
			{Name: "note", Label: "Note", Type: action.FieldTextarea},
		}},
	}
}

func TestNewDispatch(t *testing.T) {
	assert.Nil(t, New(nil, Options{}))
	assert.Nil(t, New(&action.Instance{Type: "DANCE"}, Options{}))
	assert.Nil(t, New(&action.Instance{}, Options{}))

	for _, typ := range action.Types() {
		rt := New(&action.Instance{Type: typ, Name: "n"}, Options{})
		require.NotNil(t, rt, typ)
		assert.Equal(t, typ, rt.Type())
	}
}

func TestFormRequiredBlocksNetwork(t *testing.T) {
	sub := &fakeSubmitter{res: types.SubmitResult{"message": "ok"}}
	f := New(formInstance(), Options{ChatbotID: 1, Submitter: sub}).(*Form)

	require.NoError(t, f.Set("name", "   "))
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Empty(t, sub.calls)
	assert.Equal(t, Filling, f.State())
	assert.Equal(t, []string{"name", "slot"}, f.Missing())
}

func TestFormSubmitIsTerminal(t *testing.T) {
	sub := &fakeSubmitter{res: types.SubmitResult{"id": float64(3), "message": "Thanks"}}
	var completed []types.SubmitResult
	f := New(formInstance(), Options{
		ChatbotID:  1,
		SessionID:  func() string { return "sess-2" },
		Submitter:  sub,
		OnComplete: func(r types.SubmitResult) { completed = append(completed, r) },
	}).(*Form)

	require.NoError(t, f.Set("name", "Kim"))
	require.NoError(t, f.Set("slot", "pm"))
	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Thanks", res.Message())
	assert.Equal(t, Submitted, f.State())

	require.Len(t, sub.calls, 1)
	assert.Equal(t, types.SubmitActionRequest{
		ChatbotID: 1, ActionID: 11, SessionID: "sess-2",
		FormData: map[string]string{"name": "Kim", "slot": "pm"},
	}, sub.calls[0])

	require.Len(t, completed, 1)
	assert.Equal(t, res, completed[0])

	assert.ErrorIs(t, f.Set("name", "Lee"), ErrNotFilling)
	assert.Equal(t, "Kim", f.Value("name"))
	_, err = f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotFilling)
	assert.Len(t, sub.calls, 1)
}

func TestFormFailureKeepsValues(t *testing.T) {
	sub := &fakeSubmitter{err: errs.ErrNetwork}
	called := false
	f := New(formInstance(), Options{Submitter: sub, OnComplete: func(types.SubmitResult) { called = true }}).(*Form)
	require.NoError(t, f.Set("name", "Kim"))
	require.NoError(t, f.Set("slot", "am"))

	_, err := f.Submit(context.Background())
	assert.True(t, errors.Is(err, errs.ErrNetwork))
	assert.Equal(t, Filling, f.State())
	assert.Equal(t, map[string]string{"name": "Kim", "slot": "am"}, f.Values())
	assert.False(t, called)

	sub.err = nil
	sub.res = types.SubmitResult{}
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, called)
}

func TestFormSelectSemantics(t *testing.T) {
	f := New(formInstance(), Options{}).(*Form)
	assert.ErrorIs(t, f.Set("slot", "noon"), errs.ErrValidation)
	require.NoError(t, f.Set("slot", "am"))
	require.NoError(t, f.Set("slot", ""))
	assert.Equal(t, "", f.Value("slot"))
	assert.ErrorIs(t, f.Set("missing", "x"), errs.ErrValidation)
}

func TestFormPrefill(t *testing.T) {
	inst := formInstance()
	cfg := inst.Data.(action.FormConfig)
	cfg.Prefill = map[string]string{"name": "Kim", "slot": "noon", "other": "x"}
	inst.Data = cfg

	f := New(inst, Options{}).(*Form)
	assert.Equal(t, map[string]string{"name": "Kim"}, f.Values())
}

func TestFormEmptyDataUsesDefaults(t *testing.T) {
	f := New(&action.Instance{Type: action.ShowForm}, Options{}).(*Form)
	assert.Equal(t, action.DefaultsFor(action.ShowForm).(action.FormConfig).Fields, f.Fields())

	f = New(&action.Instance{Type: action.ShowForm, Data: action.FormConfig{}}, Options{}).(*Form)
	assert.Len(t, f.Fields(), 6)
}

func TestGuideNavigation(t *testing.T) {
	g := New(&action.Instance{Type: action.ShowGuide, Data: action.GuideConfig{Steps: []action.GuideStep{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}}}, Options{}).(*Guide)

	assert.Equal(t, 0, g.Cursor())
	assert.True(t, g.HasNext())
	assert.True(t, g.Next())
	assert.Equal(t, 1, g.Cursor())
	assert.True(t, g.Next())
	assert.Equal(t, 2, g.Cursor())
	assert.False(t, g.HasNext())
	assert.True(t, g.Complete())
	assert.False(t, g.Next())

	assert.True(t, g.Select(0))
	assert.False(t, g.Complete())
	assert.Equal(t, StepCurrent, g.StepState(0))
	assert.Equal(t, StepPending, g.StepState(2))

	assert.False(t, g.Select(3))
	assert.False(t, g.Select(-1))
	assert.Equal(t, 0, g.Cursor())

	assert.True(t, g.Select(2))
	assert.Equal(t, StepDone, g.StepState(1))
	assert.Equal(t, "c", g.Current().Title)
}

func TestRedirectOpensExactURL(t *testing.T) {
	var opened []string
	r := New(&action.Instance{
		ActionID: 1, Type: action.Redirect, Name: "Site",
		Data: action.RedirectConfig{URL: "https://ex.com", Label: "Open"},
	}, Options{Opener: func(u string) error { opened = append(opened, u); return nil }}).(*Redirect)

	assert.Equal(t, "Open", r.Label())
	require.NoError(t, r.Open())
	assert.Equal(t, []string{"https://ex.com"}, opened)
}

func TestRedirectLabelFallback(t *testing.T) {
	r := New(&action.Instance{Type: action.Redirect, Name: "Site", Data: action.RedirectConfig{URL: "https://ex.com"}}, Options{}).(*Redirect)
	assert.Equal(t, "Site", r.Label())
	assert.Error(t, r.Open())

	r = New(&action.Instance{Type: action.Redirect, Data: action.RedirectConfig{URL: "https://ex.com"}}, Options{}).(*Redirect)
	assert.Equal(t, "Open link", r.Label())
}

func TestRedirectWithoutDataOpensNothing(t *testing.T) {
	var opened []string
	opener := func(u string) error { opened = append(opened, u); return nil }

	r := New(&action.Instance{Type: action.Redirect, Name: "Docs"}, Options{Opener: opener}).(*Redirect)
	assert.Equal(t, "Docs", r.Label())
	assert.Empty(t, r.URL())
	assert.ErrorIs(t, r.Open(), errs.ErrValidation)

	r = New(&action.Instance{Type: action.Redirect, Data: action.NotifyConfig{Message: "x"}}, Options{Opener: opener}).(*Redirect)
	assert.Equal(t, "Open link", r.Label())
	assert.ErrorIs(t, r.Open(), errs.ErrValidation)
	assert.Empty(t, opened)
}

func TestNotifyFallback(t *testing.T) {
	n := New(&action.Instance{Type: action.Notify, Data: action.NotifyConfig{Recipient: "ops"}}, Options{}).(*Notify)
	assert.Equal(t, "The person in charge has been notified.", n.Message())
	assert.Equal(t, "ops", n.Recipient())

	n = New(&action.Instance{Type: action.Notify, Data: action.NotifyConfig{Message: "Paged"}}, Options{}).(*Notify)
	assert.Equal(t, "Paged", n.Message())

	n = New(&action.Instance{Type: action.Notify, Name: "Page"}, Options{}).(*Notify)
	assert.Equal(t, "The person in charge has been notified.", n.Message())
	assert.Empty(t, n.Recipient())
}
