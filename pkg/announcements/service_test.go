package announcements

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	lastMethod string
	lastPath   string
	lastBody   interface{}
	response   interface{}
	err        error
}

func (f *fakeAPI) roundTrip(method, path string, body, out interface{}) error {
	f.lastMethod, f.lastPath, f.lastBody = method, path, body
	if f.err != nil {
		return f.err
	}
	if out == nil || f.response == nil {
		return nil
	}
	data, err := json.Marshal(f.response)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeAPI) Get(ctx context.Context, path string, out interface{}) error {
	return f.roundTrip("GET", path, nil, out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, body, out interface{}) error {
	return f.roundTrip("POST", path, body, out)
}

func (f *fakeAPI) Put(ctx context.Context, path string, body, out interface{}) error {
	return f.roundTrip("PUT", path, body, out)
}

func (f *fakeAPI) Delete(ctx context.Context, path string, out interface{}) error {
	return f.roundTrip("DELETE", path, nil, out)
}

func TestList(t *testing.T) {
	api := &fakeAPI{response: map[string]interface{}{
		"announcements": []Announcement{
			{ID: "a1", Title: "Schedule change", Pinned: true},
			{ID: "a2", Title: "Welcome"},
		},
	}}
	service := NewService(api)

	items, err := service.List(context.Background(), "42")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "GET", api.lastMethod)
	assert.Equal(t, "/organizations/42/announcements", api.lastPath)
}

func TestListRequiresOrgID(t *testing.T) {
	service := NewService(&fakeAPI{})
	_, err := service.List(context.Background(), " ")
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	api := &fakeAPI{response: Announcement{ID: "a1", Title: "Schedule change"}}
	service := NewService(api)

	created, err := service.Create(context.Background(), "42", Draft{Title: "Schedule change", Body: "Shifts move to 8am"})
	require.NoError(t, err)
	assert.Equal(t, "a1", created.ID)
	assert.Equal(t, "POST", api.lastMethod)
	assert.Equal(t, "/organizations/42/announcements", api.lastPath)
}

func TestCreateRequiresTitle(t *testing.T) {
	service := NewService(&fakeAPI{})
	_, err := service.Create(context.Background(), "42", Draft{Body: "no title"})
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	api := &fakeAPI{response: Announcement{ID: "a1", Title: "Updated"}}
	service := NewService(api)

	updated, err := service.Update(context.Background(), "42", "a1", Draft{Title: "Updated"})
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)
	assert.Equal(t, "PUT", api.lastMethod)
	assert.Equal(t, "/organizations/42/announcements/a1", api.lastPath)
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{}
	service := NewService(api)

	require.NoError(t, service.Delete(context.Background(), "42", "a1"))
	assert.Equal(t, "DELETE", api.lastMethod)
	assert.Equal(t, "/organizations/42/announcements/a1", api.lastPath)

	assert.Error(t, service.Delete(context.Background(), "42", ""))
}

func TestErrorsPropagate(t *testing.T) {
	api := &fakeAPI{err: errors.New("forbidden")}
	service := NewService(api)

	_, err := service.List(context.Background(), "42")
	assert.ErrorContains(t, err, "forbidden")
}
