// ABOUTME: Tests for the remote backend against an httptest server
// ABOUTME: Checks routes, bearer token, envelopes and status to kind mapping
package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incial/crm/models"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1/", "tok")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDealsUnwrapCRMList(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/crm/all", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"crmList": []models.Deal{{ID: 1, Company: "Acme"}, {ID: 2, Company: "Beta"}},
		})
	})

	deals, err := c.Deals().GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "Beta", deals[1].Company)
}

func TestTasksCreateAndUpdate(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/v1/tasks/create":
			var draft models.Task
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			draft.ID = 42
			draft.Revision = 1
			writeJSON(w, http.StatusCreated, draft)
		case "PUT /api/v1/tasks/update/42":
			var patch map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			assert.Equal(t, map[string]any{"status": "Done"}, patch, "absent fields are not sent")
			writeJSON(w, http.StatusOK, models.Task{ID: 42, Title: "Reel", Status: "Done", Revision: 2})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	created, err := c.Tasks().Create(ctx, models.Task{Title: "Reel"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)

	updated, err := c.Tasks().Update(ctx, 42, models.TaskPatch{Status: models.Ptr(models.TaskDone)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Revision)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   models.Kind
		msg    string
	}{
		{"validation", http.StatusBadRequest, `{"error":{"code":"validation","message":"title is required"}}`, models.KindValidation, "title is required"},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":"unauthorized","message":"token expired"}}`, models.KindUnauthorized, "token expired"},
		{"forbidden", http.StatusForbidden, ``, models.KindUnauthorized, "Forbidden"},
		{"not found", http.StatusNotFound, `{"error":{"code":"not_found","message":"meetings 9 not found"}}`, models.KindNotFound, "meetings 9 not found"},
		{"server", http.StatusBadGateway, `upstream down`, models.KindTransport, "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Meetings().Update(context.Background(), 9, models.MeetingPatch{})
			require.Error(t, err)
			assert.Equal(t, tt.kind, models.KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDeleteMissingIsSuccess(t *testing.T) {
	calls := 0
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/v1/crm/delete/7", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]string{"code": "not_found", "message": "gone"}})
	})

	assert.NoError(t, c.Deals().Delete(context.Background(), 7))
	assert.Equal(t, 1, calls)
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, "").Users(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransport)
}
