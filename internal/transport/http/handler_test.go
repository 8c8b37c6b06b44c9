package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/room-sync/internal/auth"
	"github.com/cwrk-planet/room-sync/internal/roomstate"
	"github.com/cwrk-planet/room-sync/internal/service"
	httpmw "github.com/cwrk-planet/room-sync/internal/transport/http/middleware"
)

const t0 = int64(1_700_000_000_000)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := roomstate.NewMemoryStore(roomstate.WithClock(func() time.Time { return time.UnixMilli(t0) }))
	svc := service.NewSyncService(store, 0)
	validator := auth.ValidatorFunc(func(_ context.Context, token string) (string, error) {
		switch token {
		case "t1":
			return "u1", nil
		case "t2":
			return "u2", nil
		}
		return "", auth.ErrInvalidToken
	})
	return NewRouter(Deps{Handler: NewHandler(svc), Validator: validator})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Unauthorized(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name  string
		token string
		msg   string
	}{
		{name: "no token", token: "", msg: "missing bearer token"},
		{name: "bad token", token: "nope", msg: "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/sync/rooms/r1/updates", tt.token, "")
			require.Equal(t, http.StatusUnauthorized, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body.Error.Message)
		})
	}
}

func TestRouter_UnknownRoomSnapshot(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/sync/rooms/nope/updates?since=0", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"roomId":"nope","users":[],"playbackState":null,"updates":[],"timestamp":1700000000000}`,
		rec.Body.String())
}

func TestRouter_InvalidSince(t *testing.T) {
	h := newTestRouter(t)

	for _, q := range []string{"abc", "12x", "1.5"} {
		rec := do(t, h, http.MethodGet, "/api/sync/rooms/r1/updates?since="+q, "t1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestRouter_PollingFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/sync/rooms/r1/join", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"roomId":"r1","usersInRoom":["u1"]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/sync/rooms/r1/playback", "t1",
		`{"isPlaying":true,"currentPosition":12.5,"currentTrackIndex":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"playbackState":{
		"userId":"u1","isPlaying":true,"currentPosition":12.5,"currentTrackIndex":2,"timestamp":1700000000000}}`,
		rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/sync/rooms/r1/messages", "t1", `{"content":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var sent SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	assert.True(t, sent.Success)
	assert.NotEmpty(t, sent.Message.ID)
	assert.Equal(t, "u1", sent.Message.UserID)
	assert.Equal(t, "hi", sent.Message.Content)

	rec = do(t, h, http.MethodGet, "/api/sync/rooms/r1/updates?since=0", "t2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap struct {
		RoomID string `json:"roomId"`
		Users  []struct {
			UserID   string `json:"userId"`
			JoinedAt int64  `json:"joinedAt"`
		} `json:"users"`
		PlaybackState map[string]any `json:"playbackState"`
		Updates       []struct {
			Type string `json:"type"`
		} `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "r1", snap.RoomID)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "u1", snap.Users[0].UserID)
	assert.Equal(t, t0, snap.Users[0].JoinedAt)
	assert.Equal(t, true, snap.PlaybackState["isPlaying"])

	types := make([]string, 0, len(snap.Updates))
	for _, u := range snap.Updates {
		types = append(types, u.Type)
	}
	assert.Equal(t, []string{"user-joined", "playback-update", "message"}, types)

	rec = do(t, h, http.MethodPost, "/api/sync/rooms/r1/leave", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"roomId":"r1"}`, rec.Body.String())

	// последний участник ушёл: комната удалена
	rec = do(t, h, http.MethodGet, "/api/sync/rooms/r1/updates?since=0", "t1", "")
	assert.JSONEq(t,
		`{"roomId":"r1","users":[],"playbackState":null,"updates":[],"timestamp":1700000000000}`,
		rec.Body.String())
}

func TestRouter_LeaveUnknownRoom(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/sync/rooms/ghost/leave", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"roomId":"ghost"}`, rec.Body.String())
}

func TestRouter_BadBodies(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "playback not json", path: "/api/sync/rooms/r1/playback", body: "{"},
		{name: "playback wrong type", path: "/api/sync/rooms/r1/playback", body: `{"isPlaying":"yes"}`},
		{name: "message not json", path: "/api/sync/rooms/r1/messages", body: "nope"},
		{name: "message empty", path: "/api/sync/rooms/r1/messages", body: `{"content":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, "t1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	// ни одна ошибочная мутация не создала комнату
	rec := do(t, h, http.MethodGet, "/api/sync/rooms/r1/updates?since=0", "t1", "")
	assert.JSONEq(t,
		`{"roomId":"r1","users":[],"playbackState":null,"updates":[],"timestamp":1700000000000}`,
		rec.Body.String())
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpmw.HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get(httpmw.HeaderRequestID))

	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, rec.Header().Get(httpmw.HeaderRequestID))
}

// Handler напрямую, без Auth: пользователь кладётся в контекст через WithUserID.
func TestHandler_JoinRoomWithUserInContext(t *testing.T) {
	store := roomstate.NewMemoryStore(roomstate.WithClock(func() time.Time { return time.UnixMilli(t0) }))
	h := NewHandler(service.NewSyncService(store, 0))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("roomId", "r7")
	ctx := context.WithValue(context.Background(), chi.RouteCtxKey, rctx)
	ctx = httpmw.WithUserID(ctx, "u9")
	req := httptest.NewRequest(http.MethodPost, "/api/sync/rooms/r7/join", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.JoinRoom(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body JoinRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, JoinRoomResponse{Success: true, RoomID: "r7", UsersInRoom: []string{"u9"}}, body)

	users, err := store.Participants(context.Background(), "r7")
	require.NoError(t, err)
	assert.Equal(t, []string{"u9"}, users)
}
