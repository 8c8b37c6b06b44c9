package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/room-sync/internal/domain"
	"github.com/cwrk-planet/room-sync/internal/service"
	httpmw "github.com/cwrk-planet/room-sync/internal/transport/http/middleware"
	"github.com/cwrk-planet/room-sync/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	svc *service.SyncService
}

func NewHandler(svc *service.SyncService) *Handler {
	return &Handler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Message: msg}})
}

// fail переводит ошибку сервиса в HTTP-статус.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyRoomID),
		errors.Is(err, domain.ErrEmptyUserID),
		errors.Is(err, domain.ErrInvalidSince),
		errors.Is(err, domain.ErrEmptyContent):
		status = http.StatusBadRequest
	}
	if status >= 500 {
		logger.FromContext(r.Context()).Error("handler."+op, slog.Any("err", err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// GET /api/sync/rooms/{roomId}/updates?since=
func (h *Handler) GetRoomUpdates(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var since *int64
	if s := strings.TrimSpace(r.URL.Query().Get("since")); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.ErrInvalidSince.Error())
			return
		}
		since = &n
	}

	upd, err := h.svc.GetRoomUpdates(r.Context(), roomID, since)
	if err != nil {
		fail(w, r, "GetRoomUpdates", err)
		return
	}
	writeJSON(w, http.StatusOK, upd)
}

// POST /api/sync/rooms/{roomId}/playback
func (h *Handler) UpdatePlayback(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req PlaybackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	state, err := h.svc.UpdatePlayback(r.Context(), roomID, httpmw.UserIDFromCtx(r.Context()), req.toInput())
	if err != nil {
		fail(w, r, "UpdatePlayback", err)
		return
	}
	writeJSON(w, http.StatusOK, PlaybackResponse{Success: true, PlaybackState: state})
}

// POST /api/sync/rooms/{roomId}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req SendMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	msg, err := h.svc.SendMessage(r.Context(), roomID, httpmw.UserIDFromCtx(r.Context()), req.Content)
	if err != nil {
		fail(w, r, "SendMessage", err)
		return
	}
	writeJSON(w, http.StatusOK, SendMessageResponse{Success: true, Message: msg})
}

// POST /api/sync/rooms/{roomId}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	users, err := h.svc.JoinRoom(r.Context(), roomID, httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		fail(w, r, "JoinRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, JoinRoomResponse{Success: true, RoomID: roomID, UsersInRoom: users})
}

// POST /api/sync/rooms/{roomId}/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	if err := h.svc.LeaveRoom(r.Context(), roomID, httpmw.UserIDFromCtx(r.Context())); err != nil {
		fail(w, r, "LeaveRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveRoomResponse{Success: true, RoomID: roomID})
}
