package internal

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/koopa0/pvp-arena/pkg/arenaerrors"
)

// Handler HTTP 請求處理器
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler 創建 HTTP 處理器
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	// 房間操作 API
	mux.HandleFunc("GET /api/v1/rooms", wrap(h.listRooms))
	mux.HandleFunc("GET /api/v1/rooms/{room_id}", wrap(h.getRoom))
	mux.HandleFunc("POST /api/v1/rooms/{room_id}/join", wrap(h.joinRoom))
	mux.HandleFunc("POST /api/v1/rooms/{room_id}/leave", wrap(h.leaveRoom))
	mux.HandleFunc("POST /api/v1/rooms/{room_id}/ready", wrap(h.setReady))
	mux.HandleFunc("POST /api/v1/rooms/{room_id}/start", wrap(h.startGame))
	mux.HandleFunc("POST /api/v1/rooms/{room_id}/heartbeat", wrap(h.heartbeat))
	mux.HandleFunc("GET /api/v1/rooms/{room_id}/opponent", wrap(h.opponent))
	mux.HandleFunc("POST /api/v1/rooms/{room_id}/complete", wrap(h.completeGame))

	// 快速配對
	mux.HandleFunc("POST /api/v1/match", wrap(h.quickMatch))

	// 清掃（正常由排程驅動，這裡留手動觸發口）
	mux.HandleFunc("POST /api/v1/sweep", wrap(h.sweep))

	// 管理操作
	mux.HandleFunc("POST /api/v1/admin/cleanup", wrap(h.forceCleanup))

	// 健康檢查與統計
	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	return mux
}

// 請求結構
type joinRoomRequest struct {
	FID          int64  `json:"fid"`
	DisplayName  string `json:"display_name"`
	Avatar       string `json:"avatar,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
}

type leaveRoomRequest struct {
	FID int64 `json:"fid"`
}

type readyRequest struct {
	FID     int64 `json:"fid"`
	IsReady bool  `json:"is_ready"`
}

type startGameRequest struct {
	FID int64 `json:"fid"`
}

type heartbeatRequest struct {
	FID          int64  `json:"fid"`
	ConnectionID string `json:"connection_id,omitempty"`
}

type completeGameRequest struct {
	GameID string `json:"game_id"`
}

type quickMatchRequest struct {
	FID          int64  `json:"fid"`
	DisplayName  string `json:"display_name"`
	Avatar       string `json:"avatar,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
}

type forceCleanupRequest struct {
	RoomID *int `json:"room_id,omitempty"` // 省略表示清掃所有房間
}

// listRooms 列出所有房間
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.manager.ListRooms()

	h.jsonResponse(w, map[string]any{
		"success": true,
		"rooms":   rooms,
	}, http.StatusOK)
}

// getRoom 取得單一房間
func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	snap, err := h.manager.GetRoom(roomID)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success": true,
		"room":    snap,
	}, http.StatusOK)
}

// joinRoom 加入房間
func (h *Handler) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.FID == 0 || req.DisplayName == "" {
		h.errorResponse(w, "玩家資訊不完整", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.JoinRoom(roomID, req.FID, req.DisplayName, req.Avatar, req.ConnectionID)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success": true,
		"room":    snap,
	}, http.StatusOK)
}

// leaveRoom 離開房間
func (h *Handler) leaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var req leaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.FID == 0 {
		h.errorResponse(w, "fid 為必填", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.LeaveRoom(roomID, req.FID)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success": true,
		"room":    snap,
	}, http.StatusOK)
}

// setReady 設定準備狀態
func (h *Handler) setReady(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.FID == 0 {
		h.errorResponse(w, "fid 為必填", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.SetReady(roomID, req.FID, req.IsReady)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success": true,
		"room":    snap,
	}, http.StatusOK)
}

// startGame 開始遊戲
func (h *Handler) startGame(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.FID == 0 {
		h.errorResponse(w, "fid 為必填", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.StartGame(roomID, req.FID)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success": true,
		"room":    snap,
		"game_id": snap.GameID,
	}, http.StatusOK)
}

// heartbeat 心跳
func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.FID == 0 {
		h.errorResponse(w, "fid 為必填", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.Heartbeat(roomID, req.FID, req.ConnectionID)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success":   true,
		"room":      snap,
		"timestamp": time.Now().UTC(),
	}, http.StatusOK)
}

// opponent 查詢對手狀態
func (h *Handler) opponent(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	fid, err := strconv.ParseInt(r.URL.Query().Get("fid"), 10, 64)
	if err != nil || fid == 0 {
		h.errorResponse(w, "fid 為必填", http.StatusBadRequest)
		return
	}

	opponent, status, err := h.manager.Opponent(roomID, fid)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success":     true,
		"opponent":    opponent,
		"room_status": status,
	}, http.StatusOK)
}

// completeGame 遊戲引擎回報對局結束
func (h *Handler) completeGame(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var req completeGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.GameID == "" {
		h.errorResponse(w, "game_id 為必填", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.CompleteGame(roomID, req.GameID)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success": true,
		"room":    snap,
	}, http.StatusOK)
}

// quickMatch 快速配對
func (h *Handler) quickMatch(w http.ResponseWriter, r *http.Request) {
	var req quickMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.FID == 0 || req.DisplayName == "" {
		h.errorResponse(w, "玩家資訊不完整", http.StatusBadRequest)
		return
	}

	snap, err := h.manager.QuickMatch(req.FID, req.DisplayName, req.Avatar, req.ConnectionID)
	if err != nil {
		h.appErrorResponse(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"success": true,
		"room":    snap,
	}, http.StatusOK)
}

// sweep 手動觸發一輪清掃
func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	stats := h.manager.Sweep(time.Now())

	h.jsonResponse(w, map[string]any{
		"success":       true,
		"cleanup_stats": stats,
		"timestamp":     time.Now().UTC(),
	}, http.StatusOK)
}

// forceCleanup 管理員強制重置房間
//
// 空請求體等同省略 room_id：重置所有房間。
func (h *Handler) forceCleanup(w http.ResponseWriter, r *http.Request) {
	var req forceCleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if req.RoomID != nil {
		snap, err := h.manager.ForceCleanup(*req.RoomID)
		if err != nil {
			h.appErrorResponse(w, err)
			return
		}
		h.jsonResponse(w, map[string]any{
			"success":       true,
			"rooms_cleaned": 1,
			"room":          snap,
		}, http.StatusOK)
		return
	}

	cleaned := h.manager.ForceCleanupAll()
	h.jsonResponse(w, map[string]any{
		"success":       true,
		"rooms_cleaned": len(cleaned),
		"room_ids":      cleaned,
	}, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.manager.Stats(), http.StatusOK)
}

// roomID 解析路徑中的房間 id
func (h *Handler) roomID(w http.ResponseWriter, r *http.Request) (int, bool) {
	roomID, err := strconv.Atoi(r.PathValue("room_id"))
	if err != nil {
		h.errorResponse(w, "無效的房間 id", http.StatusBadRequest)
		return 0, false
	}
	return roomID, true
}

// appErrorResponse 依錯誤碼對應 HTTP 狀態碼
func (h *Handler) appErrorResponse(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch arenaerrors.Code(err) {
	case arenaerrors.ErrCodeRoomNotFound:
		status = http.StatusNotFound
	case arenaerrors.ErrCodeAlreadyInRoom, arenaerrors.ErrCodeRoomUnavailable:
		status = http.StatusConflict
	case arenaerrors.ErrCodePlayerNotInRoom:
		status = http.StatusForbidden
	case arenaerrors.ErrCodePreconditionFailed:
		status = http.StatusBadRequest
	case arenaerrors.ErrCodeNoRoomAvailable:
		status = http.StatusServiceUnavailable
	case arenaerrors.ErrCodeInternal:
		status = http.StatusInternalServerError
	}

	h.jsonResponse(w, map[string]any{
		"success": false,
		"error":   err.Error(),
		"code":    arenaerrors.Code(err),
	}, status)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("編碼 JSON 失敗", "error", err)
	}
}

// errorResponse 返回錯誤響應
func (h *Handler) errorResponse(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, map[string]any{
		"success": false,
		"error":   message,
	}, status)
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以獲取狀態碼
		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("HTTP 請求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("處理請求時發生 panic",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.errorResponse(w, "內部伺服器錯誤", http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
