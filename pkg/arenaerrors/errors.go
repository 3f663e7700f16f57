// Package arenaerrors 提供競技場服務的應用程式錯誤處理
package arenaerrors

import (
	"errors"
	"fmt"
)

// 定義錯誤碼
const (
	// ErrCodeRoomNotFound 房間不存在
	ErrCodeRoomNotFound = "ROOM_NOT_FOUND"
	// ErrCodeRoomUnavailable 房間已滿或遊戲進行中
	ErrCodeRoomUnavailable = "ROOM_UNAVAILABLE"
	// ErrCodeAlreadyInRoom 玩家已在房間內
	ErrCodeAlreadyInRoom = "ALREADY_IN_ROOM"
	// ErrCodePlayerNotInRoom 玩家不在房間內
	ErrCodePlayerNotInRoom = "PLAYER_NOT_IN_ROOM"
	// ErrCodePreconditionFailed 前置條件不滿足
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
	// ErrCodeNoRoomAvailable 沒有可加入的房間
	ErrCodeNoRoomAvailable = "NO_ROOM_AVAILABLE"
	// ErrCodeInvalidInput 無效輸入
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeInternal 內部錯誤
	ErrCodeInternal = "INTERNAL_ERROR"
)

// AppError 應用程式錯誤
//
// 錯誤碼供呼叫端做程式化判斷（HTTP 層據此對應狀態碼），
// Message 供人閱讀，Err 保留底層原因供 errors.Unwrap。
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error 實現 error 介面
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 實現 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 實現 errors.Is（以錯誤碼比較，而非指標相等）
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 創建新的應用程式錯誤
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包裝錯誤
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails 添加詳細資訊
func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Err:     e.Err,
	}
}

// 預定義錯誤
var (
	// ErrRoomNotFound 房間不存在
	ErrRoomNotFound = New(ErrCodeRoomNotFound, "room not found")

	// ErrRoomUnavailable 房間已滿或遊戲進行中，無法加入
	ErrRoomUnavailable = New(ErrCodeRoomUnavailable, "room is full or playing")

	// ErrAlreadyInRoom 同一位玩家重複加入
	ErrAlreadyInRoom = New(ErrCodeAlreadyInRoom, "player already in room")

	// ErrPlayerNotInRoom 操作指涉的玩家不佔用任何槽位
	ErrPlayerNotInRoom = New(ErrCodePlayerNotInRoom, "player not in room")

	// ErrNotAllReady 開始遊戲時雙方尚未全部準備
	ErrNotAllReady = New(ErrCodePreconditionFailed, "both players must be ready to start game")

	// ErrGameIDMismatch 回報結束的 gameId 與房間目前的不一致
	ErrGameIDMismatch = New(ErrCodePreconditionFailed, "game id does not match current game")

	// ErrNoRoomAvailable 快速配對找不到可加入的房間
	ErrNoRoomAvailable = New(ErrCodeNoRoomAvailable, "no room available to join")
)

// IsNotFound 檢查是否為房間不存在錯誤
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeRoomNotFound
	}
	return false
}

// IsRetryable 檢查呼叫端是否適合稍後重試
//
// 前置條件不滿足與無房可加入屬於「等待後重試」類；
// 其餘為呼叫端錯誤，不應重試。
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodePreconditionFailed ||
			appErr.Code == ErrCodeNoRoomAvailable
	}
	return false
}

// Code 回傳錯誤碼，非 AppError 時回傳 INTERNAL_ERROR
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}
