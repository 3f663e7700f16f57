package arenaerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/pvp-arena/pkg/arenaerrors"
)

func TestAppError_Error(t *testing.T) {
	err := arenaerrors.New(arenaerrors.ErrCodeRoomNotFound, "room not found")
	assert.Equal(t, "[ROOM_NOT_FOUND] room not found", err.Error())

	wrapped := arenaerrors.Wrap(errors.New("boom"), arenaerrors.ErrCodeInternal, "unexpected failure")
	assert.Equal(t, "[INTERNAL_ERROR] unexpected failure: boom", wrapped.Error())
}

func TestAppError_Is(t *testing.T) {
	// 以錯誤碼比較：WithDetails 産生的副本仍然匹配原始錯誤
	detailed := arenaerrors.ErrRoomUnavailable.WithDetails("room 3 is playing")
	assert.ErrorIs(t, detailed, arenaerrors.ErrRoomUnavailable)
	assert.NotErrorIs(t, detailed, arenaerrors.ErrRoomNotFound)

	// 非 AppError 不匹配
	assert.NotErrorIs(t, errors.New("plain"), arenaerrors.ErrRoomNotFound)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := arenaerrors.Wrap(cause, arenaerrors.ErrCodeInternal, "publish failed")
	assert.ErrorIs(t, err, cause)

	// 外層再包一層也解得開
	outer := fmt.Errorf("sweep: %w", err)
	var appErr *arenaerrors.AppError
	require.ErrorAs(t, outer, &appErr)
	assert.Equal(t, arenaerrors.ErrCodeInternal, appErr.Code)
}

func TestWithDetails_CopiesNotMutates(t *testing.T) {
	original := arenaerrors.ErrAlreadyInRoom
	detailed := original.WithDetails("fid 100")

	assert.Empty(t, original.Details)
	assert.Equal(t, "fid 100", detailed.Details)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"predefined error", arenaerrors.ErrNoRoomAvailable, arenaerrors.ErrCodeNoRoomAvailable},
		{"wrapped app error", fmt.Errorf("ctx: %w", arenaerrors.ErrPlayerNotInRoom), arenaerrors.ErrCodePlayerNotInRoom},
		{"plain error falls back to internal", errors.New("boom"), arenaerrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, arenaerrors.Code(tt.err))
		})
	}
}

func TestClassifiers(t *testing.T) {
	assert.True(t, arenaerrors.IsNotFound(arenaerrors.ErrRoomNotFound))
	assert.False(t, arenaerrors.IsNotFound(arenaerrors.ErrAlreadyInRoom))

	assert.True(t, arenaerrors.IsRetryable(arenaerrors.ErrNotAllReady))
	assert.True(t, arenaerrors.IsRetryable(arenaerrors.ErrNoRoomAvailable))
	assert.False(t, arenaerrors.IsRetryable(arenaerrors.ErrPlayerNotInRoom))
}
