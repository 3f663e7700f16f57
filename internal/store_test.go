package internal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/pvp-arena/internal"
	"github.com/koopa0/pvp-arena/pkg/arenaerrors"
)

func defaultRoomConfigs() []internal.RoomConfig {
	return []internal.RoomConfig{
		{ID: 1, Name: "Alpha Arena", Stake: 10000},
		{ID: 2, Name: "Beta Battle", Stake: 10000},
		{ID: 3, Name: "Gamma Ground", Stake: 10000},
		{ID: 4, Name: "Delta Dome", Stake: 10000},
	}
}

// TestNewStore 測試房間池佈建
func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		configs []internal.RoomConfig
		wantErr bool
	}{
		{"four canonical rooms", defaultRoomConfigs(), false},
		{"single room", []internal.RoomConfig{{ID: 7, Name: "Solo", Stake: 500}}, false},
		{"empty roster", nil, true},
		{
			"duplicate room id",
			[]internal.RoomConfig{
				{ID: 1, Name: "A", Stake: 100},
				{ID: 1, Name: "B", Stake: 100},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := internal.NewStore(tt.configs)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.configs), store.Len())
		})
	}
}

// TestStore_Get 測試依編號取房
func TestStore_Get(t *testing.T) {
	store, err := internal.NewStore(defaultRoomConfigs())
	require.NoError(t, err)

	t.Run("existing room", func(t *testing.T) {
		room, err := store.Get(2)
		require.NoError(t, err)
		assert.Equal(t, "Beta Battle", room.Name)
		assert.Equal(t, internal.StatusEmpty, room.Snapshot().Status)
	})

	t.Run("unknown room id", func(t *testing.T) {
		_, err := store.Get(99)
		require.ErrorIs(t, err, arenaerrors.ErrRoomNotFound)
		assert.True(t, arenaerrors.IsNotFound(err))
	})
}

// TestStore_ListAll 測試列表回傳的是隔離的副本
func TestStore_ListAll(t *testing.T) {
	store, err := internal.NewStore(defaultRoomConfigs())
	require.NoError(t, err)

	room, err := store.Get(1)
	require.NoError(t, err)
	_, err = room.Join(100, "Alice", "", "")
	require.NoError(t, err)

	snaps := store.ListAll()
	require.Len(t, snaps, 4)

	// 依 id 排序
	for i := 1; i < len(snaps); i++ {
		assert.Less(t, snaps[i-1].ID, snaps[i].ID)
	}

	require.NotNil(t, snaps[0].Player1)
	snaps[0].Player1.DisplayName = "mutated"

	fresh := store.ListAll()
	assert.Equal(t, "Alice", fresh[0].Player1.DisplayName)
}

// TestStore_ForEach 測試逐房走訪
func TestStore_ForEach(t *testing.T) {
	store, err := internal.NewStore(defaultRoomConfigs())
	require.NoError(t, err)

	var visited []int
	store.ForEach(func(room *internal.Room) {
		visited = append(visited, room.ID)
	})
	assert.Equal(t, []int{1, 2, 3, 4}, visited)
}
