package internal_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/pvp-arena/internal"
	"github.com/koopa0/pvp-arena/pkg/arenaerrors"
)

// TestConcurrentJoin 大量玩家同時搶同一間房，恰好兩人成功
func TestConcurrentJoin(t *testing.T) {
	const attempts = 50

	room := internal.NewRoom(1, "Alpha Arena", 10000)

	var wg sync.WaitGroup
	var succeeded atomic.Int64

	for i := range attempts {
		wg.Add(1)
		go func(fid int64) {
			defer wg.Done()
			if _, err := room.Join(fid, "P", "", ""); err == nil {
				succeeded.Add(1)
			}
		}(int64(1000 + i))
	}
	wg.Wait()

	assert.Equal(t, int64(2), succeeded.Load())

	snap := room.Snapshot()
	assert.Equal(t, internal.StatusFull, snap.Status)
	require.NotNil(t, snap.Player1)
	require.NotNil(t, snap.Player2)
	assert.NotEqual(t, snap.Player1.FID, snap.Player2.FID)
}

// TestConcurrentQuickMatch 全池搶位：成功數等於總槽位數，且無重複佔用
func TestConcurrentQuickMatch(t *testing.T) {
	const attempts = 40

	manager, _, _ := newTestManager(t)

	var wg sync.WaitGroup
	var succeeded, noRoom atomic.Int64

	for i := range attempts {
		wg.Add(1)
		go func(fid int64) {
			defer wg.Done()
			_, err := manager.QuickMatch(fid, "P", "", "")
			switch {
			case err == nil:
				succeeded.Add(1)
			case arenaerrors.Code(err) == arenaerrors.ErrCodeNoRoomAvailable:
				noRoom.Add(1)
			}
		}(int64(2000 + i))
	}
	wg.Wait()

	// 4 間房 × 2 槽 = 8 個名額
	assert.Equal(t, int64(8), succeeded.Load())
	assert.Equal(t, int64(attempts-8), noRoom.Load())

	seen := make(map[int64]bool)
	for _, snap := range manager.ListRooms() {
		assert.Equal(t, internal.StatusFull, snap.Status)
		for _, p := range []*internal.Player{snap.Player1, snap.Player2} {
			require.NotNil(t, p)
			assert.False(t, seen[p.FID], "fid %d seated twice", p.FID)
			seen[p.FID] = true
		}
	}
}

// TestConcurrentHeartbeatAndSweep 心跳與清掃交錯進行不互相破壞
func TestConcurrentHeartbeatAndSweep(t *testing.T) {
	manager, store, _ := newTestManager(t)
	startPlaying(t, manager, 1, 100, 200)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// 兩名玩家持續心跳
	for _, fid := range []int64{100, 200} {
		wg.Add(1)
		go func(fid int64) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, err := manager.Heartbeat(1, fid, "")
					assert.NoError(t, err)
				}
			}
		}(fid)
	}

	// 清掃並行跑
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 100 {
			manager.Sweep(time.Now())
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()

	// 雙方都活著，對局不受影響
	room, err := store.Get(1)
	require.NoError(t, err)
	snap := room.Snapshot()
	assert.Equal(t, internal.StatusPlaying, snap.Status)
	require.NotNil(t, snap.Player1)
	require.NotNil(t, snap.Player2)
}

// TestConcurrentRoomsIndependent 不同房間的操作互不阻塞、互不干擾
func TestConcurrentRoomsIndependent(t *testing.T) {
	manager, _, _ := newTestManager(t)

	var wg sync.WaitGroup
	for roomID := 1; roomID <= 4; roomID++ {
		wg.Add(1)
		go func(roomID int) {
			defer wg.Done()

			fid1 := int64(roomID * 10)
			fid2 := int64(roomID*10 + 1)

			for range 20 {
				_, err := manager.JoinRoom(roomID, fid1, "A", "", "")
				assert.NoError(t, err)
				_, err = manager.JoinRoom(roomID, fid2, "B", "", "")
				assert.NoError(t, err)
				_, err = manager.SetReady(roomID, fid1, true)
				assert.NoError(t, err)
				snap, err := manager.SetReady(roomID, fid2, true)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, internal.StatusPlaying, snap.Status)

				_, err = manager.CompleteGame(roomID, snap.GameID)
				assert.NoError(t, err)
			}
		}(roomID)
	}
	wg.Wait()

	for _, snap := range manager.ListRooms() {
		assert.Equal(t, internal.StatusEmpty, snap.Status)
	}
}
