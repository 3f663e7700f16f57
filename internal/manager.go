package internal

import (
	"log/slog"
	"time"

	"github.com/koopa0/pvp-arena/pkg/arenaerrors"
)

// Manager 配對門面
//
// 所有玩家操作、清掃與管理操作的單一入口：
// 組合 Store（定址）與 Room 的狀態轉換（業務規則），
// 並在轉換完成、鎖已釋放之後發佈生命週期事件。
//
// Manager 自身沒有狀態，也沒有鎖——互斥完全由各房間的鎖承擔，
// 不同房間的操作互不阻塞。
type Manager struct {
	store     *Store
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration // 心跳逾時（connection_timeout）
}

// NewManager 創建配對門面
func NewManager(store *Store, publisher Publisher, timeout time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
	}
}

// ListRooms 列出所有房間的唯讀副本
func (m *Manager) ListRooms() []Snapshot {
	return m.store.ListAll()
}

// GetRoom 取得單一房間的唯讀副本
func (m *Manager) GetRoom(roomID int) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return room.Snapshot(), nil
}

// JoinRoom 玩家加入指定房間
func (m *Manager) JoinRoom(roomID int, fid int64, displayName, avatar, connectionID string) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := room.Join(fid, displayName, avatar, connectionID)
	if err != nil {
		return Snapshot{}, err
	}

	m.logger.Info("玩家加入房間",
		"room_id", roomID,
		"fid", fid,
		"display_name", displayName,
		"status", snap.Status)

	return snap, nil
}

// LeaveRoom 玩家離開房間
func (m *Manager) LeaveRoom(roomID int, fid int64) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := room.Leave(fid)
	if err != nil {
		return Snapshot{}, err
	}

	m.logger.Info("玩家離開房間",
		"room_id", roomID,
		"fid", fid,
		"status", snap.Status)

	m.publishTransition(snap, "player_left")
	return snap, nil
}

// SetReady 設定準備狀態（雙方就緒時自動開局）
func (m *Manager) SetReady(roomID int, fid int64, ready bool) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := room.SetReady(fid, ready)
	if err != nil {
		return Snapshot{}, err
	}

	m.logger.Info("玩家準備狀態變更",
		"room_id", roomID,
		"fid", fid,
		"is_ready", ready,
		"status", snap.Status)

	m.publishTransition(snap, "player_unready")
	return snap, nil
}

// StartGame 明確開局（冪等：已開局回傳現有 gameId）
func (m *Manager) StartGame(roomID int, fid int64) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := room.StartGame(fid)
	if err != nil {
		return Snapshot{}, err
	}

	m.logger.Info("對局開始",
		"room_id", roomID,
		"fid", fid,
		"game_id", snap.GameID)

	m.publishTransition(snap, "")
	return snap, nil
}

// Heartbeat 刷新玩家活性
func (m *Manager) Heartbeat(roomID int, fid int64, connectionID string) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return room.Heartbeat(fid, connectionID)
}

// Opponent 查詢對手與其連線狀態
func (m *Manager) Opponent(roomID int, fid int64) (*Player, RoomStatus, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return nil, "", err
	}
	return room.Opponent(fid)
}

// QuickMatch 快速配對：找一間 waiting 的房間加入，沒有就佔一間 empty 的
//
// 讀取副本和實際加入之間房間可能已經變了（別的玩家先進去了），
// join 失敗就換下一個候選，全部失敗才回 NoRoomAvailable——
// 這裡沒有自己的狀態，純粹是「讀、試、退」。
func (m *Manager) QuickMatch(fid int64, displayName, avatar, connectionID string) (Snapshot, error) {
	candidates := make([]int, 0, m.store.Len())

	// waiting 優先（湊對比開新房快），其次 empty
	for _, snap := range m.store.ListAll() {
		if snap.Status == StatusWaiting {
			candidates = append(candidates, snap.ID)
		}
	}
	for _, snap := range m.store.ListAll() {
		if snap.Status == StatusEmpty {
			candidates = append(candidates, snap.ID)
		}
	}

	for _, roomID := range candidates {
		snap, err := m.JoinRoom(roomID, fid, displayName, avatar, connectionID)
		if err == nil {
			return snap, nil
		}
		// 已在這間房裡就不該換房重試，直接回報
		if arenaerrors.Code(err) == arenaerrors.ErrCodeAlreadyInRoom {
			return Snapshot{}, err
		}
		// 房間在讀取後被搶走了，換下一個候選
	}

	return Snapshot{}, arenaerrors.ErrNoRoomAvailable
}

// Sweep 跑一輪逾時清掃並發佈受影響房間的事件
func (m *Manager) Sweep(now time.Time) CleanupStats {
	result := Sweep(m.store, now, m.timeout)

	for _, snap := range result.Touched {
		m.logger.Info("清掃重置房間",
			"room_id", snap.ID,
			"prev_status", snap.PrevStatus,
			"status", snap.Status)
		m.publishTransition(snap, "connection_timeout")
		m.publishCleaned(snap, "connection_timeout")
	}

	if result.Stats.TimedOutConnections > 0 {
		m.logger.Info("清掃完成",
			"total_rooms", result.Stats.TotalRooms,
			"active_connections", result.Stats.ActiveConnections,
			"timed_out_connections", result.Stats.TimedOutConnections,
			"cleaned_rooms", result.Stats.CleanedRooms)
	}

	return result.Stats
}

// CompleteGame 遊戲引擎回報對局結束，釋放房間
func (m *Manager) CompleteGame(roomID int, gameID string) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := room.CompleteGame(gameID)
	if err != nil {
		return Snapshot{}, err
	}

	m.logger.Info("對局結束，房間釋放",
		"room_id", roomID,
		"game_id", gameID)

	m.publishCleaned(snap, "game_completed")
	return snap, nil
}

// ForceCleanup 管理員強制重置單一房間
func (m *Manager) ForceCleanup(roomID int) (Snapshot, error) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return Snapshot{}, err
	}

	snap := room.ForceReset()

	m.logger.Warn("強制重置房間",
		"room_id", roomID,
		"prev_status", snap.PrevStatus)

	m.publishTransition(snap, "force_cleanup")
	m.publishCleaned(snap, "force_cleanup")
	return snap, nil
}

// ForceCleanupAll 管理員強制重置所有房間，回傳重置的房間 id
func (m *Manager) ForceCleanupAll() []int {
	cleaned := make([]int, 0, m.store.Len())

	m.store.ForEach(func(room *Room) {
		snap := room.ForceReset()
		cleaned = append(cleaned, snap.ID)
		m.publishTransition(snap, "force_cleanup")
		m.publishCleaned(snap, "force_cleanup")
	})

	m.logger.Warn("強制重置所有房間", "rooms_cleaned", len(cleaned))
	return cleaned
}

// Stats 佔用統計（監控端點用）
func (m *Manager) Stats() map[string]any {
	statusCount := make(map[RoomStatus]int)
	onlinePlayers := 0
	occupiedSlots := 0

	for _, snap := range m.store.ListAll() {
		statusCount[snap.Status]++
		for _, p := range []*Player{snap.Player1, snap.Player2} {
			if p == nil {
				continue
			}
			occupiedSlots++
			if p.IsOnline {
				onlinePlayers++
			}
		}
	}

	return map[string]any{
		"total_rooms":    m.store.Len(),
		"by_status":      statusCount,
		"occupied_slots": occupiedSlots,
		"online_players": onlinePlayers,
	}
}

// publishTransition 依前後狀態發佈開局 / 放棄事件（鎖外）
func (m *Manager) publishTransition(snap Snapshot, reason string) {
	switch {
	case snap.PrevStatus != StatusPlaying && snap.Status == StatusPlaying:
		m.publish(SubjectGameStarted, GameEvent{
			RoomID:    snap.ID,
			GameID:    snap.GameID,
			Status:    snap.Status,
			Timestamp: time.Now(),
		})
	case snap.PrevStatus == StatusPlaying && snap.Status != StatusPlaying:
		m.publish(SubjectGameAbandoned, GameEvent{
			RoomID:    snap.ID,
			Status:    snap.Status,
			Reason:    reason,
			Timestamp: time.Now(),
		})
	}
}

// publishCleaned 發佈房間重置事件（鎖外）
func (m *Manager) publishCleaned(snap Snapshot, reason string) {
	m.publish(SubjectRoomCleaned, GameEvent{
		RoomID:    snap.ID,
		Status:    snap.Status,
		Reason:    reason,
		Timestamp: time.Now(),
	})
}

// publish 發佈失敗只記日誌，不影響已完成的狀態轉換
func (m *Manager) publish(subject string, event GameEvent) {
	if err := m.publisher.Publish(subject, event); err != nil {
		m.logger.Warn("事件發佈失敗",
			"subject", subject,
			"room_id", event.RoomID,
			"error", err)
	}
}
