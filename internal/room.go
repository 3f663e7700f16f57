package internal

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/pvp-arena/pkg/arenaerrors"
)

// 系統設計問題：
//   如何管理固定數量的對戰房間，讓兩名玩家安全地進出、準備、開局，
//   並在連線中斷時回收槽位？
//
// 核心挑戰：
//   1. 狀態管理：房間狀態（empty → waiting → full → playing）必須與佔用事實一致
//   2. 並發控制：加入、心跳、清掃、管理操作會同時打到同一個房間
//   3. 失敗恢復：玩家斷線後槽位必須能被回收，房間回到可配對狀態
//
// 設計方案：
//   ✅ 狀態推導函數 - 狀態永遠由（槽位佔用、雙方準備）推導，不散落各處賦值
//   ✅ 每房間一把 RWMutex - 房間之間互不阻塞
//   ✅ 驗證後套用 - 先檢查前置條件，全部通過才改狀態，失敗不留半套結果

// RoomStatus 房間狀態
//
// 狀態轉換規則（全部由 DeriveStatus 推導）：
//   - 零人佔用 → empty（createdAt / gameId 一併清除）
//   - 一人佔用 → waiting
//   - 兩人佔用、未全部準備 → full
//   - 兩人佔用、全部準備 → playing（進入時鑄造 gameId）
//
// 為什麼用推導而非逐處賦值？
//   讓多個程式路徑各自設定 status，清掃與離開的順序不同時
//   會留下和佔用事實矛盾的狀態。集中成一個純函數後，狀態不可能漂移。
type RoomStatus string

const (
	StatusEmpty   RoomStatus = "empty"   // 無人佔用
	StatusWaiting RoomStatus = "waiting" // 一人等待對手
	StatusFull    RoomStatus = "full"    // 兩人到齊，等待準備
	StatusPlaying RoomStatus = "playing" // 對局進行中
)

// DeriveStatus 由佔用與準備事實推導房間狀態
//
// 這是整個狀態機的正確性核心：任何變更之後都必須重新呼叫，
// status 永遠是 (slot1 佔用, slot2 佔用, 雙方準備) 的純函數。
func DeriveStatus(slot1, slot2, bothReady bool) RoomStatus {
	switch {
	case !slot1 && !slot2:
		return StatusEmpty
	case slot1 != slot2:
		return StatusWaiting
	case bothReady:
		return StatusPlaying
	default:
		return StatusFull
	}
}

// Player 槽位上的玩家
//
// 只在佔用槽位期間存在；離開、逾時或強制清理時整個值被丟棄。
type Player struct {
	FID           int64     `json:"fid"`
	DisplayName   string    `json:"display_name"`
	Avatar        string    `json:"avatar,omitempty"`
	IsReady       bool      `json:"is_ready"`
	IsOnline      bool      `json:"is_online"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	ConnectionID  string    `json:"connection_id,omitempty"`
}

// Room 對戰房間
//
// 系統設計考量：
//
//  1. 固定編制：房間在啟動時佈建一次，之後只在狀態間循環，
//     永不建立或銷毀。id、name、stake 不可變。
//
//  2. 並發控制（每房間一把 RWMutex）：
//     問題：多個玩家操作、定期清掃、管理操作同時打到同一房間
//     方案：所有變更都在該房間自己的寫鎖內完成
//     關鍵：鎖是每房間的，不是整張表一把——一個房間的壅塞
//     不會拖住其他房間的配對
//
//  3. 鎖內不做 I/O：每次持鎖只覆蓋一次狀態轉換，事件發佈、
//     日誌都在鎖外進行，鎖必定釋放（含錯誤路徑）
type Room struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Stake int64  `json:"stake"`

	Status       RoomStatus `json:"status"`
	Player1      *Player    `json:"player1,omitempty"`
	Player2      *Player    `json:"player2,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitzero"`
	GameID       string     `json:"game_id,omitempty"`
	LastActivity time.Time  `json:"last_activity"`

	Mu sync.RWMutex `json:"-"` // 讀寫鎖（並發控制）
}

// NewRoom 佈建一個空房間
func NewRoom(id int, name string, stake int64) *Room {
	return &Room{
		ID:           id,
		Name:         name,
		Stake:        stake,
		Status:       StatusEmpty,
		LastActivity: time.Now(),
	}
}

// Snapshot 房間的唯讀副本
//
// PrevStatus 記錄本次操作前的狀態，供呼叫端判斷轉換
// （例如 full → playing 時發佈開局事件），不序列化。
type Snapshot struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Stake        int64      `json:"stake"`
	Status       RoomStatus `json:"status"`
	Player1      *Player    `json:"player1,omitempty"`
	Player2      *Player    `json:"player2,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitzero"`
	GameID       string     `json:"game_id,omitempty"`
	LastActivity time.Time  `json:"last_activity"`

	PrevStatus RoomStatus `json:"-"`
}

// Join 將玩家放進空的槽位
//
// 前置條件：
//   - 同一個 fid 不能重複佔用（回 AlreadyInRoom，優先於滿房檢查：
//     丟了回應的重試必須知道自己已經在座位上）
//   - 房間狀態必須是 empty 或 waiting（full / playing 回 RoomUnavailable）
//
// 效果：第一位進 slot1，第二位進 slot2；從 empty 起步時記錄 createdAt。
// 未帶 connectionId 時鑄造一個，讓後續心跳能對上連線。
func (r *Room) Join(fid int64, displayName, avatar, connectionID string) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	// 重複檢查先於滿房檢查：已入座的玩家重送 join 必須得到
	// AlreadyInRoom（別再試了），而不是 RoomUnavailable（去別間房）
	if r.occupiedBy(fid) != nil {
		return Snapshot{}, arenaerrors.ErrAlreadyInRoom
	}

	// 狀態檢查（驗證後套用）
	if r.Status != StatusEmpty && r.Status != StatusWaiting {
		return Snapshot{}, arenaerrors.ErrRoomUnavailable.WithDetails(
			fmt.Sprintf("room %d is %s", r.ID, r.Status))
	}

	now := time.Now()
	if connectionID == "" {
		connectionID = uuid.NewString()
	}

	player := &Player{
		FID:           fid,
		DisplayName:   displayName,
		Avatar:        avatar,
		IsReady:       false,
		IsOnline:      true,
		LastHeartbeat: now,
		ConnectionID:  connectionID,
	}

	if r.Player1 == nil {
		r.Player1 = player
	} else {
		r.Player2 = player
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	r.applyDerivedStatus(now)
	return r.snapshotLocked(prev), nil
}

// Leave 清空玩家佔用的槽位
//
// 剩餘佔用為零時 createdAt / gameId 一併清除，房間回到 empty。
func (r *Room) Leave(fid int64) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	switch {
	case r.Player1 != nil && r.Player1.FID == fid:
		r.Player1 = nil
	case r.Player2 != nil && r.Player2.FID == fid:
		r.Player2 = nil
	default:
		return Snapshot{}, arenaerrors.ErrPlayerNotInRoom
	}

	r.applyDerivedStatus(time.Now())
	return r.snapshotLocked(prev), nil
}

// SetReady 設定玩家的準備狀態
//
// 雙方都準備好時自動晉升 playing 並鑄造 gameId；
// playing 中任一方取消準備則降回 full，gameId 清除（對局視為放棄）。
// 任何帶玩家身份的操作都順帶刷新該玩家的心跳。
func (r *Room) SetReady(fid int64, ready bool) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	player := r.occupiedBy(fid)
	if player == nil {
		return Snapshot{}, arenaerrors.ErrPlayerNotInRoom
	}

	now := time.Now()
	player.IsReady = ready
	player.IsOnline = true
	player.LastHeartbeat = now

	r.applyDerivedStatus(now)
	return r.snapshotLocked(prev), nil
}

// StartGame 明確開局
//
// 前置條件：兩個槽位都被佔用、雙方都已準備、呼叫者在房間內。
// SetReady 已經自動晉升過的房間再呼叫 StartGame 視為成功的重試，
// 回傳現有 gameId 而非錯誤——呼叫端收不到回應時可以安全重打。
func (r *Room) StartGame(fid int64) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	player := r.occupiedBy(fid)
	if player == nil {
		return Snapshot{}, arenaerrors.ErrPlayerNotInRoom
	}

	// 帶玩家身份的操作順帶刷新心跳
	now := time.Now()
	player.LastHeartbeat = now
	player.IsOnline = true

	if r.Status == StatusPlaying {
		r.LastActivity = now
		return r.snapshotLocked(prev), nil
	}

	if r.Status != StatusFull || !r.bothReady() {
		r.LastActivity = now
		return Snapshot{}, arenaerrors.ErrNotAllReady
	}

	r.applyDerivedStatus(now)
	return r.snapshotLocked(prev), nil
}

// Heartbeat 刷新玩家的活性
//
// 冪等：重送心跳只是重新整理逾時窗口，不是錯誤。
// 帶了 connectionId 就順手更新（斷線重連後的新連線）。
func (r *Room) Heartbeat(fid int64, connectionID string) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	player := r.occupiedBy(fid)
	if player == nil {
		return Snapshot{}, arenaerrors.ErrPlayerNotInRoom
	}

	now := time.Now()
	player.LastHeartbeat = now
	player.IsOnline = true
	if connectionID != "" {
		player.ConnectionID = connectionID
	}
	r.LastActivity = now

	return r.snapshotLocked(prev), nil
}

// Opponent 查詢對手槽位
//
// 對手尚未加入時回傳 nil 玩家與目前狀態，不是錯誤。
// 查詢本身也是一次帶玩家身份的操作，順帶刷新呼叫者的心跳
// （所以拿寫鎖，不是讀鎖）。
func (r *Room) Opponent(fid int64) (*Player, RoomStatus, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	var mine, other *Player
	switch {
	case r.Player1 != nil && r.Player1.FID == fid:
		mine, other = r.Player1, r.Player2
	case r.Player2 != nil && r.Player2.FID == fid:
		mine, other = r.Player2, r.Player1
	}
	if mine == nil {
		return nil, r.Status, arenaerrors.ErrPlayerNotInRoom
	}

	mine.LastHeartbeat = time.Now()
	mine.IsOnline = true

	if other == nil {
		return nil, r.Status, nil
	}
	clone := *other
	return &clone, r.Status, nil
}

// CompleteGame 遊戲引擎回報對局結束，房間整個釋放回 empty
//
// gameId 必須與房間目前的一致，避免過期的回報清掉新的對局。
func (r *Room) CompleteGame(gameID string) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	if r.Status != StatusPlaying {
		return Snapshot{}, arenaerrors.ErrNotAllReady.WithDetails(
			fmt.Sprintf("room %d is %s, not playing", r.ID, r.Status))
	}
	if gameID != r.GameID {
		return Snapshot{}, arenaerrors.ErrGameIDMismatch
	}

	r.Player1 = nil
	r.Player2 = nil
	r.applyDerivedStatus(time.Now())
	return r.snapshotLocked(prev), nil
}

// ForceReset 無視一切前置條件，把房間打回 empty
//
// 管理員恢復用。走同一把鎖，不會和進行中的玩家操作交錯。
func (r *Room) ForceReset() Snapshot {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	r.Player1 = nil
	r.Player2 = nil
	r.applyDerivedStatus(time.Now())
	return r.snapshotLocked(prev)
}

// SweepSlots 踢掉心跳過期的槽位並重新推導狀態
//
// 嚴格以 now - lastHeartbeat > timeout 判定；剛好等於 timeout 不算過期。
// 回傳清掃後的副本、仍存活的連線數、被踢的連線數，以及房間是否改變。
func (r *Room) SweepSlots(now time.Time, timeout time.Duration) (snap Snapshot, active, timedOut int, changed bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	prev := r.Status

	for _, slot := range []**Player{&r.Player1, &r.Player2} {
		p := *slot
		if p == nil {
			continue
		}
		if now.Sub(p.LastHeartbeat) > timeout {
			p.IsOnline = false
			*slot = nil
			timedOut++
		} else {
			active++
		}
	}

	if timedOut > 0 {
		r.applyDerivedStatus(now)
	}
	changed = timedOut > 0
	return r.snapshotLocked(prev), active, timedOut, changed
}

// Snapshot 取得房間的唯讀副本（玩家為深拷貝，不會外洩內部指標）
func (r *Room) Snapshot() Snapshot {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return r.snapshotLocked(r.Status)
}

// occupiedBy 回傳佔用者，需持鎖
func (r *Room) occupiedBy(fid int64) *Player {
	if r.Player1 != nil && r.Player1.FID == fid {
		return r.Player1
	}
	if r.Player2 != nil && r.Player2.FID == fid {
		return r.Player2
	}
	return nil
}

// bothReady 兩個槽位都被佔用且都已準備，需持鎖
func (r *Room) bothReady() bool {
	return r.Player1 != nil && r.Player2 != nil &&
		r.Player1.IsReady && r.Player2.IsReady
}

// applyDerivedStatus 重新推導狀態並維護衍生欄位，需持鎖
//
// gameId 生命週期在這裡集中處理：
//   - 進入 playing 且尚無 gameId → 鑄造
//   - 離開 playing（降級、清空）→ 清除
//   - 回到 empty → createdAt 一併清除
func (r *Room) applyDerivedStatus(now time.Time) {
	r.Status = DeriveStatus(r.Player1 != nil, r.Player2 != nil, r.bothReady())

	switch r.Status {
	case StatusPlaying:
		if r.GameID == "" {
			r.GameID = fmt.Sprintf("game_%d_%s", r.ID, uuid.NewString())
		}
	case StatusEmpty:
		r.GameID = ""
		r.CreatedAt = time.Time{}
	default:
		r.GameID = ""
	}

	r.LastActivity = now
}

// snapshotLocked 在持鎖狀態下產生副本
func (r *Room) snapshotLocked(prev RoomStatus) Snapshot {
	snap := Snapshot{
		ID:           r.ID,
		Name:         r.Name,
		Stake:        r.Stake,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		GameID:       r.GameID,
		LastActivity: r.LastActivity,
		PrevStatus:   prev,
	}
	if r.Player1 != nil {
		clone := *r.Player1
		snap.Player1 = &clone
	}
	if r.Player2 != nil {
		clone := *r.Player2
		snap.Player2 = &clone
	}
	return snap
}
