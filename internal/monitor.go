package internal

import (
	"time"
)

// 系統設計問題：
//   如何偵測並回收斷線玩家佔住的槽位？
//
// 核心挑戰：
//   1. 活性判定：客戶端每 heartbeat_interval 打一次心跳，
//      超過 connection_timeout 沒有心跳就視為斷線
//   2. 誤殺防範：timeout 必須是 interval 的小倍數（≥2–3×），
//      否則一般的網路抖動就會把活人踢掉（配置層強制檢查）
//   3. 掃描不停擺：清掃逐房取鎖，絕不拿一把大鎖掃整張表，
//      單一房間的壅塞不會放大成全局暫停
//
// 清掃本身不會失敗：它只回報計數。無法安全判讀的房間
// 原樣跳過，記日誌供操作人員查看。

// CleanupStats 一次清掃的統計
type CleanupStats struct {
	TotalRooms          int `json:"total_rooms"`
	ActiveConnections   int `json:"active_connections"`
	TimedOutConnections int `json:"timed_out_connections"`
	CleanedRooms        int `json:"cleaned_rooms"`
}

// SweepResult 清掃結果：統計加上被動過的房間（供事件發佈）
type SweepResult struct {
	Stats   CleanupStats
	Touched []Snapshot // 狀態或佔用被清掃改變的房間
}

// Sweep 對整張房間表跑一輪逾時清掃
//
// 對每個房間：逐槽檢查 now - lastHeartbeat > timeout，過期就清空槽位，
// 然後用同一個推導函數重算狀態——playing 掉到一人剩 waiting、
// 掉到零人回 empty（createdAt / gameId 清除），和玩家主動離開走
// 完全相同的路徑。
//
// 由外部排程（Sweeper 或手動 API）以固定節奏呼叫，這裡不自帶計時器。
func Sweep(store *Store, now time.Time, timeout time.Duration) SweepResult {
	result := SweepResult{
		Stats: CleanupStats{TotalRooms: store.Len()},
	}

	store.ForEach(func(room *Room) {
		snap, active, timedOut, changed := room.SweepSlots(now, timeout)
		result.Stats.ActiveConnections += active
		result.Stats.TimedOutConnections += timedOut
		if changed {
			result.Stats.CleanedRooms++
			result.Touched = append(result.Touched, snap)
		}
	})

	return result
}
