package internal

import (
	"fmt"
	"sort"

	"github.com/koopa0/pvp-arena/pkg/arenaerrors"
)

// RoomConfig 房間編制（啟動時從配置載入，之後不變）
type RoomConfig struct {
	ID    int    `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Stake int64  `yaml:"stake" json:"stake"`
}

// Store 房間表
//
// 純儲存：不含任何業務規則，只負責以 id 定址一組啟動時
// 佈建好的房間。表本身佈建後不再變動，所以查找不需要鎖——
// 互斥的單位是每個房間自己的鎖，不是整張表。
type Store struct {
	rooms []*Room
	byID  map[int]*Room
}

// NewStore 依編制佈建房間表
//
// 編制必須非空且 id 不重複；這是啟動時的配置錯誤，直接回報。
func NewStore(configs []RoomConfig) (*Store, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("房間編制不能為空")
	}

	s := &Store{
		byID: make(map[int]*Room, len(configs)),
	}
	for _, cfg := range configs {
		if _, dup := s.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("房間 id 重複: %d", cfg.ID)
		}
		room := NewRoom(cfg.ID, cfg.Name, cfg.Stake)
		s.rooms = append(s.rooms, room)
		s.byID[cfg.ID] = room
	}

	sort.Slice(s.rooms, func(i, j int) bool {
		return s.rooms[i].ID < s.rooms[j].ID
	})

	return s, nil
}

// Get 以 id 取得房間
func (s *Store) Get(roomID int) (*Room, error) {
	room, exists := s.byID[roomID]
	if !exists {
		return nil, arenaerrors.ErrRoomNotFound.WithDetails(
			fmt.Sprintf("room %d", roomID))
	}
	return room, nil
}

// ForEach 依 id 順序走訪所有房間
//
// 清掃用。fn 自行對每個房間取鎖，Store 不會在走訪期間
// 持有任何鎖——整張表不會因為單一房間壅塞而停擺。
func (s *Store) ForEach(fn func(*Room)) {
	for _, room := range s.rooms {
		fn(room)
	}
}

// ListAll 取得所有房間的唯讀副本
//
// 回傳的是深拷貝，呼叫端不可能觀察到進行中的變更。
func (s *Store) ListAll() []Snapshot {
	snapshots := make([]Snapshot, 0, len(s.rooms))
	for _, room := range s.rooms {
		snapshots = append(snapshots, room.Snapshot())
	}
	return snapshots
}

// Len 房間數量
func (s *Store) Len() int {
	return len(s.rooms)
}
