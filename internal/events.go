package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// 系統設計問題：
//   對局的交棒如何送達外部遊戲引擎？
//
// 只把 gameId 留在房間欄位裡等人來讀是不夠的：對局被放棄
// （離開、逾時）時外部的對局擁有者永遠不會知道。所以狀態轉換
// 發生後（鎖已釋放）明確發佈到 NATS 主題，遊戲引擎訂閱即可接手。
//
// 發佈失敗不影響狀態轉換本身：房間狀態是權威，事件只是通知。

// 事件主題
const (
	SubjectGameStarted   = "arena.game.started"   // full → playing，gameId 交棒
	SubjectGameAbandoned = "arena.game.abandoned" // playing 中有人離開 / 逾時 / 取消準備
	SubjectRoomCleaned   = "arena.room.cleaned"   // 清掃或管理操作重置了房間
)

// GameEvent 房間生命週期事件
type GameEvent struct {
	RoomID    int        `json:"room_id"`
	GameID    string     `json:"game_id,omitempty"`
	Status    RoomStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Publisher 事件發佈介面
//
// Manager 只依賴這個介面；正式環境接 NATS，未配置或測試時
// 用 LogPublisher 落到日誌。
type Publisher interface {
	Publish(subject string, event GameEvent) error
	Close()
}

// NATSPublisher 發佈到 NATS 的實作
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher 連接 NATS 並建立發佈者
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(
		url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("連接 NATS 失敗: %w", err)
	}

	return &NATSPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

// Publish 發佈事件
func (p *NATSPublisher) Publish(subject string, event GameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失敗: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("發佈事件失敗: %w", err)
	}

	p.logger.Debug("事件已發佈",
		"subject", subject,
		"room_id", event.RoomID,
		"game_id", event.GameID)

	return nil
}

// Close 關閉連接（先送完緩衝中的訊息）
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("NATS drain 失敗", "error", err)
	}
}

// LogPublisher 只寫日誌的發佈者（未配置 NATS 時的後備）
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher 建立日誌發佈者
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish 把事件記到日誌
func (p *LogPublisher) Publish(subject string, event GameEvent) error {
	p.logger.Info("房間事件",
		"subject", subject,
		"room_id", event.RoomID,
		"game_id", event.GameID,
		"status", event.Status,
		"reason", event.Reason)
	return nil
}

// Close 無資源可釋放
func (p *LogPublisher) Close() {}
