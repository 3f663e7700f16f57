package internal

import (
	"log/slog"
	"sync"
	"time"
)

// Sweeper 定期清掃排程
//
// 清掃本身（Sweep）是被動的：這裡用 Ticker 以 heartbeat_interval
// 的節奏驅動它。排程由宿主程序（main）持有並啟停，不藏在
// Manager 裡面——清掃邏輯和排程解耦，測試時可以直接呼叫
// Manager.Sweep 而不用等計時器。
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper 創建清掃排程（尚未啟動）
func NewSweeper(manager *Manager, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start 啟動清掃 goroutine
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.loop()

	s.logger.Info("清掃排程啟動", "interval", s.interval)
}

// Stop 停止排程並等待當前一輪清掃結束
func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info("清掃排程已停止")
}

// loop 清掃循環
func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.manager.Sweep(time.Now())
		case <-s.stopCh:
			return
		}
	}
}
