package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 整個應用的配置
type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Arena struct {
		// ConnectionTimeout 心跳逾時：超過這個時間沒有心跳就踢出槽位
		ConnectionTimeout time.Duration `yaml:"connection_timeout"`
		// HeartbeatInterval 客戶端心跳節奏，同時也是清掃的執行間隔
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
		// Rooms 固定房間編制（id、name、stake），啟動後不變
		Rooms []RoomConfig `yaml:"rooms"`
	} `yaml:"arena"`

	NATS struct {
		// URL 空字串表示不接 NATS，事件落到日誌
		URL string `yaml:"url"`
	} `yaml:"nats"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig 返回預設配置（標準編制：四間房、賭注 10000）
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Arena.ConnectionTimeout = 30 * time.Second
	cfg.Arena.HeartbeatInterval = 10 * time.Second
	cfg.Arena.Rooms = []RoomConfig{
		{ID: 1, Name: "Alpha Arena", Stake: 10000},
		{ID: 2, Name: "Beta Battle", Stake: 10000},
		{ID: 3, Name: "Gamma Ground", Stake: 10000},
		{ID: 4, Name: "Delta Dome", Stake: 10000},
	}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// LoadConfig 從 yaml 檔載入配置，檔案不存在時退回預設值
//
// NATS_URL 環境變數可覆蓋配置檔（生產環境常用）。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置檔失敗: %w", err)
	}

	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NATS.URL = url
	}

	return cfg, cfg.Validate()
}

// Validate 檢查配置的一致性
//
// connection_timeout 必須至少是 heartbeat_interval 的兩倍：
// 一般的網路抖動就足以讓單次心跳遲到，窗口太緊會誤殺活人。
func (c *Config) Validate() error {
	if c.Arena.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval 必須為正: %v", c.Arena.HeartbeatInterval)
	}
	if c.Arena.ConnectionTimeout < 2*c.Arena.HeartbeatInterval {
		return fmt.Errorf("connection_timeout (%v) 必須至少是 heartbeat_interval (%v) 的兩倍",
			c.Arena.ConnectionTimeout, c.Arena.HeartbeatInterval)
	}
	if len(c.Arena.Rooms) == 0 {
		return fmt.Errorf("必須至少配置一間房間")
	}
	seen := make(map[int]bool, len(c.Arena.Rooms))
	for _, room := range c.Arena.Rooms {
		if seen[room.ID] {
			return fmt.Errorf("房間 id 重複: %d", room.ID)
		}
		seen[room.ID] = true
	}
	return nil
}
