// Package pvparena 提供一個 PvP 對戰房間與連線生命週期管理服務。
//
// 管理一組啟動時佈建好的固定房間（競技場），讓兩名玩家加入、準備、
// 開局，並以心跳追蹤每個玩家的活性，逾時自動回收槽位。
//
// 房間生命週期
//
// 房間本身永不建立或銷毀，只在狀態間循環：
//
//	empty → waiting → full → playing → (離開/逾時/結束) → ...
//
// 狀態永遠由佔用與準備事實推導（DeriveStatus），任何操作之後
// 都不可能出現與槽位佔用矛盾的狀態。
//
// 併發安全設計
//
// 互斥的單位是單一房間：
//   - 每個房間一把 RWMutex，所有變更在該房間的寫鎖內完成
//   - 不同房間的操作互不阻塞（沒有全表大鎖）
//   - 清掃逐房取鎖，單一房間壅塞不會放大成全局暫停
//   - 鎖內不做 I/O，事件發佈與日誌都在鎖外
//
// 心跳與逾時
//
// 客戶端每 heartbeat_interval（預設 10s）送一次心跳；超過
// connection_timeout（預設 30s）沒有心跳的槽位會在下一輪清掃
// 被回收。配置層強制 timeout ≥ 2 × interval，避免網路抖動誤殺。
//
// 對局交棒
//
// 房間晉升 playing 時鑄造 gameId 並發佈 arena.game.started 事件
// 到 NATS，實際的對局由外部遊戲引擎接手；對局被放棄（離開、
// 逾時、取消準備）時發佈 arena.game.abandoned，引擎可據此判定
// 棄局。未配置 NATS 時事件落到日誌。
//
// 使用範例
//
// 啟動服務器：
//
//	store, _ := internal.NewStore(cfg.Arena.Rooms)
//	manager := internal.NewManager(store, publisher, cfg.Arena.ConnectionTimeout, logger)
//	sweeper := internal.NewSweeper(manager, cfg.Arena.HeartbeatInterval, logger)
//	sweeper.Start()
//
//	handler := internal.NewHandler(manager, logger)
//	log.Fatal(http.ListenAndServe(":8080", handler.Routes()))
//
// 配置選項
//
// 透過 config.yaml 與命令行參數：
//   - -config：配置檔路徑（預設 config.yaml）
//   - -port：服務監聽端口（覆蓋配置檔）
//   - arena.connection_timeout / arena.heartbeat_interval：活性窗口
//   - arena.rooms：固定房間編制（id、name、stake）
//   - NATS_URL 環境變數：事件發佈目的地
//
// 錯誤處理
//
// 所有業務錯誤帶錯誤碼（ROOM_NOT_FOUND、ALREADY_IN_ROOM、
// ROOM_UNAVAILABLE、PLAYER_NOT_IN_ROOM、PRECONDITION_FAILED、
// NO_ROOM_AVAILABLE），HTTP 層據此對應狀態碼。操作要嘛完整
// 生效、要嘛完全不動狀態，失敗不留半套結果。
package pvparena
