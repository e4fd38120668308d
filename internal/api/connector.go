package api

import (
	"encoding/json"
	"math"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"orderflow-engine/internal/engine"
	"orderflow-engine/internal/model"
	"orderflow-engine/internal/service"
)

// OkxWsData 适用于 Okx V5 的通用响应结构
type OkxWsData struct {
	Arg struct {
		Channel string `json:"channel"`
		InstId  string `json:"instId"`
	} `json:"arg"`
	Data  json.RawMessage `json:"data"` // 延迟解析
	Event string          `json:"event"`
}

// OkxTradeData 适配 Okx trades 频道数据结构
type OkxTradeData struct {
	Timestamp string `json:"ts"`   // 成交时间 (毫秒字符串)
	Price     string `json:"px"`   // 成交价格
	Size      string `json:"sz"`   // 成交数量 (合约张数)
	Side      string `json:"side"` // buy 或 sell (Taker 方向)
	TradeId   string `json:"tradeId"`
	InstId    string `json:"instId"`
}

// 映射 InstId 到 Symbol (例如 BTC-USDT-SWAP -> BTCUSDT)
type InstMap map[string]string

// Connector 负责维护 WebSocket 连接，把交易所成交流归一化成 TickEvent
// 归一化规则: side 字段原样进入 Tick.Flags ("buy"/"sell")，供 use_flags 策略直接映射
// trades 频道没有 L1 报价，Bid/Ask 置零，use_l1_quote 策略会透明退化到 tick rule
type Connector struct {
	wsConn       *websocket.Conn
	wsURL        string
	instToSymbol InstMap
	tickChannel  chan engine.TickEvent
	closing      chan struct{}
}

// NewConnector 初始化连接器
func NewConnector(wsURL string, symbols []string) *Connector {
	// 确保通道有足够的缓冲区来应对高频数据
	tickChan := make(chan engine.TickEvent, 2048)
	// 构造 instId: 例如 BTCUSDT -> BTC-USDT-SWAP
	instToSymbol := make(InstMap, len(symbols))
	for _, symbol := range symbols {
		instID := symbol[:3] + "-" + symbol[3:] + "-SWAP"
		instToSymbol[instID] = symbol
	}

	service.Logger.Info("Connector initialized", zap.Strings("Symbols", symbols))

	return &Connector{
		wsURL:        wsURL,
		instToSymbol: instToSymbol,
		tickChannel:  tickChan,
		closing:      make(chan struct{}),
	}
}

// Stop 主动断开连接并关闭 Tick 通道，让下游引擎收尾落盘
func (c *Connector) Stop() {
	close(c.closing)
	if c.wsConn != nil {
		c.wsConn.Close()
	}
}

// Start 启动 WebSocket 连接和接收循环
func (c *Connector) Start() {
	service.Logger.Info("Starting Okx WS multi-symbol connection...", zap.String("URL", c.wsURL))

	u, _ := url.Parse(c.wsURL)
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		service.Logger.Fatal("Failed to connect to WS", zap.Error(err))
	}
	c.wsConn = conn
	defer c.wsConn.Close()

	var args []map[string]string
	for instID := range c.instToSymbol {
		args = append(args, map[string]string{"channel": "trades", "instId": instID})
	}
	subscribeMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": args,
	}

	if err := c.wsConn.WriteJSON(subscribeMsg); err != nil {
		service.Logger.Error("Failed to send WS subscription", zap.Error(err))
		return
	}
	service.Logger.Info("Subscribed to all Okx TRADE streams successfully")

	c.readLoop()
}

// readLoop 持续读取 WS 消息并处理
func (c *Connector) readLoop() {
	for {
		_, message, err := c.wsConn.ReadMessage()
		if err != nil {
			select {
			case <-c.closing:
				// 主动停机: 关闭 Tick 通道通知下游流结束
				close(c.tickChannel)
				return
			default:
			}
			service.Logger.Error("Error reading WS message, attempting to reconnect...", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		var wsResp OkxWsData
		if err := json.Unmarshal(message, &wsResp); err != nil {
			continue
		}

		if wsResp.Event != "" {
			continue // 忽略订阅确认等事件消息
		}

		instID := wsResp.Arg.InstId
		if instID == "" || len(wsResp.Data) == 0 {
			continue
		}

		symbol, ok := c.instToSymbol[instID]
		if !ok {
			continue
		}

		if wsResp.Arg.Channel != "trades" {
			continue
		}

		var trades []OkxTradeData
		if err := json.Unmarshal(wsResp.Data, &trades); err != nil {
			service.Logger.Error("Trade data unmarshal error", zap.Error(err))
			continue
		}

		for _, okxTrade := range trades {
			price, err := service.StringToFloat(okxTrade.Price)
			if err != nil {
				continue
			}
			size, err := service.StringToFloat(okxTrade.Size)
			if err != nil {
				continue
			}
			timestamp, err := service.StringToInt64(okxTrade.Timestamp)
			if err != nil {
				continue
			}

			ev := engine.TickEvent{
				Symbol: symbol,
				Tick: model.Tick{
					Timestamp: time.UnixMilli(timestamp).UTC(),
					Price:     price,
					// 永续合约按整数张数成交，四舍五入只是兜底
					Volume: int64(math.Round(size)),
					Flags:  okxTrade.Side, // buy / sell
				},
			}

			// 使用 select/default 防止阻塞 Connector
			select {
			case c.tickChannel <- ev:
			default:
				service.Logger.Warn("Tick channel full! Dropping trade data",
					zap.String("Symbol", symbol))
			}
		}
	}
}

// GetTickChannel 供 DataEngine 消费归一化后的 Tick 流
func (c *Connector) GetTickChannel() chan engine.TickEvent {
	return c.tickChannel
}
