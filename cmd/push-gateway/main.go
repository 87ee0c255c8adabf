package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"waimai/internal/pkg/bootstrap"
	"waimai/internal/pkg/logger"
	"waimai/internal/pkg/mq"
	"waimai/internal/pkg/redis"
	"waimai/internal/pkg/session"
)

const (
	serviceName = "push-gateway"
	servicePort = 8088

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	nodeID   = "push-gateway-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 跨域交给网关层处理
			return true
		},
	}
)

// Hub 维护所有活跃的商家端连接并负责消息广播。
// 来单提醒和催单对所有在线商家端广播，由前端按内容展示。
type Hub struct {
	clients    map[string]*Client // key 为 userID
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if old, ok := h.clients[client.userID]; ok {
				// 同一用户重连，挤掉旧连接
				close(old.send)
			}
			h.clients[client.userID] = client
			h.lock.Unlock()
			logger.Logger.Info().Str("user_id", client.userID).Str("node", nodeID).Msg("client registered")
		case client := <-h.unregister:
			h.lock.Lock()
			if cur, ok := h.clients[client.userID]; ok && cur == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Logger.Info().Str("user_id", client.userID).Msg("client unregistered")
		case message := <-h.broadcast:
			h.lock.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 写缓冲打满说明客户端读不动了，丢弃这条
					logger.Logger.Warn().Str("user_id", client.userID).Msg("client send buffer full, message dropped")
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Client 代表一个 WebSocket 连接
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// writePump 把 send 通道里的消息写入连接，并定期发 ping 保活
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 消费客户端消息维持 pong 心跳，连接断开时注销
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// sessionStore 是 serveWs 需要的那部分会话管理能力
type sessionStore interface {
	SetUserGateway(ctx context.Context, userID, nodeID string) error
}

func serveWs(hub *Hub, sessions sessionStore, w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	// 先落会话再注册到 Hub：会话写失败时连接直接关掉，
	// Hub 里不能留下没有读写泵的死客户端
	if err := sessions.SetUserGateway(r.Context(), userID, nodeID); err != nil {
		logger.Logger.Error().Err(err).Str("user_id", userID).Msg("set session failed")
		conn.Close()
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), userID: userID}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeNotifications 从通知主题拉取事件并交给 Hub 广播
func consumeNotifications(ctx context.Context, reader *kafka.Reader, hub *Hub) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Logger.Error().Err(err).Msg("fetch notification message failed")
			continue
		}

		msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
		logger.Ctx(msgCtx).Info().Str("key", string(msg.Key)).Msg("notification received, broadcasting")
		hub.broadcast <- msg.Value

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Msg("commit notification offset failed")
		}
	}
}

func main() {
	consumeCtx, stopConsumer := context.WithCancel(context.Background())

	var reader *kafka.Reader
	var rdb *redis.Client

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) error {
			cfg := appCtx.Config

			var err error
			rdb, err = redis.NewClient(cfg.Infra.Redis.Addrs)
			if err != nil {
				return err
			}
			sessionMgr := session.NewManager(rdb)

			hub := newHub()
			go hub.run()

			reader = mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationsTopic, serviceName)
			go consumeNotifications(consumeCtx, reader, hub)

			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, sessionMgr, w, r)
			})
			return nil
		},
		OnShutdown: func(ctx context.Context) {
			stopConsumer()
			if reader != nil {
				if err := reader.Close(); err != nil {
					logger.Logger.Error().Err(err).Msg("close kafka reader")
				}
			}
			if rdb != nil {
				if err := rdb.Close(); err != nil {
					logger.Logger.Error().Err(err).Msg("close redis client")
				}
			}
		},
	})
}
