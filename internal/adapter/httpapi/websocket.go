package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simaogato/papertrade-backend/internal/adapter/present"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// requests are already authenticated by token
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamInstrument names one symbol in a stream request
type streamInstrument struct {
	Symbol     string `json:"symbol"`
	AssetClass string `json:"asset_class"`
}

// streamRequest is sent by the client: {"type": "subscribe"|"unsubscribe", "instruments": [...]}
type streamRequest struct {
	Type        string             `json:"type"`
	Instruments []streamInstrument `json:"instruments"`
}

// streamEvent is sent by the server: "price" with a quote, "subscribed",
// or "error"
type streamEvent struct {
	Type        string         `json:"type"`
	Quote       present.Object `json:"quote,omitempty"`
	Instruments []string       `json:"instruments,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(evt streamEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(evt)
}

func (h *Handler) priceStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	sub := h.PriceFeed.Subscribe()
	h.Logger.Debug("price stream opened", "subscribers", h.PriceFeed.Subscribers())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for q := range sub.Updates() {
			if err := ws.send(streamEvent{Type: "price", Quote: present.Quote(q)}); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}

		instruments, err := parseInstruments(req.Instruments)
		if err != nil {
			_ = ws.send(streamEvent{Type: "error", Error: err.Error()})
			continue
		}
		switch req.Type {
		case "subscribe":
			h.PriceFeed.Update(sub, instruments, nil)
		case "unsubscribe":
			h.PriceFeed.Update(sub, nil, instruments)
		default:
			_ = ws.send(streamEvent{Type: "error", Error: "unknown request type " + req.Type})
			continue
		}
		names := make([]string, 0, len(instruments))
		for _, inst := range instruments {
			names = append(names, inst.Key())
		}
		_ = ws.send(streamEvent{Type: req.Type + "d", Instruments: names})
	}

	h.PriceFeed.Unsubscribe(sub)
	<-writerDone
	h.Logger.Debug("price stream closed")
}

func parseInstruments(in []streamInstrument) ([]domain.Instrument, error) {
	out := make([]domain.Instrument, 0, len(in))
	for _, it := range in {
		class, err := assetClass(it.AssetClass)
		if err != nil {
			return nil, err
		}
		sym := domain.NormalizeSymbol(it.Symbol)
		if sym == "" {
			return nil, badRequest("symbol cannot be empty")
		}
		out = append(out, domain.Instrument{Symbol: sym, AssetClass: class})
	}
	return out, nil
}
