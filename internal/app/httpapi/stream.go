package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/middleware"
)

var errSymbolsRequired = errors.New("symbols query parameter is required")

const (
	streamInterval   = 5 * time.Second
	streamWriteWait  = 10 * time.Second
	streamMaxSymbols = 20
)

// Cross-origin clients are vetted by the CORS middleware; the upgrader does
// not repeat the check.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type streamFrame struct {
	Type string        `json:"type"`
	Data []asset.Quote `json:"data"`
	At   time.Time     `json:"at"`
}

// stream pushes quote snapshots for the requested symbols over a websocket
// until the client disconnects. Symbols that fail to quote are omitted from
// that frame rather than closing the stream.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	symbols := symbolList(r)
	if len(symbols) == 0 || len(symbols) > streamMaxSymbols {
		writeError(w, http.StatusBadRequest, errSymbolsRequired)
		return
	}
	typ := assetType(r)
	userID := middleware.UserID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	h.log.WithField("user", userID).WithField("symbols", len(symbols)).Debug("quote stream opened")

	// Drain client frames so pongs and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		frame := streamFrame{Type: "quotes", At: time.Now().UTC()}
		for _, symbol := range symbols {
			q, err := h.app.Market.Quote(r.Context(), symbol, typ)
			if err != nil {
				continue
			}
			frame.Data = append(frame.Data, q)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(frame); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
