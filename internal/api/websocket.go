package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/middleware"
	"github.com/tiered-billing-engine/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamMessage is one server reply on the estimate stream.
type streamMessage struct {
	Type     string                    `json:"type"`
	Estimate *service.EstimateResponse `json:"estimate,omitempty"`
	Error    *domain.APIError          `json:"error,omitempty"`
}

// handleEstimateStream re-estimates on every message a billing form sends. A bad
// message gets an error reply; the connection stays open.
func (s *Server) handleEstimateStream(perMessage time.Duration) gin.HandlerFunc {
	if perMessage <= 0 {
		perMessage = 15 * time.Second
	}
	return func(c *gin.Context) {
		correlationID := c.GetString(middleware.CorrelationIDKey)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.logger.WithError(err).WithField("correlation_id", correlationID).Warn("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		log := s.logger.WithField("correlation_id", correlationID)
		log.Debug("Estimate stream opened")

		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		var writeMu sync.Mutex
		write := func(msg streamMessage) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteJSON(msg)
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(pingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					writeMu.Lock()
					err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
					writeMu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("Estimate stream closed unexpectedly")
				}
				return
			}

			reply := s.estimateMessage(c.Request.Context(), data, correlationID, perMessage)
			if err := write(reply); err != nil {
				log.WithError(err).Debug("Estimate stream write failed")
				return
			}
		}
	}
}

func (s *Server) estimateMessage(ctx context.Context, data []byte, correlationID string, timeout time.Duration) streamMessage {
	var req service.EstimateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		bad := domain.NewValidationError("body", "malformed JSON: "+err.Error(), nil)
		return streamMessage{Type: "error", Error: apiError(bad, correlationID)}
	}
	if req.RequestID == "" {
		req.RequestID = correlationID
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.billing.Estimate(ctx, req)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			s.logger.WithFields(logrus.Fields{"correlation_id": correlationID, "error": err}).Error("Stream estimate failed")
		}
		return streamMessage{Type: "error", Error: apiError(err, req.RequestID)}
	}
	return streamMessage{Type: "estimate", Estimate: resp}
}
