package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neuroplastio/neio-remote/internal/clientsvc"
	"github.com/neuroplastio/neio-remote/internal/notify"
)

var errStreamClosed = errors.New("event stream closed")

// StreamInfo describes a connected event stream.
type StreamInfo struct {
	Remote      string
	UserAgent   string
	ConnectedAt time.Time
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn("failed to accept event stream", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	id := uuid.NewString()
	log := s.log.With(zap.String("stream", id), zap.String("remote", r.RemoteAddr))
	log.Info("Event stream connected")
	s.track(r, clientsvc.VisitStream)

	err = s.serveStream(r.Context(), conn, id, StreamInfo{
		Remote:      r.RemoteAddr,
		UserAgent:   r.UserAgent(),
		ConnectedAt: time.Now(),
	}, log)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
	default:
		log.Debug("Event stream error", zap.Error(err))
	}
	log.Info("Event stream disconnected")
	conn.Close(websocket.StatusNormalClosure, "")
}

// serveStream forwards bus events to the connection and handles inbound
// frames until either direction fails.
func (s *Server) serveStream(ctx context.Context, conn *websocket.Conn, id string, info StreamInfo, log *zap.Logger) error {
	group, ctx := errgroup.WithContext(ctx)
	events := s.bus.Subscribe(ctx)

	s.streams.Store(id, info)
	s.active.Inc()
	defer func() {
		s.streams.Delete(id)
		s.active.Dec()
	}()

	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-events:
				if !ok {
					return errStreamClosed
				}
				if err := wsjson.Write(ctx, conn, event); err != nil {
					return fmt.Errorf("failed to send %s: %w", event.Type, err)
				}
			}
		}
	})
	group.Go(func() error {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return err
			}
			var event notify.Event
			if err := json.Unmarshal(data, &event); err != nil {
				log.Debug("Ignoring malformed frame", zap.Error(err))
				continue
			}
			if !event.Type.Valid() {
				log.Debug("Ignoring unknown event", zap.String("type", string(event.Type)))
				continue
			}
			switch event.Type {
			case notify.Ping:
				s.bus.Publish(ctx, notify.NewEvent(notify.Pong))
			default:
				log.Debug("Ignoring client event", zap.String("type", string(event.Type)))
			}
		}
	})
	return group.Wait()
}

// Streams returns the currently connected event streams keyed by stream id.
func (s *Server) Streams() map[string]StreamInfo {
	out := make(map[string]StreamInfo, s.streams.Size())
	s.streams.Range(func(id string, info StreamInfo) bool {
		out[id] = info
		return true
	})
	return out
}
