package inbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	ichannel "github.com/rmacdonaldsmith/wsgateway/internal/channel"
	"github.com/rmacdonaldsmith/wsgateway/internal/backend"
	idispatch "github.com/rmacdonaldsmith/wsgateway/internal/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/internal/mediation"
	"github.com/rmacdonaldsmith/wsgateway/internal/metrics"
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// serveSession runs one client connection from upgrade to close
func (s *Server) serveSession(ctx context.Context, ws *websocket.Conn, path string) {
	if s.config.ReadLimit > 0 {
		ws.SetReadLimit(s.config.ReadLimit)
	}

	info := channel.Info{
		Port:           s.config.Port,
		Tenant:         s.config.Tenant,
		BroadcastLevel: s.config.BroadcastLevel,
		SubscriberPath: path,
	}

	opts := s.config.Conn
	if opts.Logger == nil {
		opts.Logger = s.logger
	}

	conn := ichannel.NewConn(uuid.NewString(), info, ws, opts)
	logger := s.logger.With(zap.String("conn_id", conn.ID()), zap.String("subscriber_path", path))

	if !s.track(conn) {
		logger.Debug("endpoint stopping, closing session")
		_ = conn.Close()
		<-conn.Done()
		return
	}
	metrics.ActiveConnections.Inc()
	defer func() {
		_ = conn.Close()
		<-conn.Done()
		s.untrack(conn)
		metrics.ActiveConnections.Dec()
		logger.Debug("session closed")
	}()

	if err := s.deps.Registry.Join(ctx, s.identity, path, conn); err != nil {
		logger.Warn("failed to join subscriber group", zap.Error(err))
		return
	}
	defer func() {
		if err := s.deps.Registry.Leave(ctx, s.identity, path, conn.ID()); err != nil {
			logger.Debug("failed to leave subscriber group", zap.Error(err))
		}
	}()

	sender := idispatch.NewResponseSender(s.deps.Dispatcher, conn)

	handshake := message.NewContext(nil)
	handshake.MarkSourceHandshake()
	s.mediate(ctx, sender, handshake, logger)

	var link *backend.Link
	if s.config.Backend != nil {
		var err error
		link, err = s.config.Backend.Dial(ctx, path, conn.ID())
		if err != nil {
			logger.Warn("backend unavailable, closing session", zap.Error(err))
			return
		}

		targetHandshake := message.NewContext(nil)
		targetHandshake.MarkTargetHandshake(link.Channel())
		sender.SendBack(ctx, targetHandshake)

		// a closed backend ends the session
		go func() {
			if err := link.Relay(ctx, sender); err != nil {
				logger.Debug("backend relay ended", zap.Error(err))
			}
			_ = conn.Close()
		}()
	}

	logger.Debug("session established", zap.String("endpoint_identity", string(s.identity)))

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Debug("read loop ended", zap.Error(err))
			}
			return
		}

		frame := channel.NewTextFrame(string(data))
		if mt == websocket.BinaryMessage {
			frame = channel.Frame{Type: channel.FrameBinary, Data: data}
		}

		if link != nil {
			if err := link.Channel().Write(frame); err != nil {
				logger.Debug("backend write dropped", zap.Error(err))
			}
			continue
		}

		s.mediate(ctx, sender, mediation.FrameContext(frame), logger)
	}
}

// mediate runs the endpoint mediator and sends every result back
func (s *Server) mediate(ctx context.Context, sender dispatch.ResponseSender, in *message.Context, logger *zap.Logger) {
	out, err := s.config.Mediator.Mediate(ctx, in)
	if err != nil {
		logger.Warn("mediation failed", zap.Error(err))
		return
	}
	for _, msgCtx := range out {
		sender.SendBack(ctx, msgCtx)
	}
}
