package api

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-desktop/render"
	"github.com/hoshinonyaruko/snake-desktop/structs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Sender accepts directions for the game driver.
type Sender interface {
	Send(dir structs.Direction) bool
}

// Event is what the websocket stream carries.
type Event struct {
	Type     string           `json:"type"` // frame, game_over
	Message  string           `json:"message,omitempty"`
	Snapshot structs.Snapshot `json:"snapshot"`
}

// Server is the HTTP display/input surface.
type Server struct {
	router   *gin.Engine
	raster   *render.Rasterizer
	sprites  render.Sprites
	limiter  *rate.Limiter
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sender   Sender
	frame    render.Frame
	snap     structs.Snapshot
	version  int
	pngCache []byte
	pngVer   int
	ack      chan struct{}
	clients  map[chan Event]struct{}
}

// Options configure optional parts of the server.
type Options struct {
	InputRPS int          // directions accepted per second
	Metrics  http.Handler // mounted at /metrics when set
}

// New builds the router. Bind must be called before directions are accepted.
func New(raster *render.Rasterizer, sprites render.Sprites, opts Options) *Server {
	rps := opts.InputRPS
	if rps <= 0 {
		rps = 20
	}
	s := &Server{
		raster:  raster,
		sprites: sprites,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pngVer:  -1,
		clients: make(map[chan Event]struct{}),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	// 处理玩家改变方向
	router.GET("/update-direction", s.UpdateDirection())
	// 渲染当前画面，返回 PNG
	router.GET("/render-map", s.RenderMapHandler())
	router.GET("/state", s.StateHandler())
	// 游戏结束后确认分数
	router.GET("/acknowledge", s.AcknowledgeHandler())
	router.GET("/ws", s.StreamHandler())
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	s.router = router
	return s
}

// Bind connects the server to the driver that consumes directions.
func (s *Server) Bind(sender Sender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http surface listening")
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrapf(err, "api: listen on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}

// Present stores the latest frame and pushes it to stream clients.
func (s *Server) Present(f render.Frame, snap structs.Snapshot) {
	s.mu.Lock()
	s.frame = f
	s.snap = snap
	s.version++
	s.mu.Unlock()
	s.broadcast(Event{Type: "frame", Snapshot: snap})
}

// AnnounceFinalScore waits for GET /acknowledge.
func (s *Server) AnnounceFinalScore(ctx context.Context, snap structs.Snapshot) error {
	ack := make(chan struct{})
	s.mu.Lock()
	s.ack = ack
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.ack = nil
		s.mu.Unlock()
	}()

	s.broadcast(Event{Type: "game_over", Message: render.FinalScoreMessage(snap.Score), Snapshot: snap})

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) UpdateDirection() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("direction")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: direction"})
			return
		}
		dir, ok := structs.ParseDirection(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid direction '" + raw + "' provided"})
			return
		}
		if !s.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many direction updates"})
			return
		}

		s.mu.RLock()
		sender := s.sender
		s.mu.RUnlock()
		if sender == nil || !sender.Send(dir) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Game is not accepting input"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Direction updated successfully", "direction": dir.String()})
	}
}

func (s *Server) RenderMapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := s.renderPNG()
		if err != nil {
			log.WithError(err).Error("render map")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render map"})
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", data)
	}
}

// renderPNG rasterises the latest frame, reusing the last encoding while
// the frame has not changed.
func (s *Server) renderPNG() ([]byte, error) {
	s.mu.RLock()
	if s.pngVer == s.version && s.pngCache != nil {
		data := s.pngCache
		s.mu.RUnlock()
		return data, nil
	}
	frame, version := s.frame, s.version
	s.mu.RUnlock()

	if frame.Width == 0 {
		return nil, errors.New("api: no frame presented yet")
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, s.raster.Rasterize(frame, s.sprites)); err != nil {
		return nil, errors.Wrap(err, "api: encode png")
	}

	s.mu.Lock()
	if version >= s.pngVer {
		s.pngCache = buf.Bytes()
		s.pngVer = version
	}
	s.mu.Unlock()
	return buf.Bytes(), nil
}

func (s *Server) StateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.RLock()
		snap := s.snap
		s.mu.RUnlock()
		c.JSON(http.StatusOK, snap)
	}
}

func (s *Server) AcknowledgeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		ack := s.ack
		s.ack = nil
		s.mu.Unlock()
		if ack == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Game is not over"})
			return
		}
		close(ack)
		c.JSON(http.StatusOK, gin.H{"message": "Final score acknowledged"})
	}
}
