// Package admin serves the operator console: a websocket endpoint that
// accepts line commands for inspecting and steering zones, rifts and the
// expiry registries.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/l1jgo/gamecore/internal/config"
	"github.com/l1jgo/gamecore/internal/expiry"
	"github.com/l1jgo/gamecore/internal/rift"
	"github.com/l1jgo/gamecore/internal/world"
	"github.com/l1jgo/gamecore/internal/zone"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	authTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	watchQueue   = 256
)

// Deps are the subsystems the console can reach.
type Deps struct {
	World    *world.State
	Zones    *zone.Manager
	Rifts    *rift.Manager
	Registry []*expiry.Registry
}

// Console is the admin websocket server.
type Console struct {
	cfg  config.AdminConfig
	deps Deps
	log  *zap.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	srv      *http.Server
}

func NewConsole(cfg config.AdminConfig, deps Deps, log *zap.Logger) *Console {
	return &Console{
		cfg:  cfg,
		deps: deps,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// HashPassword produces the value for admin.password_hash.
func HashPassword(raw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (c *Console) checkPassword(raw string) bool {
	if c.cfg.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.cfg.PasswordHash), []byte(raw)) == nil
}

// Handler returns the mux serving /admin.
func (c *Console) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin", c.serveWS)
	return mux
}

// Start listens on the configured address. It returns once the listener is
// bound.
func (c *Console) Start() error {
	ln, err := net.Listen("tcp", c.cfg.BindAddress)
	if err != nil {
		return err
	}
	c.srv = &http.Server{Handler: c.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("管理介面錯誤", zap.Error(err))
		}
	}()
	c.log.Info("管理介面已啟動", zap.String("addr", ln.Addr().String()))
	return nil
}

func (c *Console) Shutdown(ctx context.Context) error {
	if c.srv == nil {
		return nil
	}
	return c.srv.Shutdown(ctx)
}

// conn serializes writes: gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (w *conn) write(typ int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.ws.WriteMessage(typ, b)
}

func (w *conn) reply(s string) error {
	return w.write(websocket.TextMessage, []byte(s))
}

// SendFrame lets a watch outbox stream binary frames over the socket.
func (w *conn) SendFrame(frame []byte) error {
	return w.write(websocket.BinaryMessage, frame)
}

func (c *Console) serveWS(rw http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()
	w := &conn{ws: ws}
	id := c.nextID.Add(1)
	log := c.log.With(zap.Uint64("admin", id), zap.String("ip", r.RemoteAddr))

	// First message must be "auth <password>".
	_ = ws.SetReadDeadline(time.Now().Add(authTimeout))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return
	}
	pw, ok := strings.CutPrefix(strings.TrimSpace(string(msg)), "auth ")
	if !ok || !c.checkPassword(pw) {
		log.Warn("管理介面驗證失敗")
		_ = w.reply("ERR auth")
		return
	}
	_ = ws.SetReadDeadline(time.Time{})
	log.Info("管理員登入")
	if err := w.reply("OK"); err != nil {
		return
	}

	s := &session{id: id, console: c, w: w, log: log}
	defer s.close()
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}
		line := strings.TrimSpace(string(msg))
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}
		if err := w.reply(s.exec(line)); err != nil {
			return
		}
	}
}
