package ws

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"HandsFreeReader/internal/service/landmark"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Publisher принимает кадры от внешнего детектора (landmark.Feed).
type Publisher interface {
	Publish(f landmark.Frame)
}

// Ingest websocket-приёмник кадров, по одному landmark.Frame в JSON-сообщении.
// Кадры публикуются всегда, даже если модальность не запущена: Feed хранит только последний.
type Ingest struct {
	pub      Publisher
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewIngest(pub Publisher, logger *zap.SugaredLogger) *Ingest {
	return &Ingest{
		pub:    pub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (in *Ingest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := in.upgrader.Upgrade(w, r, nil)
	if err != nil {
		in.logger.Warnw("Landmark upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(1 << 20)
	in.logger.Infow("Landmark detector connected", "remote", r.RemoteAddr)

	var frames, bad int
	started := time.Now()
	for {
		var f landmark.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if isDecodeError(err) {
				bad++
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				in.logger.Debugw("Landmark stream read ended", "error", err)
			}
			break
		}
		if f.Width <= 0 || f.Height <= 0 {
			bad++
			continue
		}
		frames++
		in.pub.Publish(f)
	}
	in.logger.Infow("Landmark detector disconnected",
		"remote", r.RemoteAddr,
		"frames", frames,
		"rejected", bad,
		"took", time.Since(started).String(),
	)
}

// isDecodeError битое сообщение; соединение при этом остаётся рабочим.
func isDecodeError(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ) || errors.Is(err, io.ErrUnexpectedEOF)
}
