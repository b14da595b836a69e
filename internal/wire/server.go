package wire

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"time"

	"fastprop/internal/obs"
	"fastprop/pkg/errs"
	"fastprop/pkg/pipeline"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Server listens on a loopback-only TCP socket and dispatches one framed
// JSON command per line (§6). Commands arriving on one connection are
// handled one after another; every accepted connection is served on its
// own goroutine, so separate connections run concurrently.
type Server struct {
	Addr    string
	Manager *pipeline.Manager
	Store   *pipeline.FrameStore

	listener net.Listener
}

// NewServer records addr; ListenAndServe binds it after checking that its
// host is a loopback address (§6).
func NewServer(addr string, manager *pipeline.Manager, store *pipeline.FrameStore) *Server {
	return &Server{Addr: addr, Manager: manager, Store: store}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	host, _, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return errs.New(errs.UserInput, "WIRE_NON_LOOPBACK_ADDR", "wire server address must be a loopback address: "+s.Addr)
	}
	lc := net.ListenConfig{}
	l, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	s.listener = l
	obs.GetLogger().Info("wire server listening", zap.String("addr", s.Addr))

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				obs.GetLogger().Warn("accept failed", zap.Error(err))
				continue
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	logger := obs.GetLogger().With(zap.String("remote", conn.RemoteAddr().String()))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		start := time.Now()
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		env, err := ParseEnvelope(line)
		var resp Response
		if err != nil {
			resp = Fail(err)
		} else {
			resp = s.dispatch(env)
		}
		obs.WireCommandLatency.WithLabelValues(env.Type).Observe(time.Since(start).Seconds())

		if err := writeResponse(writer, resp); err != nil {
			logger.Warn("write failed", zap.Error(err))
			return
		}
	}
}

// writeResponse frames one reply: a JSON status line (its Payload field
// omitted whenever ArrowPayload carries the actual data), followed, only
// for Arrow-bearing responses, by a 4-byte big-endian length and the raw
// Arrow IPC stream bytes (§6's "payload (column bytes via Arrow IPC, or a
// JSON document)" — the two payload kinds never share one framing).
func writeResponse(w *bufio.Writer, resp Response) error {
	statusLine := resp
	if resp.ArrowPayload != nil {
		statusLine.Payload = nil
	}
	body, err := json.Marshal(statusLine)
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if _, err := w.Write([]byte{'\n'}); err != nil {
		return err
	}

	if resp.ArrowPayload != nil {
		var lenPrefix [4]byte
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(resp.ArrowPayload)))
		if _, err := w.Write(lenPrefix[:]); err != nil {
			return err
		}
		if _, err := w.Write(resp.ArrowPayload); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (s *Server) dispatch(env Envelope) Response {
	switch env.Type {
	case "is_alive":
		return OK()
	case "shutdown":
		go func() {
			if s.listener != nil {
				s.listener.Close()
			}
		}()
		return OK()
	default:
		return s.dispatchDomain(env)
	}
}
