package control

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Handler is implemented by internal/daemon to answer control-plane
// requests.
type Handler interface {
	Status() StatusInfo
	Reload() error
	Stop() error
}

// Server listens on a Unix domain socket and dispatches Status/Reload/
// Stop requests to a Handler, mirroring internal/rpc.Server's
// running-flag-guarded dispatch shape but over a plain JSON protocol
// instead of generated protobuf bindings.
type Server struct {
	socketPath string
	handler    Handler
	log        *logrus.Entry

	listener net.Listener
	closed   atomic.Bool
}

// NewServer creates a control server bound to socketPath once Start is
// called.
func NewServer(socketPath string, handler Handler, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		log:        log.WithField("component", "control"),
	}
}

// Start removes any stale socket file, binds a fresh listener, and
// begins accepting connections on its own goroutine.
func (s *Server) Start() error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("control: remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("control: listen on %s: %w", s.socketPath, err)
	}
	s.listener = ln
	s.log.WithField("socket", s.socketPath).Info("control plane listening")

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and removes the socket file.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	s.closed.Store(true)
	err := s.listener.Close()
	os.RemoveAll(s.socketPath)
	s.log.Info("control plane stopped")
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.log.WithError(err).Warn("control plane accept failed")
			continue
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return // client closed or sent malformed input; drop silently
		}
		resp := s.dispatch(req)
		if err := enc.Encode(resp); err != nil {
			s.log.WithError(err).Warn("control plane write failed")
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Command {
	case CmdStatus:
		status := s.handler.Status()
		return Response{Success: true, Status: &status}
	case CmdReload:
		if err := s.handler.Reload(); err != nil {
			return Response{Success: false, Message: err.Error()}
		}
		return Response{Success: true, Message: "configuration reloaded"}
	case CmdStop:
		if err := s.handler.Stop(); err != nil {
			return Response{Success: false, Message: err.Error()}
		}
		return Response{Success: true, Message: "daemon stopping"}
	default:
		return Response{Success: false, Message: fmt.Sprintf("unknown command %q", req.Command)}
	}
}
