package chat

import (
	"log/slog"
	"net"

	"github.com/google/uuid"
)

type Server struct {
	addr     string
	logger   *slog.Logger
	reg      *Registry
	listener net.Listener
}

func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		logger: logger,
		reg:    NewRegistry(128, logger),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go s.reg.Run()
	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, useful when started on port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}

	s.reg.Stop()
	s.reg.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed; normal shutdown path.
			return
		}

		c := &Client{
			ID:   uuid.New(),
			Conn: conn,
			Out:  make(chan string, 32),
		}

		s.logger.Info("client connected", "addr", conn.RemoteAddr().String(), "session", c.ID)

		go HandleSession(c, s.reg.Events())
	}
}
