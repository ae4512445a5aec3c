package uds

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"os"
	"slices"
	"strings"

	"github.com/zeptools/certgw/svc"
)

const maxLine = 64 << 10

// Service serves operator commands on a unix socket. A connection may ask for help or send
// unknown commands any number of times; it is closed after the first known command or "quit".
type Service struct {
	*svc.Lifecycle
	SocketPath string
	CmdMap     map[string]CmdHnd
	listener   net.Listener
}

var _ svc.Service = (*Service)(nil)

func NewService(parentCtx context.Context, sockPath string, cmdMap map[string]CmdHnd) *Service {
	return &Service{
		Lifecycle:  svc.NewLifecycle(parentCtx, "UDSService"),
		SocketPath: sockPath,
		CmdMap:     cmdMap,
	}
}

// Start binds the socket (owner-only) and serves in the background.
// Bind errors are returned. The serve loop reports its end on Done().
func (s *Service) Start() error {
	if err := s.Begin(); err != nil {
		return err
	}
	_ = os.Remove(s.SocketPath) // stale socket of a previous run
	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("uds: listen %q: %w", s.SocketPath, err)
	}
	if err = os.Chmod(s.SocketPath, 0o600); err != nil {
		_ = listener.Close()
		_ = os.Remove(s.SocketPath)
		return fmt.Errorf("uds: chmod %q: %w", s.SocketPath, err)
	}
	s.listener = listener
	context.AfterFunc(s.Ctx, s.closeListener)
	go s.serve()
	return nil
}

func (s *Service) closeListener() {
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("[ERROR][UDS] close listener: %v", err)
	}
	if err := os.Remove(s.SocketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[ERROR][UDS] remove socket: %v", err)
	}
}

func (s *Service) serve() {
	log.Printf("[INFO][UDS] listening on %q", s.SocketPath)
	for {
		conn, err := s.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			log.Printf("[INFO][UDS] socket closed")
			s.Finish(nil)
			return
		}
		if err != nil {
			log.Printf("[ERROR][UDS] accept: %v", err)
			continue
		}
		go s.session(conn)
	}
}

// session reads command lines until one of them ends the connection
func (s *Service) session(conn net.Conn) {
	ctx, cancel := context.WithCancel(s.Ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() { _ = conn.Close() }()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 1024), maxLine)
	for sc.Scan() {
		args := strings.Fields(sc.Text())
		if len(args) == 0 {
			continue
		}
		if !s.dispatch(ctx, args, conn) {
			return
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("[ERROR][UDS] read: %v", err)
	}
}

// dispatch runs one command line and reports whether the connection stays open
func (s *Service) dispatch(ctx context.Context, args []string, w io.Writer) bool {
	name := args[0]
	switch name {
	case "quit":
		return false
	case "help":
		s.writeHelp(w)
		return true
	}
	cmd, ok := s.CmdMap[name]
	if !ok {
		_, _ = fmt.Fprintf(w, "unknown command: %s (try help)\n", name)
		return true
	}
	line := strings.Join(args, " ")
	log.Printf("[INFO][UDS] `%s`", line)
	if err := cmd.Fn(ctx, args[1:], w); err != nil {
		log.Printf("[ERROR][UDS] `%s`: %v", line, err)
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
		if cmd.Usage != "" {
			_, _ = fmt.Fprintf(w, "usage: %s\n", cmd.Usage)
		}
	}
	return false
}

func (s *Service) writeHelp(w io.Writer) {
	names := make([]string, 0, len(s.CmdMap))
	for name := range s.CmdMap {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cmd := s.CmdMap[name]
		usage := cmd.Usage
		if usage == "" {
			usage = name
		}
		_, _ = fmt.Fprintf(w, "%-28s %s\n", usage, cmd.Desc)
	}
	_, _ = fmt.Fprintf(w, "%-28s %s\n", "quit", "close the connection")
}
