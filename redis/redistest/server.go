// Package redistest provides an in-process server that speaks enough RESP to satisfy go-redis
// connection setup, PING and SELECT. It is meant for tests only.
package redistest

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

// DefaultDatabases mirrors the "databases 16" default of a stock Redis server.
const DefaultDatabases = 16

// Server is a simple TCP server that mimics enough of Redis for handle verification.
// It records every SELECT it accepts so tests can check which DB a handle is bound to.
type Server struct {
	listener  net.Listener
	databases int

	wg    sync.WaitGroup
	quit  chan struct{}
	conns sync.Map

	mu      sync.Mutex
	selects []int
	pings   int
}

// NewServer starts a Server on a random localhost port with DefaultDatabases databases.
func NewServer() (*Server, error) {
	return NewServerWithDatabases(DefaultDatabases)
}

// NewServerWithDatabases starts a Server that rejects SELECT of an index >= databases.
func NewServerWithDatabases(databases int) (*Server, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener:  l,
		databases: databases,
		quit:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Host returns the listening host.
func (s *Server) Host() string {
	return s.listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Selects returns the DB indices selected so far, in arrival order.
func (s *Server) Selects() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.selects))
	copy(out, s.selects)
	return out
}

// Pings returns the number of PING commands served.
func (s *Server) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Stop closes the listener and every open connection and waits for handlers to exit.
func (s *Server) Stop() {
	close(s.quit)
	s.listener.Close()
	s.conns.Range(func(key, value interface{}) bool {
		key.(net.Conn).Close()
		return true
	})
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		s.conns.Store(conn, struct{}{})
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(c net.Conn) {
	defer s.wg.Done()
	defer func() {
		c.Close()
		s.conns.Delete(c)
	}()
	reader := bufio.NewReader(c)

	for {
		select {
		case <-s.quit:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "*") {
			continue
		}
		var numArgs int
		fmt.Sscanf(line, "*%d", &numArgs)

		args := make([]string, 0, numArgs)
		for i := 0; i < numArgs; i++ {
			// Bulk string length line, then the value.
			if _, err := reader.ReadString('\n'); err != nil {
				return
			}
			val, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			args = append(args, strings.TrimSpace(val))
		}
		if len(args) == 0 {
			continue
		}
		if _, err := c.Write([]byte(s.reply(args))); err != nil {
			return
		}
	}
}

func (s *Server) reply(args []string) string {
	switch strings.ToUpper(args[0]) {
	case "PING":
		s.mu.Lock()
		s.pings++
		s.mu.Unlock()
		return "+PONG\r\n"
	case "HELLO":
		// Minimal RESP3 map; go-redis only needs the call to succeed.
		return "%1\r\n$7\r\nversion\r\n$5\r\n6.0.0\r\n"
	case "SELECT":
		if len(args) < 2 {
			return "-ERR wrong number of arguments for 'select' command\r\n"
		}
		db, err := strconv.Atoi(args[1])
		if err != nil || db < 0 || db >= s.databases {
			return "-ERR DB index is out of range\r\n"
		}
		s.mu.Lock()
		s.selects = append(s.selects, db)
		s.mu.Unlock()
		return "+OK\r\n"
	case "INFO":
		content := "# Server\r\nrun_id:redistest\r\n"
		return fmt.Sprintf("$%d\r\n%s\r\n", len(content), content)
	}
	return "+OK\r\n"
}
