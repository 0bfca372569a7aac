// Package redistest answers the go-redis commands the engine uses from memory.
// It is installed as a client hook, so no connection is ever dialled.
package redistest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type Server struct {
	mu      sync.Mutex
	strings map[string]string
	ttls    map[string]time.Duration
	streams map[string][]redis.XMessage
	next    map[string]int
	groups  map[string]bool
	acked   map[string][]string
	seq     int
	fail    error
}

// NewClient returns a client whose commands are served by a fresh Server.
func NewClient(tb testing.TB) (*redis.Client, *Server) {
	tb.Helper()

	s := &Server{
		strings: make(map[string]string),
		ttls:    make(map[string]time.Duration),
		streams: make(map[string][]redis.XMessage),
		next:    make(map[string]int),
		groups:  make(map[string]bool),
		acked:   make(map[string][]string),
	}
	rdb := redis.NewClient(&redis.Options{Addr: "redistest.invalid:6379", MaxRetries: -1})
	rdb.AddHook(s)
	tb.Cleanup(func() { _ = rdb.Close() })
	return rdb, s
}

// FailWith makes every following command fail with err. nil restores service.
func (s *Server) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// TTL returns the expiry the last SET gave key.
func (s *Server) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

// Acked returns the message ids acknowledged on stream.
func (s *Server) Acked(stream string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked[stream]...)
}

func (s *Server) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (s *Server) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (s *Server) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return s.process
}

func (s *Server) process(_ context.Context, cmd redis.Cmder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail != nil {
		cmd.SetErr(s.fail)
		return s.fail
	}

	args := cmd.Args()
	switch c := cmd.(type) {
	case *redis.StringCmd:
		switch cmd.Name() {
		case "get":
			v, ok := s.strings[arg(args, 1)]
			if !ok {
				c.SetErr(redis.Nil)
				break
			}
			c.SetVal(v)
		case "xadd":
			c.SetVal(s.xadd(args))
		default:
			c.SetErr(unsupported(cmd))
		}

	case *redis.StatusCmd:
		switch cmd.Name() {
		case "set":
			s.set(args)
			c.SetVal("OK")
		case "xgroup":
			key := arg(args, 2) + "/" + arg(args, 3)
			if s.groups[key] {
				c.SetErr(errors.New("BUSYGROUP Consumer Group name already exists"))
				break
			}
			s.groups[key] = true
			c.SetVal("OK")
		default:
			c.SetErr(unsupported(cmd))
		}

	case *redis.XStreamSliceCmd:
		stream := ""
		for i, a := range args {
			if a == "streams" {
				stream = arg(args, i+1)
			}
		}
		i := s.next[stream]
		if i >= len(s.streams[stream]) {
			c.SetErr(redis.Nil)
			break
		}
		s.next[stream] = i + 1
		c.SetVal([]redis.XStream{{Stream: stream, Messages: []redis.XMessage{s.streams[stream][i]}}})

	case *redis.IntCmd:
		if cmd.Name() != "xack" {
			c.SetErr(unsupported(cmd))
			break
		}
		stream := arg(args, 1)
		for _, id := range args[3:] {
			s.acked[stream] = append(s.acked[stream], fmt.Sprint(id))
		}
		c.SetVal(int64(len(args) - 3))

	case *redis.XAutoClaimCmd:
		c.SetVal(nil, "0-0")

	default:
		cmd.SetErr(unsupported(cmd))
	}
	return cmd.Err()
}

func (s *Server) set(args []any) {
	key := arg(args, 1)
	s.strings[key] = arg(args, 2)
	s.ttls[key] = 0
	if len(args) < 5 {
		return
	}
	n, _ := strconv.ParseInt(arg(args, 4), 10, 64)
	switch arg(args, 3) {
	case "ex":
		s.ttls[key] = time.Duration(n) * time.Second
	case "px":
		s.ttls[key] = time.Duration(n) * time.Millisecond
	}
}

func (s *Server) xadd(args []any) string {
	stream := arg(args, 1)
	i := 2
	for i < len(args) && arg(args, i) != "*" {
		i++
	}

	s.seq++
	msg := redis.XMessage{ID: fmt.Sprintf("%d-0", s.seq), Values: make(map[string]any)}
	for j := i + 1; j+1 < len(args); j += 2 {
		msg.Values[arg(args, j)] = arg(args, j+1)
	}
	s.streams[stream] = append(s.streams[stream], msg)
	return msg.ID
}

func arg(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	switch v := args[i].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func unsupported(cmd redis.Cmder) error {
	return fmt.Errorf("redistest: %s is not supported", cmd.Name())
}
