package notify

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a minimal SMTP server that records DATA payloads. rcptCode is
// the reply given to RCPT TO.
type fakeSMTP struct {
	ln       net.Listener
	rcptCode int

	mu       sync.Mutex
	messages []string
	rcpts    int
}

func startFakeSMTP(t *testing.T, rcptCode int) *fakeSMTP {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTP{ln: ln, rcptCode: rcptCode}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 fake")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			_ = tp.PrintfLine("250 ok")
		case strings.HasPrefix(cmd, "RCPT TO"):
			s.mu.Lock()
			s.rcpts++
			s.mu.Unlock()
			if s.rcptCode == 250 {
				_ = tp.PrintfLine("250 ok")
			} else {
				_ = tp.PrintfLine("%d mailbox unavailable", s.rcptCode)
			}
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, string(body))
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 ok")
		}
	}
}

func (s *fakeSMTP) sender(attempts uint) *SMTPSender {
	host, port, _ := net.SplitHostPort(s.ln.Addr().String())
	return NewSMTPSender(SMTPConfig{
		Host:       host,
		Port:       port,
		From:       "planner@example.com",
		Attempts:   attempts,
		RetryDelay: time.Millisecond,
	})
}

func (s *fakeSMTP) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...), s.rcpts
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := startFakeSMTP(t, 250)
	sender := srv.sender(1)
	sender.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

	err := sender.Send(context.Background(), Message{
		To:      "alice@example.com",
		ToName:  "Alice",
		Subject: "Task Due Tomorrow: Pay rent",
		Body:    "line one\nline two",
	})
	require.NoError(t, err)

	messages, _ := srv.snapshot()
	require.Len(t, messages, 1)
	msg := messages[0]
	assert.Contains(t, msg, "From: planner@example.com")
	assert.Contains(t, msg, "To: Alice <alice@example.com>")
	assert.Contains(t, msg, "Subject: Task Due Tomorrow: Pay rent")
	assert.Contains(t, msg, "line one\nline two")
}

func TestSMTPSenderDoesNotRetryPermanentFailure(t *testing.T) {
	srv := startFakeSMTP(t, 550)

	err := srv.sender(3).Send(context.Background(), Message{To: "nobody@example.com", Subject: "x", Body: "y"})
	require.Error(t, err)

	_, rcpts := srv.snapshot()
	assert.Equal(t, 1, rcpts)
}

func TestSMTPSenderRetriesTransientFailure(t *testing.T) {
	srv := startFakeSMTP(t, 451)

	err := srv.sender(3).Send(context.Background(), Message{To: "busy@example.com", Subject: "x", Body: "y"})
	require.Error(t, err)

	_, rcpts := srv.snapshot()
	assert.Equal(t, 3, rcpts)
}

func TestSMTPSenderDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	host, port, _ := net.SplitHostPort(addr)
	sender := NewSMTPSender(SMTPConfig{Host: host, Port: port, From: "a@b.c", Attempts: 2, RetryDelay: time.Millisecond})
	assert.Error(t, sender.Send(context.Background(), Message{To: "x@y.z"}))
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(&textproto.Error{Code: 421, Msg: "try later"}))
	assert.False(t, transient(&textproto.Error{Code: 550, Msg: "no such user"}))
	assert.False(t, transient(context.DeadlineExceeded))
	assert.True(t, transient(bufio.ErrBufferFull))
}
