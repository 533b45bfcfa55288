package main

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3l-d1abl0/tempDB-client/common"
)

func testServer(t *testing.T, conf common.ServerConfig) (*server, string, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	s := newServer(conf, common.NewLogger(&logs, "debug", false))

	listen, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.serve(listen, stop) }()

	t.Cleanup(func() {
		close(stop)
		listen.Close()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("serve did not return")
		}
	})
	return s, listen.Addr().String(), &logs
}

func TestReply(t *testing.T) {
	s := newServer(common.DefaultServerConfig(), common.NewLogger(&bytes.Buffer{}, "info", false))
	tests := []struct {
		in   string
		want string
		quit bool
	}{
		{"PING", "PONG", false},
		{"ping", "PONG", false},
		{"ECHO hello   world", "hello world", false},
		{"ECHO", "", false},
		{"SIZE 3", "xxx", false},
		{"SIZE", "ERR usage: SIZE <bytes>", false},
		{"SIZE -4", "ERR size must be between 0 and 1048576", false},
		{"SIZE lots", "ERR size must be between 0 and 1048576", false},
		{"QUIT", "BYE", true},
		{"SET k v", "OK", false},
		{"", "OK", false},
	}
	for _, tt := range tests {
		got, quit := s.reply(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.quit, quit, tt.in)
	}
}

func TestServeDispatch(t *testing.T) {
	conf := common.DefaultServerConfig()
	conf.Reply = "READY"
	_, addr, _ := testServer(t, conf)

	got, err := common.SendInfo(addr, "PING\n")
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", got)

	got, err = common.SendInfo(addr, "anything\n")
	require.NoError(t, err)
	assert.Equal(t, "READY\n", got)
}

func TestServeConversation(t *testing.T) {
	_, addr, _ := testServer(t, common.DefaultServerConfig())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, common.BufferSize)
	for _, step := range []struct{ send, want string }{
		{"ECHO a b\n", "a b\n"},
		{"SIZE 10\n", "xxxxxxxxxx\n"},
		{"QUIT\n", "BYE\n"},
	} {
		require.NoError(t, common.Send(conn, []byte(step.send)))
		n, err := common.Receive(conn, buf)
		require.NoError(t, err)
		assert.Equal(t, step.want, string(buf[:n]))
	}

	_, err = common.Receive(conn, buf)
	assert.Error(t, err, "server closes after QUIT")
}

func TestServeCountsConnections(t *testing.T) {
	conf := common.DefaultServerConfig()
	conf.StatsInterval = 10 * time.Millisecond
	s, addr, _ := testServer(t, conf)

	_, err := common.SendInfo(addr, "PING\n")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return s.totalConns() == 1 && s.activeConns() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProcessLogsRemote(t *testing.T) {
	var logs bytes.Buffer
	s := newServer(common.DefaultServerConfig(), common.NewLogger(&logs, "info", false))

	client, srv := net.Pipe()
	done := make(chan struct{})
	go func() {
		s.process(srv)
		close(done)
	}()

	_, err := client.Write([]byte("PING\n"))
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", string(buf[:n]))
	client.Close()
	<-done

	assert.True(t, strings.Contains(logs.String(), "client connected"))
	assert.Contains(t, logs.String(), "remote=pipe")
}
