package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/3l-d1abl0/tempDB-client/common"
)

// Largest reply SIZE will produce.
const maxSize = 1 << 20

type server struct {
	conf   common.ServerConfig
	log    *logrus.Logger
	active int64
	total  int64
}

func newServer(conf common.ServerConfig, logger *logrus.Logger) *server {
	return &server{conf: conf, log: logger}
}

// process answers every chunk read from conn with one line.
func (s *server) process(conn net.Conn) {
	defer conn.Close()
	atomic.AddInt64(&s.total, 1)
	atomic.AddInt64(&s.active, 1)
	defer atomic.AddInt64(&s.active, -1)

	entry := s.log.WithField("remote", conn.RemoteAddr().String())
	entry.Info("client connected")

	reader := bufio.NewReader(conn)
	buf := make([]byte, s.conf.ReadBuffer)
	for {
		cnt, err := reader.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				entry.WithError(err).Warn("read from client failed")
			}
			entry.Info("client disconnected")
			return
		}
		recvStr := strings.TrimSpace(string(buf[:cnt]))
		entry.WithField("bytes", cnt).Debugf("received %q", recvStr)

		reply, quit := s.reply(recvStr)
		if _, err = conn.Write([]byte(reply + "\n")); err != nil {
			entry.WithError(err).Warn("write to client failed")
			return
		}
		if quit {
			entry.Info("client quit")
			return
		}
	}
}

// reply dispatches on the first field of a request. The bool asks to close the
// connection after replying.
func (s *server) reply(recvStr string) (string, bool) {
	recvArray := strings.Fields(recvStr)
	if len(recvArray) == 0 {
		return s.conf.Reply, false
	}
	switch strings.ToUpper(recvArray[0]) {
	case "PING":
		return "PONG", false
	case "ECHO":
		return strings.Join(recvArray[1:], " "), false
	case "SIZE":
		if len(recvArray) != 2 {
			return "ERR usage: SIZE <bytes>", false
		}
		n, err := strconv.Atoi(recvArray[1])
		if err != nil || n < 0 || n > maxSize {
			return fmt.Sprintf("ERR size must be between 0 and %d", maxSize), false
		}
		return strings.Repeat("x", n), false
	case "QUIT":
		return "BYE", true
	}
	return s.conf.Reply, false
}

func (s *server) activeConns() int64 { return atomic.LoadInt64(&s.active) }

func (s *server) totalConns() int64 { return atomic.LoadInt64(&s.total) }

func (s *server) report() {
	s.log.WithFields(logrus.Fields{
		"active": s.activeConns(),
		"total":  s.totalConns(),
	}).Info("connection stats")
}

// serve accepts until stop is closed. The caller closes listen to unblock Accept.
func (s *server) serve(listen net.Listener, stop <-chan struct{}) error {
	go wait.Until(s.report, s.conf.StatsInterval, stop)

	for {
		conn, err := listen.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.WithError(err).Warn("Accept() failed")
			continue
		}
		go s.process(conn)
	}
}

func main() {
	confPath := flag.String("conf", common.ServerConfPath, "path of the YAML config file")
	initConf := flag.Bool("init", false, "write the effective config to -conf and exit")
	flag.Parse()

	conf, found, err := common.LoadServerConfig(*confPath)
	logger := common.NewLogger(os.Stderr, conf.LogLevel, true)
	if err != nil {
		logger.WithError(err).Fatalf("load %s", *confPath)
	}
	if !found {
		logger.Infof("%s not found, using defaults", *confPath)
	}

	if *initConf {
		if err = common.SaveServerConfig(*confPath, conf); err != nil {
			logger.WithError(err).Fatalf("write %s", *confPath)
		}
		logger.Infof("wrote %s", *confPath)
		return
	}

	listen, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		logger.WithError(err).Fatal("Listen() failed")
	}
	logger.Infof("listening on %s", listen.Addr())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		listen.Close()
	}()

	if err = newServer(conf, logger).serve(listen, ctx.Done()); err != nil {
		logger.WithError(err).Error("server stopped")
	}
}
