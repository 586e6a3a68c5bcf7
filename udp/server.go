package udp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"shark-remote/config"
	xerrors "shark-remote/errors"
	xlog "shark-remote/log"
	"shark-remote/protocol"
)

// Handler 处理一条已解码的入站信封（运行在投递 goroutine 上）。
type Handler func(protocol.Envelope)

// Server 异步 UDP 传输端点：
// - 接收 goroutine 持续解码入站报文并写入有界入站队列
// - 投递 goroutine 逐条调用 Handler，慢处理不会阻塞接收
// - 发送 goroutine 排空有界出站队列，多个调用方并发 Send 不会撕裂报文
type Server struct {
	cfg  config.UDPConfig
	log  *logrus.Entry
	conn *net.UDPConn
	peer *net.UDPAddr

	in  chan protocol.Envelope
	out chan protocol.Envelope

	ok   atomic.Bool
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewServer 创建 UDP 传输端点（尚未绑定套接字）。
// 参数：
// - cfg: UDP 配置（对端地址、接收端口、队列与读超时）
// - entry: 注入的日志 Entry（为 nil 时使用默认组件字段）
func NewServer(cfg config.UDPConfig, entry *logrus.Entry) *Server {
	if entry == nil {
		entry = xlog.With(logrus.Fields{"component": "udp"})
	}
	return &Server{
		cfg:  cfg,
		log:  entry,
		in:   make(chan protocol.Envelope, cfg.ReceiveQueue),
		out:  make(chan protocol.Envelope, cfg.SendQueue),
		done: make(chan struct{}),
	}
}

// Start 绑定接收套接字并启动接收/投递/发送三个 goroutine。
// 绑定失败（端口占用、权限）对组件是致命的，直接返回错误。
// 参数：
// - h: 入站信封处理函数
// 返回：
// - error: 地址解析或绑定失败原因
func (s *Server) Start(h Handler) error {
	peer, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.cfg.SendHost, s.cfg.SendPort))
	if err != nil {
		return xerrors.Wrap(xerrors.CodeTransport, "resolve peer address", err)
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: s.cfg.ReceivePort})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeTransport, "bind receive port", err)
	}
	s.peer = peer
	s.conn = conn
	s.ok.Store(true)
	s.log.WithFields(logrus.Fields{"receive_port": s.cfg.ReceivePort, "peer": peer.String()}).Info("UDP 端点已启动")

	s.wg.Add(3)
	go s.receiveLoop()
	go s.deliverLoop(h)
	go s.sendLoop()
	return nil
}

// Send 将信封放入出站队列（非阻塞）。
// 返回：
// - error: 端点已关闭或队列已满
func (s *Server) Send(env protocol.Envelope) error {
	if !s.ok.Load() {
		return xerrors.New(xerrors.CodeTransport, "transport closed")
	}
	select {
	case s.out <- env:
		return nil
	default:
		return xerrors.New(xerrors.CodeTransport, "send queue full")
	}
}

// Close 停止所有循环并释放套接字（幂等）。
func (s *Server) Close() {
	s.once.Do(func() {
		s.ok.Store(false)
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.wg.Wait()
		s.log.Info("UDP 端点已关闭")
	})
}

// receiveLoop 接收循环：读超时有界，每次循环重查存活标记；
// 单个坏报文只记日志并继续，绝不终止整个接收循环。
func (s *Server) receiveLoop() {
	defer s.wg.Done()
	defer close(s.in)

	buf := make([]byte, protocol.MaxDatagram+1)
	for s.ok.Load() {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadInterval))
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if !s.ok.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.WithError(err).Error("读取 UDP 报文失败，接收循环退出")
			return
		}
		if n > protocol.MaxDatagram {
			s.log.WithFields(logrus.Fields{"bytes": n, "from": addr.String()}).Warn("报文超过最大长度，已丢弃")
			continue
		}
		var env protocol.Envelope
		if err := json.Unmarshal(buf[:n], &env); err != nil {
			s.log.WithError(err).WithField("from", addr.String()).Warn("报文 JSON 解码失败，已丢弃")
			continue
		}
		select {
		case s.in <- env:
		default:
			s.log.Warn("入站队列已满，报文被丢弃")
		}
	}
}

// deliverLoop 投递循环：顺序调用 Handler，入站队列关闭后退出。
func (s *Server) deliverLoop(h Handler) {
	defer s.wg.Done()
	for env := range s.in {
		h(env)
	}
}

// sendLoop 发送循环：串行排空出站队列，保证单个报文字节完整。
func (s *Server) sendLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case env := <-s.out:
			data, err := json.Marshal(env)
			if err != nil {
				s.log.WithError(err).Error("信封 JSON 编码失败")
				continue
			}
			if len(data) > protocol.MaxDatagram {
				s.log.WithField("bytes", len(data)).Error("出站报文超过最大长度，已丢弃")
				continue
			}
			if _, err := s.conn.WriteToUDP(data, s.peer); err != nil {
				s.log.WithError(err).Error("发送 UDP 报文失败")
			}
		}
	}
}
