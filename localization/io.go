package localization

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"shark-remote/config"
	xerrors "shark-remote/errors"
	xlog "shark-remote/log"
)

// SubPrefix 订阅握手首行前缀（SUB + JSON）。
const SubPrefix = "SUB "

const (
	handshakeTimeout = 5 * time.Second
	dialTimeout      = 5 * time.Second
)

type subHello struct {
	Topic string `json:"topic"`
}

// frame 通道上的一条线格式消息（换行分隔的 JSON）。
type frame struct {
	Topic   string  `json:"topic"`
	Message Message `json:"message"`
}

// subscriberConn 发布端持有的单个订阅连接：写操作互斥，
// 失败即关闭并从发布端注销。
type subscriberConn struct {
	conn  net.Conn
	topic string
	enc   *json.Encoder
	mu    sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
}

func (s *subscriberConn) send(f frame) error {
	if s.closed.Load() {
		return net.ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(f)
}

func (s *subscriberConn) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.Close()
	})
}

// Publisher 话题发布端：接受 TCP 订阅连接，按连接登记的话题
// 过滤并广播消息，写失败的连接直接丢弃。
type Publisher struct {
	log *logrus.Entry
	ln  net.Listener

	mu   sync.RWMutex
	subs map[net.Conn]*subscriberConn

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPublisher 在指定端口启动发布端。
// 参数：
// - port: 监听端口
// - entry: 注入的日志 Entry（为 nil 时使用默认组件字段）
// 返回：
// - *Publisher: 已启动的发布端（用 Close 释放）
// - error: 监听失败原因
func NewPublisher(port int, entry *logrus.Entry) (*Publisher, error) {
	if entry == nil {
		entry = xlog.With(logrus.Fields{"component": "localization-pub"})
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTransport, fmt.Sprintf("listen %d failed", port), err)
	}
	p := &Publisher{
		log:  entry,
		ln:   ln,
		subs: make(map[net.Conn]*subscriberConn),
		done: make(chan struct{}),
	}
	p.wg.Add(1)
	go p.acceptLoop()
	entry.WithField("port", port).Info("标注发布端已启动")
	return p, nil
}

func (p *Publisher) acceptLoop() {
	defer p.wg.Done()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			select {
			case <-p.done:
				return
			default:
			}
			p.log.WithError(err).Error("Accept 失败")
			continue
		}
		p.wg.Add(1)
		go p.handleConn(conn)
	}
}

// handleConn 读取订阅握手并登记连接，之后只为探测断开而持续读。
func (p *Publisher) handleConn(conn net.Conn) {
	defer p.wg.Done()

	topic, r, err := readSubHello(conn)
	if err != nil {
		p.log.WithError(err).WithField("addr", conn.RemoteAddr().String()).Warn("订阅握手失败")
		_ = conn.Close()
		return
	}
	sc := &subscriberConn{conn: conn, topic: topic, enc: json.NewEncoder(conn)}
	p.register(sc)
	p.log.WithFields(logrus.Fields{"addr": conn.RemoteAddr().String(), "topic": topic}).Info("订阅连接建立")

	buf := make([]byte, 512)
	for {
		if _, err := r.Read(buf); err != nil {
			break
		}
	}
	p.unregister(sc)
	sc.close()
	p.log.WithField("addr", conn.RemoteAddr().String()).Info("订阅连接断开")
}

func (p *Publisher) register(sc *subscriberConn) {
	p.mu.Lock()
	p.subs[sc.conn] = sc
	p.mu.Unlock()
}

func (p *Publisher) unregister(sc *subscriberConn) {
	p.mu.Lock()
	delete(p.subs, sc.conn)
	p.mu.Unlock()
}

// Broadcast 向登记了该话题的所有订阅连接广播一条消息。
// 参数：
// - topic: 话题
// - msg: 消息
func (p *Publisher) Broadcast(topic string, msg Message) {
	p.mu.RLock()
	targets := make([]*subscriberConn, 0, len(p.subs))
	for _, sc := range p.subs {
		if sc.topic == topic && !sc.closed.Load() {
			targets = append(targets, sc)
		}
	}
	p.mu.RUnlock()

	f := frame{Topic: topic, Message: msg}
	for _, sc := range targets {
		if err := sc.send(f); err != nil {
			p.unregister(sc)
			sc.close()
		}
	}
}

// Addr 返回发布端实际监听地址（端口 0 时用于测试取真实端口）。
func (p *Publisher) Addr() net.Addr { return p.ln.Addr() }

// Close 停止发布端并断开所有订阅连接（幂等）。
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.ln.Close()
		p.mu.Lock()
		for _, sc := range p.subs {
			sc.close()
		}
		p.subs = make(map[net.Conn]*subscriberConn)
		p.mu.Unlock()
		p.wg.Wait()
		p.log.Info("标注发布端已停止")
	})
}

// readSubHello 读取订阅连接的首行握手（SUB + JSON）。
// 返回：
// - string: 订阅话题
// - *bufio.Reader: 复用的 Reader（避免丢失已读缓冲）
// - error: 握手失败原因
func readSubHello(conn net.Conn) (string, *bufio.Reader, error) {
	r := bufio.NewReaderSize(conn, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	line, err := r.ReadString('\n')
	if err != nil {
		return "", r, xerrors.Wrap(xerrors.CodeBadRequest, "read hello failed", err)
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, SubPrefix) {
		return "", r, xerrors.Wrap(xerrors.CodeBadRequest, "missing hello prefix", fmt.Errorf("got=%q", line))
	}
	var h subHello
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, SubPrefix)), &h); err != nil {
		return "", r, xerrors.Wrap(xerrors.CodeBadRequest, "invalid hello json", err)
	}
	h.Topic = strings.TrimSpace(h.Topic)
	if h.Topic == "" {
		return "", r, xerrors.New(xerrors.CodeBadRequest, "empty topic")
	}
	return h.Topic, r, nil
}

// Subscriber 话题订阅端：连接远端发布端，持续解码消息帧。
type Subscriber struct {
	log   *logrus.Entry
	conn  net.Conn
	topic string
	out   chan Message

	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Subscribe 连接远端发布端并订阅一个话题。
// 参数：
// - host: 发布端主机
// - port: 发布端端口
// - topic: 话题
// - entry: 注入的日志 Entry（为 nil 时使用默认组件字段）
// 返回：
// - *Subscriber: 已启动的订阅端（用 Close 释放）
// - error: 连接或握手失败原因
func Subscribe(host string, port int, topic string, entry *logrus.Entry) (*Subscriber, error) {
	if entry == nil {
		entry = xlog.With(logrus.Fields{"component": "localization-sub"})
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTransport, "dial "+addr+" failed", err)
	}
	hello, err := json.Marshal(subHello{Topic: topic})
	if err != nil {
		_ = conn.Close()
		return nil, xerrors.Wrap(xerrors.CodeInternal, "encode hello", err)
	}
	if _, err := conn.Write(append(append([]byte(SubPrefix), hello...), '\n')); err != nil {
		_ = conn.Close()
		return nil, xerrors.Wrap(xerrors.CodeTransport, "write hello failed", err)
	}
	s := &Subscriber{
		log:   entry,
		conn:  conn,
		topic: topic,
		out:   make(chan Message, busQueue),
	}
	s.wg.Add(1)
	go s.readLoop()
	entry.WithFields(logrus.Fields{"addr": addr, "topic": topic}).Info("已订阅标注通知")
	return s, nil
}

func (s *Subscriber) readLoop() {
	defer s.wg.Done()
	defer close(s.out)

	dec := json.NewDecoder(bufio.NewReaderSize(s.conn, 4096))
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			if !s.closed.Load() {
				s.log.WithError(err).Warn("订阅连接读取失败，退出")
			}
			return
		}
		if f.Topic != s.topic {
			continue
		}
		select {
		case s.out <- f.Message:
		default:
			s.log.WithField("action", f.Message.Action.String()).Warn("订阅队列已满，消息丢弃")
		}
	}
}

// C 返回消息通道（订阅端关闭后该通道也会关闭）。
func (s *Subscriber) C() <-chan Message { return s.out }

// Close 断开订阅连接（幂等）。
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.Close()
		s.wg.Wait()
	})
}

// IO 把总线接到远端：排空出站队列并发布，订阅到的消息交给总线处理。
type IO struct {
	log        *logrus.Entry
	controller *Controller
	pub        *Publisher
	sub        *Subscriber

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewIO 按配置建立标注通知通道。
// 参数：
// - cfg: 通道配置（端口、话题）
// - controller: 标注总线（为 nil 时新建）
// 返回：
// - *IO: 已启动的通道（用 Close 释放）
// - error: 监听或连接失败原因
func NewIO(cfg config.LocalizationConfig, controller *Controller) (*IO, error) {
	log := xlog.With(logrus.Fields{"component": "localization-io"})
	if controller == nil {
		controller = NewController(nil)
	}
	pub, err := NewPublisher(cfg.OutgoingPort, nil)
	if err != nil {
		return nil, err
	}
	sub, err := Subscribe(cfg.IncomingHost, cfg.IncomingPort, cfg.IncomingTopic, nil)
	if err != nil {
		pub.Close()
		return nil, err
	}
	io := &IO{
		log:        log,
		controller: controller,
		pub:        pub,
		sub:        sub,
		done:       make(chan struct{}),
	}
	io.wg.Add(2)
	go io.publishLoop(cfg.OutgoingTopic)
	go io.acceptLoop()
	return io, nil
}

// Controller 返回通道使用的标注总线。
func (io *IO) Controller() *Controller { return io.controller }

func (io *IO) publishLoop(topic string) {
	defer io.wg.Done()
	for {
		select {
		case msg := <-io.controller.Outgoing():
			io.pub.Broadcast(topic, msg)
		case <-io.done:
			return
		}
	}
}

func (io *IO) acceptLoop() {
	defer io.wg.Done()
	for {
		select {
		case msg, ok := <-io.sub.C():
			if !ok {
				return
			}
			io.controller.Accept(msg)
		case <-io.done:
			return
		}
	}
}

// Close 关闭通道并释放两端连接（幂等）。
func (io *IO) Close() {
	io.closeOnce.Do(func() {
		close(io.done)
		io.sub.Close()
		io.pub.Close()
		io.wg.Wait()
		io.log.Info("标注通知通道已关闭")
	})
}
