package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shark-remote/config"
	xerrors "shark-remote/errors"
	xlog "shark-remote/log"
	"shark-remote/protocol"
	"shark-remote/status"
	"shark-remote/udp"
)

// Sender 出站信封发送接口（由 udp.Server 实现，测试可注入伪实现）。
type Sender interface {
	Send(env protocol.Envelope) error
}

// Client 远控客户端门面：持有连接状态、各视频的打开/播放状态、
// 最近一次的视频与播放器信息，以及标注工作集。
// 每个变更命令都先做推测更新，成功响应提交、失败响应回退。
// 失败默认只记日志不上抛，调用方通过状态或同步变体观察结果。
type Client struct {
	sender Sender
	cfg    config.UDPConfig
	log    *logrus.Entry

	cor    *correlator
	router *router

	transport *udp.Server

	mu            sync.Mutex
	connected     bool
	openState     map[uuid.UUID]status.VideoOpenState
	focusedInfo   *protocol.VideoInfo
	allInfo       []protocol.VideoInfo
	playerState   map[uuid.UUID]protocol.VideoPlayerState
	frameCaptures []protocol.FrameCapture
	workingSets   map[uuid.UUID]*workingSet
	selected      map[uuid.UUID][]uuid.UUID

	pendingMutation    uuid.UUID
	hasPendingMutation bool
}

// New 创建客户端门面。
// 参数：
// - sender: 出站发送端
// - cfg: UDP 配置（仅取超时）
// - entry: 注入的日志 Entry（为 nil 时使用默认组件字段）
func New(sender Sender, cfg config.UDPConfig, entry *logrus.Entry) *Client {
	if entry == nil {
		entry = xlog.With(logrus.Fields{"component": "client"})
	}
	c := &Client{
		sender:      sender,
		cfg:         cfg,
		log:         entry,
		cor:         &correlator{},
		router:      newRouter(entry),
		openState:   make(map[uuid.UUID]status.VideoOpenState),
		playerState: make(map[uuid.UUID]protocol.VideoPlayerState),
		workingSets: make(map[uuid.UUID]*workingSet),
		selected:    make(map[uuid.UUID][]uuid.UUID),
	}
	c.router.register(protocol.CmdPing, c.onPing)
	return c
}

// Dial 创建 UDP 端点并在其上启动客户端（收到的每条信封都交给 HandleMessage）。
// 参数：
// - cfg: 完整配置
// 返回：
// - *Client: 已启动的客户端（用 Stop 释放）
// - error: 端点启动失败原因
func Dial(cfg config.Config) (*Client, error) {
	srv := udp.NewServer(cfg.UDP, nil)
	c := New(srv, cfg.UDP, nil)
	if err := srv.Start(c.HandleMessage); err != nil {
		return nil, err
	}
	c.transport = srv
	return c, nil
}

// Stop 停止客户端并释放底层传输（幂等）。
func (c *Client) Stop() {
	if c.transport != nil {
		c.transport.Close()
	}
}

// RegisterCommandHandler 登记服务端命令处理器（ping 已内置）。
// 参数：
// - name: 命令名
// - h: 处理器
func (c *Client) RegisterCommandHandler(name string, h CommandHandler) {
	c.router.register(name, h)
}

// HandleMessage 处理一条入站信封（传输层投递 goroutine 调用）。
// 分类规则：带 response 键的是响应，带 command 键的是命令，
// 两者都没有视为协议错误，记日志后丢弃。
func (c *Client) HandleMessage(env protocol.Envelope) {
	switch env.Kind() {
	case protocol.KindResponse:
		c.handleResponse(env)
		c.cor.complete(env)
	case protocol.KindCommand:
		c.router.dispatch(env)
	default:
		c.log.Warn("报文缺少 command/response 判别字段，已丢弃")
	}
}

// Request 发送一条命令并阻塞等待同名响应（同步变体，失败以返回值暴露）。
// 同一客户端同时只允许一个在途同步请求，并发调用会被串行化。
// 参数：
// - env: 命令信封
// - timeout: 等待上限（0 表示使用配置的请求超时）
// 返回：
// - protocol.Envelope: 响应信封
// - error: 发送失败或超时
func (c *Client) Request(env protocol.Envelope, timeout time.Duration) (protocol.Envelope, error) {
	if env.Kind() != protocol.KindCommand {
		return protocol.Envelope{}, xerrors.New(xerrors.CodeBadRequest, "not a command envelope")
	}
	if timeout <= 0 {
		timeout = c.cfg.RequestTimeout
	}
	c.cor.reqMu.Lock()
	defer c.cor.reqMu.Unlock()

	slot := c.cor.arm(env.Command)
	if err := c.sender.Send(env); err != nil {
		c.cor.disarm()
		return protocol.Envelope{}, err
	}
	return c.cor.await(slot, timeout)
}

// Connect 发起连接握手（响应到达后 Connected 变为 true）。
// 参数：
// - port: 服务端回发通知所用的端口
func (c *Client) Connect(port int) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	env := protocol.NewCommand(protocol.CmdConnect)
	env.Port = port
	return c.sender.Send(env)
}

// ConnectWait 同步连接：阻塞直到响应或超时，失败以错误返回。
// 参数：
// - port: 服务端回发通知所用的端口
func (c *Client) ConnectWait(port int) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	env := protocol.NewCommand(protocol.CmdConnect)
	env.Port = port
	resp, err := c.Request(env, c.cfg.RequestTimeout)
	if err != nil {
		return xerrors.WithMessage(err, "connect")
	}
	if !resp.OK() {
		return xerrors.New(xerrors.CodeProtocol, "connect failed: "+resp.Cause)
	}
	return nil
}

// Open 请求打开一个视频，状态立即置为 Opening；
// 真正到达 Open 依赖服务端稍后的 open done 通知。
// 参数：
// - v: 视频 UUID
// - url: 视频地址
func (c *Client) Open(v uuid.UUID, url string) error {
	c.mu.Lock()
	c.openState[v] = status.VideoOpening
	c.mu.Unlock()

	env := protocol.NewCommand(protocol.CmdOpen)
	env.UUID = v.String()
	env.URL = url
	return c.sender.Send(env)
}

// Close 请求关闭一个视频（成功响应后状态变为 Closed）。
// 参数：
// - v: 视频 UUID
func (c *Client) Close(v uuid.UUID) error {
	env := protocol.NewCommand(protocol.CmdClose)
	env.UUID = v.String()
	return c.sender.Send(env)
}

// Show 请求把一个视频置于最前。
// 参数：
// - v: 视频 UUID
func (c *Client) Show(v uuid.UUID) error {
	env := protocol.NewCommand(protocol.CmdShow)
	env.UUID = v.String()
	return c.sender.Send(env)
}

// RequestInformation 查询焦点（或 z 序最顶）视频信息。
// 缓存会先清空，请求在途期间读不到过期值。
func (c *Client) RequestInformation() error {
	c.mu.Lock()
	c.focusedInfo = nil
	c.mu.Unlock()
	return c.sender.Send(protocol.NewCommand(protocol.CmdRequestInformation))
}

// RequestAllInformation 查询全部视频信息（同样先清缓存再发请求）。
func (c *Client) RequestAllInformation() error {
	c.mu.Lock()
	c.allInfo = nil
	c.mu.Unlock()
	return c.sender.Send(protocol.NewCommand(protocol.CmdRequestAllInformation))
}

// Play 以默认速率播放视频。
// 参数：
// - v: 视频 UUID
func (c *Client) Play(v uuid.UUID) error {
	env := protocol.NewCommand(protocol.CmdPlay)
	env.UUID = v.String()
	return c.sender.Send(env)
}

// PlayRate 以指定速率播放视频（负值表示倒放）。
// 参数：
// - v: 视频 UUID
// - rate: 播放速率
func (c *Client) PlayRate(v uuid.UUID, rate float64) error {
	env := protocol.NewCommand(protocol.CmdPlay)
	env.UUID = v.String()
	env.Rate = &rate
	return c.sender.Send(env)
}

// Pause 暂停视频。
// 参数：
// - v: 视频 UUID
func (c *Client) Pause(v uuid.UUID) error {
	env := protocol.NewCommand(protocol.CmdPause)
	env.UUID = v.String()
	return c.sender.Send(env)
}

// RequestPlayerState 查询播放器状态。缓存条目会先失效，
// 请求在途期间读不到过期值。
// 参数：
// - v: 视频 UUID
func (c *Client) RequestPlayerState(v uuid.UUID) error {
	c.mu.Lock()
	delete(c.playerState, v)
	c.mu.Unlock()

	env := protocol.NewCommand(protocol.CmdRequestPlayerState)
	env.UUID = v.String()
	return c.sender.Send(env)
}

// SeekElapsedTime 定位到指定播放时刻。
// 参数：
// - v: 视频 UUID
// - millis: 目标时刻（毫秒）
func (c *Client) SeekElapsedTime(v uuid.UUID, millis int64) error {
	env := protocol.NewCommand(protocol.CmdSeekElapsedTime)
	env.UUID = v.String()
	env.ElapsedTimeMillis = &millis
	return c.sender.Send(env)
}

// FrameAdvance 单帧步进。
// 参数：
// - v: 视频 UUID
// - direction: 方向（1 前进，-1 后退）
func (c *Client) FrameAdvance(v uuid.UUID, direction int) error {
	env := protocol.NewCommand(protocol.CmdFrameAdvance)
	env.UUID = v.String()
	env.Direction = direction
	return c.sender.Send(env)
}

// FrameCapture 请求抓帧。结果不随本次响应返回，而是稍后以
// frame capture done 通知异步到达并追加进抓帧记录。
// 参数：
// - v: 视频 UUID
// - imageLocation: 图片保存路径
// - imageReferenceUUID: 图片引用 UUID
func (c *Client) FrameCapture(v uuid.UUID, imageLocation string, imageReferenceUUID uuid.UUID) error {
	env := protocol.NewCommand(protocol.CmdFrameCapture)
	env.UUID = v.String()
	env.ImageLocation = imageLocation
	env.ImageReferenceUUID = imageReferenceUUID.String()
	return c.sender.Send(env)
}

// AddLocalizations 向视频添加标注（推测写入，成功提交、失败回退）。
// 参数：
// - v: 视频 UUID
// - ls: 标注列表
func (c *Client) AddLocalizations(v uuid.UUID, ls []protocol.Localization) error {
	raw, err := protocol.EncodeLocalizations(ls)
	if err != nil {
		return err
	}
	if err := c.beginMutation(v, func(w *workingSet) { w.stage(ls...) }); err != nil {
		return err
	}
	env := protocol.NewCommand(protocol.CmdAddLocalizations)
	env.UUID = v.String()
	env.Localizations = raw
	return c.sendMutation(v, env)
}

// RemoveLocalizations 从视频移除标注（推测写入，成功提交、失败回退）。
// 参数：
// - v: 视频 UUID
// - ids: 标注 UUID 列表
func (c *Client) RemoveLocalizations(v uuid.UUID, ids []uuid.UUID) error {
	raw, err := protocol.EncodeUUIDs(ids)
	if err != nil {
		return err
	}
	if err := c.beginMutation(v, func(w *workingSet) { w.unstage(ids...) }); err != nil {
		return err
	}
	env := protocol.NewCommand(protocol.CmdRemoveLocalizations)
	env.UUID = v.String()
	env.Localizations = raw
	return c.sendMutation(v, env)
}

// UpdateLocalizations 更新视频标注（推测写入，成功提交、失败回退）。
// 参数：
// - v: 视频 UUID
// - ls: 标注列表
func (c *Client) UpdateLocalizations(v uuid.UUID, ls []protocol.Localization) error {
	raw, err := protocol.EncodeLocalizations(ls)
	if err != nil {
		return err
	}
	if err := c.beginMutation(v, func(w *workingSet) { w.stage(ls...) }); err != nil {
		return err
	}
	env := protocol.NewCommand(protocol.CmdUpdateLocalizations)
	env.UUID = v.String()
	env.Localizations = raw
	return c.sendMutation(v, env)
}

// ClearLocalizations 清空视频标注（推测写入，成功提交、失败回退）。
// 参数：
// - v: 视频 UUID
func (c *Client) ClearLocalizations(v uuid.UUID) error {
	if err := c.beginMutation(v, func(w *workingSet) { w.clearStaged() }); err != nil {
		return err
	}
	env := protocol.NewCommand(protocol.CmdClearLocalizations)
	env.UUID = v.String()
	return c.sendMutation(v, env)
}

// SelectLocalizations 选中视频内的标注。选中列表无条件整体覆盖，
// 不等响应也不回滚。
// 参数：
// - v: 视频 UUID
// - ids: 标注 UUID 列表
func (c *Client) SelectLocalizations(v uuid.UUID, ids []uuid.UUID) error {
	raw, err := protocol.EncodeUUIDs(ids)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.selected[v] = append([]uuid.UUID(nil), ids...)
	c.mu.Unlock()

	env := protocol.NewCommand(protocol.CmdSelectLocalizations)
	env.UUID = v.String()
	env.Localizations = raw
	return c.sender.Send(env)
}

// beginMutation 开始一次标注变更：同一集合上没有提交/回退之前
// 不允许再叠加第二个在途变更（这是调用方错误）。
// 参数：
// - v: 视频 UUID
// - apply: 推测变更函数
func (c *Client) beginMutation(v uuid.UUID, apply func(*workingSet)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasPendingMutation {
		return xerrors.New(xerrors.CodeBadRequest, "localization mutation already in flight")
	}
	w := c.workingSet(v)
	apply(w)
	c.pendingMutation = v
	c.hasPendingMutation = true
	return nil
}

// sendMutation 发送标注变更命令；发送失败时立即回退推测变更。
func (c *Client) sendMutation(v uuid.UUID, env protocol.Envelope) error {
	if err := c.sender.Send(env); err != nil {
		c.mu.Lock()
		if w := c.workingSets[v]; w != nil {
			w.revert()
		}
		c.hasPendingMutation = false
		c.mu.Unlock()
		return err
	}
	return nil
}

// workingSet 取出（或惰性创建）一个视频的工作集。调用方必须持有 c.mu。
func (c *Client) workingSet(v uuid.UUID) *workingSet {
	w := c.workingSets[v]
	if w == nil {
		w = newWorkingSet()
		c.workingSets[v] = w
	}
	return w
}

// onPing 内置 ping 处理器：立即回应，不触碰任何镜像状态。
// 运行在接收投递路径上，永远不会被在途的同步请求阻塞。
func (c *Client) onPing(protocol.Envelope) {
	if err := c.sender.Send(protocol.OKResponse(protocol.CmdPing)); err != nil {
		c.log.WithError(err).Warn("回应 ping 失败")
	}
}
