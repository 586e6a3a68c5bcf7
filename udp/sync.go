package udp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"shark-remote/config"
	xerrors "shark-remote/errors"
	xlog "shark-remote/log"
	"shark-remote/protocol"
)

// SyncClient 同步阻塞式客户端：每次请求使用一个临时套接字，
// 一次发送 + 一次有界接收后立即关闭，请求之间不保留接收循环。
// 适合单线程调用方，以并发能力换取简单性。
type SyncClient struct {
	cfg config.UDPConfig
	log *logrus.Entry
}

// NewSyncClient 创建同步客户端。
// 参数：
// - cfg: UDP 配置（对端地址与请求超时）
// - entry: 注入的日志 Entry（为 nil 时使用默认组件字段）
func NewSyncClient(cfg config.UDPConfig, entry *logrus.Entry) *SyncClient {
	if entry == nil {
		entry = xlog.With(logrus.Fields{"component": "udp_sync"})
	}
	return &SyncClient{cfg: cfg, log: entry}
}

// Request 发送一条命令并阻塞等待响应。
// 行为：
// - 等待期间收到对端 ping 命令会立即回应后继续等待
// - 坏报文只记日志并继续等待
// - 截止时间内没有响应则返回超时错误
// 参数：
// - env: 命令信封
// 返回：
// - protocol.Envelope: 响应信封（status 非 ok 时由调用方自行处理）
// - error: 传输失败或超时
func (c *SyncClient) Request(env protocol.Envelope) (protocol.Envelope, error) {
	return c.RequestTimeout(env, c.cfg.RequestTimeout)
}

// RequestTimeout 与 Request 相同，但使用显式超时（open 等带二段完成
// 通知的命令应传入更长的超时）。
// 参数：
// - env: 命令信封
// - timeout: 等待响应的最长时间
func (c *SyncClient) RequestTimeout(env protocol.Envelope, timeout time.Duration) (protocol.Envelope, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return protocol.Envelope{}, xerrors.Wrap(xerrors.CodeInternal, "encode envelope", err)
	}
	if len(data) > protocol.MaxDatagram {
		return protocol.Envelope{}, xerrors.New(xerrors.CodeBadRequest, "datagram exceeds max size")
	}

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", c.cfg.SendHost, c.cfg.SendPort))
	if err != nil {
		return protocol.Envelope{}, xerrors.Wrap(xerrors.CodeTransport, "dial peer", err)
	}
	defer conn.Close()

	if _, err := conn.Write(data); err != nil {
		return protocol.Envelope{}, xerrors.Wrap(xerrors.CodeTransport, "send datagram", err)
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, protocol.MaxDatagram+1)
	for {
		_ = conn.SetReadDeadline(deadline)
		n, err := conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return protocol.Envelope{}, xerrors.New(xerrors.CodeTimeout, "request timed out")
			}
			return protocol.Envelope{}, xerrors.Wrap(xerrors.CodeTransport, "receive datagram", err)
		}
		if n > protocol.MaxDatagram {
			c.log.WithField("bytes", n).Warn("报文超过最大长度，已丢弃")
			continue
		}
		var in protocol.Envelope
		if err := json.Unmarshal(buf[:n], &in); err != nil {
			c.log.WithError(err).Warn("报文 JSON 解码失败，已丢弃")
			continue
		}
		switch in.Kind() {
		case protocol.KindResponse:
			return in, nil
		case protocol.KindCommand:
			if in.Command == protocol.CmdPing {
				pong, _ := json.Marshal(protocol.OKResponse(protocol.CmdPing))
				_, _ = conn.Write(pong)
			} else {
				c.log.WithField("cmd", in.Command).Warn("等待响应期间收到未知命令，已忽略")
			}
		default:
			c.log.Warn("报文缺少 command/response 判别字段，已丢弃")
		}
	}
}
