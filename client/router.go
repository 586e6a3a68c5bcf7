package client

import (
	"sync"

	"github.com/sirupsen/logrus"

	"shark-remote/protocol"
)

// CommandHandler 处理一条服务端主动下发的命令。
type CommandHandler func(protocol.Envelope)

// router 未经请求的命令路由器：按命令名分发到登记的处理器。
// 未知命令只记日志、不回应（对协议扩展保持前向兼容的静默策略）。
type router struct {
	log *logrus.Entry

	mu       sync.RWMutex
	handlers map[string]CommandHandler
}

func newRouter(log *logrus.Entry) *router {
	return &router{log: log, handlers: make(map[string]CommandHandler)}
}

// register 登记命令处理器（同名覆盖）。
// 参数：
// - name: 命令名
// - h: 处理器
func (r *router) register(name string, h CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// dispatch 分发一条命令信封。
func (r *router) dispatch(env protocol.Envelope) {
	r.mu.RLock()
	h := r.handlers[env.Command]
	r.mu.RUnlock()
	if h == nil {
		r.log.WithField("cmd", env.Command).Warn("未知命令，忽略且不回应")
		return
	}
	h(env)
}
