package client

import (
	"sync"
	"time"

	xerrors "shark-remote/errors"
	"shark-remote/protocol"
)

// correlator 请求-响应关联器。协议没有请求 ID 字段，同一时刻并发的
// 同步请求在线协议层面就是未定义行为，因此 reqMu 把在途请求严格
// 串行化为最多一个；匹配依据是期望的响应名。
type correlator struct {
	reqMu sync.Mutex

	mu     sync.Mutex
	expect string
	slot   chan protocol.Envelope
}

// arm 登记一个在途请求并返回接收通道。
// 参数：
// - expect: 期望的响应名
func (c *correlator) arm(expect string) <-chan protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expect = expect
	c.slot = make(chan protocol.Envelope, 1)
	return c.slot
}

// disarm 撤销在途请求登记（发送失败或超时后调用）。
func (c *correlator) disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expect = ""
	c.slot = nil
}

// complete 尝试用一条入站响应完成在途请求。
// 返回：
// - bool: 响应名匹配且已投递时为 true；无在途请求或名字不匹配
//   （如服务端主动推送的 open done）时为 false
func (c *correlator) complete(env protocol.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot == nil || env.Response != c.expect {
		return false
	}
	c.slot <- env
	c.slot = nil
	c.expect = ""
	return true
}

// await 阻塞等待响应或超时。
// 参数：
// - slot: arm 返回的通道
// - timeout: 等待上限
// 返回：
// - protocol.Envelope: 响应信封
// - error: 超时错误
func (c *correlator) await(slot <-chan protocol.Envelope, timeout time.Duration) (protocol.Envelope, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case env := <-slot:
		return env, nil
	case <-t.C:
		c.disarm()
		return protocol.Envelope{}, xerrors.New(xerrors.CodeTimeout, "request timed out")
	}
}
