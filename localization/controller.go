package localization

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	xlog "shark-remote/log"
	"shark-remote/protocol"
)

// 进出队列容量。满时丢弃并记日志，绝不阻塞调用方。
const busQueue = 256

// Controller 标注通知总线：本地动作写镜像并进出站队列，远端消息
// 经 Accept 写镜像并转入 incoming 队列供上层消费。
// 镜像只反映通知通道看到的标注集合，与 client 的工作集彼此独立。
type Controller struct {
	log *logrus.Entry

	incoming chan Message
	outgoing chan Message

	mu            sync.Mutex
	localizations map[uuid.UUID]protocol.Localization
	selected      map[uuid.UUID]bool
}

// NewController 创建标注通知总线。
// 参数：
// - entry: 注入的日志 Entry（为 nil 时使用默认组件字段）
func NewController(entry *logrus.Entry) *Controller {
	if entry == nil {
		entry = xlog.With(logrus.Fields{"component": "localization"})
	}
	return &Controller{
		log:           entry,
		incoming:      make(chan Message, busQueue),
		outgoing:      make(chan Message, busQueue),
		localizations: make(map[uuid.UUID]protocol.Localization),
		selected:      make(map[uuid.UUID]bool),
	}
}

// Incoming 返回远端消息队列（Accept 处理后的消息依序出现在这里）。
func (c *Controller) Incoming() <-chan Message { return c.incoming }

// Outgoing 返回出站消息队列（由 IO 层排空并发布）。
func (c *Controller) Outgoing() <-chan Message { return c.outgoing }

// Add 本地添加标注并向外广播。
// 参数：
// - video: 视频身份
// - ls: 标注列表
func (c *Controller) Add(video protocol.Video, ls ...protocol.Localization) {
	c.mu.Lock()
	for _, l := range ls {
		c.localizations[l.UUID] = l
	}
	c.mu.Unlock()
	c.emit(NewMessage(ActionAdd, &video, ls...))
}

// Remove 本地移除标注并向外广播（消息中只携带 UUID）。
// 参数：
// - video: 视频身份
// - ids: 标注 UUID 列表
func (c *Controller) Remove(video protocol.Video, ids ...uuid.UUID) {
	refs := make([]protocol.Localization, 0, len(ids))
	c.mu.Lock()
	for _, id := range ids {
		delete(c.localizations, id)
		delete(c.selected, id)
		refs = append(refs, protocol.Localization{UUID: id})
	}
	c.mu.Unlock()
	c.emit(NewMessage(ActionRemove, &video, refs...))
}

// Clear 本地清空标注并向外广播。
// 参数：
// - video: 视频身份
func (c *Controller) Clear(video protocol.Video) {
	c.mu.Lock()
	c.localizations = make(map[uuid.UUID]protocol.Localization)
	c.selected = make(map[uuid.UUID]bool)
	c.mu.Unlock()
	c.emit(NewMessage(ActionClear, &video))
}

// Select 本地选中标注并向外广播。
// 参数：
// - ids: 标注 UUID 列表
func (c *Controller) Select(ids ...uuid.UUID) {
	refs := c.mark(ids, true)
	c.emit(NewMessage(ActionSelect, nil, refs...))
}

// Deselect 本地取消选中并向外广播。
// 参数：
// - ids: 标注 UUID 列表
func (c *Controller) Deselect(ids ...uuid.UUID) {
	refs := c.mark(ids, false)
	c.emit(NewMessage(ActionDeselect, nil, refs...))
}

func (c *Controller) mark(ids []uuid.UUID, on bool) []protocol.Localization {
	refs := make([]protocol.Localization, 0, len(ids))
	c.mu.Lock()
	for _, id := range ids {
		if on {
			c.selected[id] = true
		} else {
			delete(c.selected, id)
		}
		refs = append(refs, protocol.Localization{UUID: id})
	}
	c.mu.Unlock()
	return refs
}

// Accept 处理一条远端消息：先落镜像，再转入 incoming 队列。
// 参数：
// - msg: 远端消息
func (c *Controller) Accept(msg Message) {
	c.apply(msg)
	select {
	case c.incoming <- msg:
	default:
		c.log.WithField("action", msg.Action.String()).Warn("入站队列已满，消息丢弃")
	}
}

func (c *Controller) apply(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Action {
	case ActionAdd:
		for _, l := range msg.Localizations {
			c.localizations[l.UUID] = l
		}
	case ActionRemove:
		for _, l := range msg.Localizations {
			delete(c.localizations, l.UUID)
			delete(c.selected, l.UUID)
		}
	case ActionClear:
		c.localizations = make(map[uuid.UUID]protocol.Localization)
		c.selected = make(map[uuid.UUID]bool)
	case ActionSelect:
		for _, l := range msg.Localizations {
			c.selected[l.UUID] = true
		}
	case ActionDeselect:
		for _, l := range msg.Localizations {
			delete(c.selected, l.UUID)
		}
	default:
		c.log.WithField("action", msg.Action.String()).Warn("未知动作，忽略")
	}
}

func (c *Controller) emit(msg Message) {
	select {
	case c.outgoing <- msg:
	default:
		c.log.WithField("action", msg.Action.String()).Warn("出站队列已满，消息丢弃")
	}
}

// Localizations 返回镜像中的标注列表副本。
func (c *Controller) Localizations() []protocol.Localization {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Localization, 0, len(c.localizations))
	for _, l := range c.localizations {
		out = append(out, l)
	}
	return out
}

// Selected 返回镜像中选中的标注 UUID 列表副本。
func (c *Controller) Selected() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	return out
}
