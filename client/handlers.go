package client

import (
	"github.com/sirupsen/logrus"

	"shark-remote/protocol"
	"shark-remote/status"
)

// handleResponse 按响应名做穷举分发并更新状态镜像。
// 失败策略：记录 cause、执行约定的状态回退，但不向上抛错——
// 调用方通过日志或状态轮询观察失败（同步变体另以返回值暴露）。
func (c *Client) handleResponse(env protocol.Envelope) {
	switch env.Response {
	case protocol.CmdConnect:
		c.onConnectResponse(env)
	case protocol.CmdOpen:
		c.onOpenResponse(env)
	case protocol.RespOpenDone:
		c.onOpenDoneResponse(env)
	case protocol.CmdClose:
		c.onCloseResponse(env)
	case protocol.CmdShow:
		c.logFailure(env, "置前视频失败")
	case protocol.CmdRequestInformation:
		c.onRequestInformationResponse(env)
	case protocol.CmdRequestAllInformation:
		c.onRequestAllInformationResponse(env)
	case protocol.CmdPlay:
		c.logFailure(env, "播放失败")
	case protocol.CmdPause:
		c.logFailure(env, "暂停失败")
	case protocol.CmdRequestPlayerState:
		c.onRequestPlayerStateResponse(env)
	case protocol.CmdSeekElapsedTime:
		c.logFailure(env, "定位失败")
	case protocol.CmdFrameAdvance:
		c.logFailure(env, "单帧步进失败")
	case protocol.CmdFrameCapture:
		c.logFailure(env, "抓帧请求失败")
	case protocol.RespFrameCaptureDone:
		c.onFrameCaptureDoneResponse(env)
	case protocol.CmdAddLocalizations,
		protocol.CmdRemoveLocalizations,
		protocol.CmdUpdateLocalizations,
		protocol.CmdClearLocalizations:
		c.onLocalizationMutationResponse(env)
	case protocol.CmdSelectLocalizations:
		c.logFailure(env, "选中标注失败")
	default:
		c.log.WithField("resp", env.Response).Warn("未知响应，忽略")
	}
}

// logFailure 对无状态副作用的响应统一记录失败原因。
func (c *Client) logFailure(env protocol.Envelope, msg string) {
	if env.OK() {
		return
	}
	c.log.WithFields(logrus.Fields{"resp": env.Response, "cause": env.Cause}).Warn(msg)
}

func (c *Client) onConnectResponse(env protocol.Envelope) {
	if !env.OK() {
		c.log.WithField("cause", env.Cause).Warn("连接失败")
		return
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.log.Info("已连接")
}

// onOpenResponse 处理 open 的即时响应。失败时移除 Opening 条目：
// 没有自动重试，悬空的 Opening 状态只会误导调用方。
func (c *Client) onOpenResponse(env protocol.Envelope) {
	if env.OK() {
		return
	}
	c.log.WithField("cause", env.Cause).Warn("发起打开视频失败")
	if u, err := env.VideoUUID(); err == nil {
		c.mu.Lock()
		delete(c.openState, u)
		c.mu.Unlock()
	}
}

// onOpenDoneResponse 处理异步的 open done 通知（按视频 UUID 关联）。
func (c *Client) onOpenDoneResponse(env protocol.Envelope) {
	if !env.OK() {
		c.log.WithField("cause", env.Cause).Warn("打开视频失败")
		if u, err := env.VideoUUID(); err == nil {
			c.mu.Lock()
			delete(c.openState, u)
			c.mu.Unlock()
		}
		return
	}
	u, err := env.VideoUUID()
	if err != nil {
		c.log.WithError(err).Warn("open done 响应缺少视频 UUID")
		return
	}
	c.mu.Lock()
	c.openState[u] = status.VideoOpen
	c.mu.Unlock()
	c.log.WithField("uuid", u.String()).Info("视频已打开")
}

func (c *Client) onCloseResponse(env protocol.Envelope) {
	if !env.OK() {
		c.log.WithField("cause", env.Cause).Warn("关闭视频失败")
		return
	}
	u, err := env.VideoUUID()
	if err != nil {
		c.log.WithError(err).Warn("close 响应缺少视频 UUID")
		return
	}
	c.mu.Lock()
	c.openState[u] = status.VideoClosed
	c.mu.Unlock()
	c.log.WithField("uuid", u.String()).Info("视频已关闭")
}

func (c *Client) onRequestInformationResponse(env protocol.Envelope) {
	if !env.OK() {
		c.log.WithField("cause", env.Cause).Warn("查询视频信息失败")
		return
	}
	info, err := protocol.VideoInfoFromEnvelope(env)
	if err != nil {
		c.log.WithError(err).Warn("视频信息响应解码失败")
		return
	}
	c.mu.Lock()
	c.focusedInfo = &info
	c.mu.Unlock()
}

func (c *Client) onRequestAllInformationResponse(env protocol.Envelope) {
	if !env.OK() {
		c.log.WithField("cause", env.Cause).Warn("查询全部视频信息失败")
		return
	}
	c.mu.Lock()
	c.allInfo = append([]protocol.VideoInfo(nil), env.Videos...)
	c.mu.Unlock()
}

func (c *Client) onRequestPlayerStateResponse(env protocol.Envelope) {
	if !env.OK() {
		c.log.WithField("cause", env.Cause).Warn("查询播放器状态失败")
		return
	}
	u, err := env.VideoUUID()
	if err != nil {
		c.log.WithError(err).Warn("播放器状态响应缺少视频 UUID")
		return
	}
	st, err := protocol.PlayerStateFromEnvelope(env)
	if err != nil {
		c.log.WithError(err).Warn("播放器状态响应解码失败")
		return
	}
	c.mu.Lock()
	c.playerState[u] = st
	c.mu.Unlock()
}

// onFrameCaptureDoneResponse 处理异步抓帧完成通知，成功时恰好追加一条记录。
func (c *Client) onFrameCaptureDoneResponse(env protocol.Envelope) {
	if !env.OK() {
		c.log.WithField("cause", env.Cause).Warn("抓帧失败")
		return
	}
	fc, err := protocol.FrameCaptureFromEnvelope(env)
	if err != nil {
		c.log.WithError(err).Warn("抓帧完成响应解码失败")
		return
	}
	c.mu.Lock()
	c.frameCaptures = append(c.frameCaptures, fc)
	c.mu.Unlock()
	c.log.WithFields(logrus.Fields{"uuid": fc.UUID.String(), "image_ref": fc.ImageReferenceUUID.String()}).Info("抓帧完成")
}

// onLocalizationMutationResponse 处理 add/remove/update/clear 四类
// 标注变更响应：成功提交、失败回退。失败响应可能不带 uuid 字段，
// 此时回退目标取推测写入时记下的视频。
func (c *Client) onLocalizationMutationResponse(env protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.pendingMutation
	if u, err := env.VideoUUID(); err == nil {
		target = u
	} else if !c.hasPendingMutation {
		c.log.WithField("resp", env.Response).Warn("标注变更响应无法关联到任何视频，忽略")
		return
	}
	w := c.workingSets[target]
	if w == nil {
		c.log.WithField("uuid", target.String()).Warn("标注变更响应指向未知视频，忽略")
		c.hasPendingMutation = false
		return
	}
	if env.OK() {
		w.commit()
	} else {
		c.log.WithFields(logrus.Fields{"resp": env.Response, "cause": env.Cause}).Warn("标注变更失败，已回退")
		w.revert()
	}
	c.hasPendingMutation = false
}
