package client

import (
	"github.com/google/uuid"

	"shark-remote/protocol"
	"shark-remote/status"
)

// Connected 返回连接握手是否已确认。
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// OpenState 返回某视频的打开状态。
// 返回：
// - status.VideoOpenState: 状态
// - bool: 该视频是否有状态条目
func (c *Client) OpenState(v uuid.UUID) (status.VideoOpenState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.openState[v]
	return s, ok
}

// FocusedVideoInfo 返回最近一次查询到的焦点视频信息（无缓存时为 nil）。
func (c *Client) FocusedVideoInfo() *protocol.VideoInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.focusedInfo == nil {
		return nil
	}
	info := *c.focusedInfo
	return &info
}

// AllVideoInfo 返回最近一次查询到的全部视频信息副本。
func (c *Client) AllVideoInfo() []protocol.VideoInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.VideoInfo(nil), c.allInfo...)
}

// PlayerState 返回某视频缓存的播放器状态。
// 返回：
// - protocol.VideoPlayerState: 状态
// - bool: 是否有缓存（查询在途期间恒为 false）
func (c *Client) PlayerState(v uuid.UUID) (protocol.VideoPlayerState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.playerState[v]
	return s, ok
}

// FrameCaptures 返回抓帧完成记录副本（只增序列）。
func (c *Client) FrameCaptures() []protocol.FrameCapture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.FrameCapture(nil), c.frameCaptures...)
}

// CommittedLocalizations 返回某视频服务端确认过的标注列表副本。
func (c *Client) CommittedLocalizations(v uuid.UUID) []protocol.Localization {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.workingSets[v]
	if w == nil {
		return nil
	}
	return w.committedView()
}

// UncommittedLocalizations 返回某视频推测视图的标注列表副本。
func (c *Client) UncommittedLocalizations(v uuid.UUID) []protocol.Localization {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.workingSets[v]
	if w == nil {
		return nil
	}
	return w.uncommittedView()
}

// SelectedLocalizations 返回某视频最近一次选中请求的 UUID 列表副本。
func (c *Client) SelectedLocalizations(v uuid.UUID) []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uuid.UUID(nil), c.selected[v]...)
}
