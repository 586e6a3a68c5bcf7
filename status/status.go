package status

import (
	"encoding/json"
	"fmt"
	"strings"
)

type VideoOpenState string

const (
	VideoClosed  VideoOpenState = "Closed"
	VideoOpening VideoOpenState = "Opening"
	VideoOpen    VideoOpenState = "Open"
)

// String 返回视频打开状态文本。
func (s VideoOpenState) String() string { return string(s) }

// ParseVideoOpenState 将文本解析为 VideoOpenState。
// 参数：
// - v: 状态文本（Closed/Opening/Open）
// 返回：
// - VideoOpenState: 解析结果
// - error: 未知状态时返回错误
func ParseVideoOpenState(v string) (VideoOpenState, error) {
	switch strings.TrimSpace(v) {
	case string(VideoClosed):
		return VideoClosed, nil
	case string(VideoOpening):
		return VideoOpening, nil
	case string(VideoOpen):
		return VideoOpen, nil
	default:
		return "", fmt.Errorf("unknown VideoOpenState: %q", v)
	}
}

// MarshalJSON 将 VideoOpenState 编码为 JSON 字符串。
func (s VideoOpenState) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// UnmarshalJSON 从 JSON 字符串解码为 VideoOpenState。
func (s *VideoOpenState) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseVideoOpenState(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type PlayStatus string

const (
	Playing          PlayStatus = "playing"
	ShuttlingForward PlayStatus = "shuttling forward"
	ShuttlingReverse PlayStatus = "shuttling reverse"
	Paused           PlayStatus = "paused"
)

// String 返回播放状态文本。
func (s PlayStatus) String() string { return string(s) }

// ParsePlayStatus 将文本解析为 PlayStatus。
// 参数：
// - v: 状态文本（playing/shuttling forward/shuttling reverse/paused）
// 返回：
// - PlayStatus: 解析结果
// - error: 未知状态时返回错误
func ParsePlayStatus(v string) (PlayStatus, error) {
	switch strings.TrimSpace(v) {
	case string(Playing):
		return Playing, nil
	case string(ShuttlingForward):
		return ShuttlingForward, nil
	case string(ShuttlingReverse):
		return ShuttlingReverse, nil
	case string(Paused):
		return Paused, nil
	default:
		return "", fmt.Errorf("unknown PlayStatus: %q", v)
	}
}

// MarshalJSON 将 PlayStatus 编码为 JSON 字符串。
func (s PlayStatus) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// UnmarshalJSON 从 JSON 字符串解码为 PlayStatus。
func (s *PlayStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParsePlayStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
