package protocol

import (
	"github.com/google/uuid"

	xerrors "shark-remote/errors"
	"shark-remote/status"
)

// VideoInfo 某个视频窗口的不可变信息快照，查询成功后整体替换。
type VideoInfo struct {
	UUID           uuid.UUID `json:"uuid"`
	URL            string    `json:"url"`
	DurationMillis int64     `json:"durationMillis"`
	FrameRate      float64   `json:"frameRate"`
	IsKey          bool      `json:"isKey"`
}

// VideoPlayerState 播放器状态（按视频 UUID 维护，查询中会先失效）。
type VideoPlayerState struct {
	Status status.PlayStatus `json:"status"`
	Rate   float64           `json:"rate"`
}

// FrameCapture 一次抓帧完成记录（只增不改）。
type FrameCapture struct {
	UUID               uuid.UUID `json:"uuid"`
	ElapsedTimeMillis  int64     `json:"elapsedTimeMillis"`
	ImageReferenceUUID uuid.UUID `json:"imageReferenceUuid"`
	ImageLocation      string    `json:"imageLocation"`
}

// Localization 一个视频内的标注框。UUID 是不可变身份：两个标注相等
// 当且仅当 UUID 相等，其余字段不参与判等。
type Localization struct {
	UUID              uuid.UUID `json:"uuid"`
	Concept           string    `json:"concept"`
	ElapsedTimeMillis int64     `json:"elapsedTimeMillis"`
	DurationMillis    int64     `json:"durationMillis"`
	X                 int       `json:"x"`
	Y                 int       `json:"y"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	Color             string    `json:"color,omitempty"`
}

// Equal 按 UUID 判等。
func (l Localization) Equal(o Localization) bool { return l.UUID == o.UUID }

// Video 视频身份（UUID 为判等依据，URL 仅为附注）。
type Video struct {
	UUID uuid.UUID `json:"uuid"`
	URL  string    `json:"url,omitempty"`
}

// VideoInfoFromEnvelope 从 request information 响应的扁平字段投影出 VideoInfo。
// 参数：
// - e: 响应信封
// 返回：
// - VideoInfo: 投影结果
// - error: 字段缺失或非法
func VideoInfoFromEnvelope(e Envelope) (VideoInfo, error) {
	u, err := e.VideoUUID()
	if err != nil {
		return VideoInfo{}, err
	}
	if e.DurationMillis == nil || e.FrameRate == nil {
		return VideoInfo{}, xerrors.New(xerrors.CodeDecode, "missing video info fields")
	}
	info := VideoInfo{
		UUID:           u,
		URL:            e.URL,
		DurationMillis: *e.DurationMillis,
		FrameRate:      *e.FrameRate,
	}
	if e.IsKey != nil {
		info.IsKey = *e.IsKey
	}
	return info, nil
}

// PlayerStateFromEnvelope 从 request player state 响应投影出 VideoPlayerState。
// 线格式说明：信封级 status 是成功/失败判定位，播放状态使用 playStatus 字段。
// 参数：
// - e: 响应信封
// 返回：
// - VideoPlayerState: 投影结果
// - error: 字段缺失或非法
func PlayerStateFromEnvelope(e Envelope) (VideoPlayerState, error) {
	ps, err := status.ParsePlayStatus(e.PlayStatus)
	if err != nil {
		return VideoPlayerState{}, xerrors.Wrap(xerrors.CodeDecode, "invalid playStatus field", err)
	}
	st := VideoPlayerState{Status: ps}
	if e.Rate != nil {
		st.Rate = *e.Rate
	}
	return st, nil
}

// FrameCaptureFromEnvelope 从 frame capture done 响应投影出 FrameCapture。
// 参数：
// - e: 响应信封
// 返回：
// - FrameCapture: 投影结果
// - error: 字段缺失或非法
func FrameCaptureFromEnvelope(e Envelope) (FrameCapture, error) {
	u, err := e.VideoUUID()
	if err != nil {
		return FrameCapture{}, err
	}
	if e.ImageReferenceUUID == "" || e.ElapsedTimeMillis == nil {
		return FrameCapture{}, xerrors.New(xerrors.CodeDecode, "missing frame capture fields")
	}
	ref, err := uuid.Parse(e.ImageReferenceUUID)
	if err != nil {
		return FrameCapture{}, xerrors.Wrap(xerrors.CodeDecode, "invalid imageReferenceUuid field", err)
	}
	return FrameCapture{
		UUID:               u,
		ElapsedTimeMillis:  *e.ElapsedTimeMillis,
		ImageReferenceUUID: ref,
		ImageLocation:      e.ImageLocation,
	}, nil
}
