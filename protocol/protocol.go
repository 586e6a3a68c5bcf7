package protocol

import (
	"encoding/json"

	"github.com/google/uuid"

	xerrors "shark-remote/errors"
)

// MaxDatagram 单个 UDP 报文的最大字节数，超限视为协议违规。
const MaxDatagram = 4096

const (
	CmdConnect               = "connect"
	CmdOpen                  = "open"
	CmdClose                 = "close"
	CmdShow                  = "show"
	CmdRequestInformation    = "request information"
	CmdRequestAllInformation = "request all information"
	CmdPlay                  = "play"
	CmdPause                 = "pause"
	CmdRequestPlayerState    = "request player state"
	CmdSeekElapsedTime       = "seek elapsed time"
	CmdFrameAdvance          = "frame advance"
	CmdFrameCapture          = "frame capture"
	CmdAddLocalizations      = "add localizations"
	CmdRemoveLocalizations   = "remove localizations"
	CmdUpdateLocalizations   = "update localizations"
	CmdClearLocalizations    = "clear localizations"
	CmdSelectLocalizations   = "select localizations"
	CmdPing                  = "ping"

	RespOpenDone         = "open done"
	RespFrameCaptureDone = "frame capture done"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindCommand
	KindResponse
)

// Envelope 跨 UDP 传输的顶层消息：command 与 response 互斥存在，
// 其余字段为各命令/响应的扁平载荷（按需出现，线格式为 camelCase）。
type Envelope struct {
	Command  string `json:"command,omitempty"`
	Response string `json:"response,omitempty"`
	Status   string `json:"status,omitempty"`
	Cause    string `json:"cause,omitempty"`

	UUID               string          `json:"uuid,omitempty"`
	URL                string          `json:"url,omitempty"`
	Port               int             `json:"port,omitempty"`
	Rate               *float64        `json:"rate,omitempty"`
	ElapsedTimeMillis  *int64          `json:"elapsedTimeMillis,omitempty"`
	DurationMillis     *int64          `json:"durationMillis,omitempty"`
	FrameRate          *float64        `json:"frameRate,omitempty"`
	IsKey              *bool           `json:"isKey,omitempty"`
	PlayStatus         string          `json:"playStatus,omitempty"`
	Direction          int             `json:"direction,omitempty"`
	ImageLocation      string          `json:"imageLocation,omitempty"`
	ImageReferenceUUID string          `json:"imageReferenceUuid,omitempty"`
	Videos             []VideoInfo     `json:"videos,omitempty"`
	Localizations      json.RawMessage `json:"localizations,omitempty"`
}

// Kind 返回信封类型：command 与 response 恰好出现一个才合法。
func (e Envelope) Kind() Kind {
	switch {
	case e.Command != "" && e.Response == "":
		return KindCommand
	case e.Response != "" && e.Command == "":
		return KindResponse
	default:
		return KindInvalid
	}
}

// OK 判断响应状态是否为成功。
func (e Envelope) OK() bool { return e.Status == StatusOK }

// NewCommand 构造一条命令信封。
// 参数：
// - name: 命令名
func NewCommand(name string) Envelope { return Envelope{Command: name} }

// OKResponse 构造一条成功响应信封（用于回应对端命令，如 ping）。
// 参数：
// - name: 响应名
func OKResponse(name string) Envelope { return Envelope{Response: name, Status: StatusOK} }

// VideoUUID 解析信封中的视频 UUID 字段。
// 返回：
// - uuid.UUID: 解析结果
// - error: 字段缺失或非法
func (e Envelope) VideoUUID() (uuid.UUID, error) {
	if e.UUID == "" {
		return uuid.Nil, xerrors.New(xerrors.CodeDecode, "missing uuid field")
	}
	u, err := uuid.Parse(e.UUID)
	if err != nil {
		return uuid.Nil, xerrors.Wrap(xerrors.CodeDecode, "invalid uuid field", err)
	}
	return u, nil
}

// EncodeLocalizations 将标注对象列表编码为 localizations 载荷。
// 参数：
// - ls: 标注列表
func EncodeLocalizations(ls []Localization) (json.RawMessage, error) {
	raw, err := json.Marshal(ls)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, "encode localizations", err)
	}
	return raw, nil
}

// EncodeUUIDs 将 UUID 列表编码为 localizations 载荷（移除/选中命令使用字符串形式）。
// 参数：
// - ids: UUID 列表
func EncodeUUIDs(ids []uuid.UUID) (json.RawMessage, error) {
	ss := make([]string, 0, len(ids))
	for _, id := range ids {
		ss = append(ss, id.String())
	}
	raw, err := json.Marshal(ss)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, "encode uuid list", err)
	}
	return raw, nil
}

// DecodeLocalizations 从信封 localizations 载荷解码标注对象列表。
func (e Envelope) DecodeLocalizations() ([]Localization, error) {
	if len(e.Localizations) == 0 {
		return nil, nil
	}
	var ls []Localization
	if err := json.Unmarshal(e.Localizations, &ls); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeDecode, "decode localizations", err)
	}
	return ls, nil
}

// DecodeUUIDs 从信封 localizations 载荷解码 UUID 字符串列表。
func (e Envelope) DecodeUUIDs() ([]uuid.UUID, error) {
	if len(e.Localizations) == 0 {
		return nil, nil
	}
	var ss []string
	if err := json.Unmarshal(e.Localizations, &ss); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeDecode, "decode uuid list", err)
	}
	ids := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeDecode, "decode uuid list", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
