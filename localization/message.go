package localization

import (
	"encoding/json"

	xerrors "shark-remote/errors"
	"shark-remote/protocol"
)

// Action 标注变更消息的动作类型。
type Action string

const (
	ActionAdd      Action = "add"
	ActionRemove   Action = "remove"
	ActionClear    Action = "clear"
	ActionSelect   Action = "select"
	ActionDeselect Action = "deselect"
)

// ParseAction 解析动作字符串。
// 参数：
// - s: 动作字符串
// 返回：
// - Action: 解析结果
// - error: 未知动作
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAdd, ActionRemove, ActionClear, ActionSelect, ActionDeselect:
		return Action(s), nil
	default:
		return "", xerrors.New(xerrors.CodeDecode, "unknown action: "+s)
	}
}

func (a Action) String() string { return string(a) }

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Message 标注通知通道上的一条消息。remove/select/deselect 的
// localizations 只需携带 UUID，其余字段可为零值。
type Message struct {
	Action        Action                  `json:"action"`
	Localizations []protocol.Localization `json:"localizations,omitempty"`
	Video         *protocol.Video         `json:"video,omitempty"`
}

// NewMessage 构造一条针对某视频的消息。
// 参数：
// - action: 动作
// - video: 视频身份（可为 nil，表示与具体视频无关）
// - ls: 标注列表
func NewMessage(action Action, video *protocol.Video, ls ...protocol.Localization) Message {
	return Message{Action: action, Video: video, Localizations: ls}
}
