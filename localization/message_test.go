package localization

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"shark-remote/protocol"
)

// TestActionRoundTrip 验证动作枚举的 JSON 编解码往返。
func TestActionRoundTrip(t *testing.T) {
	for _, a := range []Action{ActionAdd, ActionRemove, ActionClear, ActionSelect, ActionDeselect} {
		b, err := json.Marshal(a)
		if err != nil {
			t.Fatal(err)
		}
		var got Action
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatal(err)
		}
		if got != a {
			t.Fatalf("got=%s want=%s", got, a)
		}
	}
}

// TestActionRejectsUnknown 验证未知动作解码报错。
func TestActionRejectsUnknown(t *testing.T) {
	var a Action
	if err := json.Unmarshal([]byte(`"explode"`), &a); err == nil {
		t.Fatalf("expected error")
	}
}

// TestMessageWireShape 验证消息的线格式：空列表与 nil 视频不出现在 JSON 中。
func TestMessageWireShape(t *testing.T) {
	b, err := json.Marshal(NewMessage(ActionClear, nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"action":"clear"}` {
		t.Fatalf("got=%s", b)
	}
}

// TestMessageRoundTrip 验证带标注与视频的消息往返。
func TestMessageRoundTrip(t *testing.T) {
	v := protocol.Video{UUID: uuid.New(), URL: "file:///a.mp4"}
	l := protocol.Localization{UUID: uuid.New(), Concept: "nanomia", X: 1, Y: 2, Width: 3, Height: 4}
	b, err := json.Marshal(NewMessage(ActionAdd, &v, l))
	if err != nil {
		t.Fatal(err)
	}
	var got Message
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Action != ActionAdd || got.Video == nil || got.Video.UUID != v.UUID {
		t.Fatalf("got=%+v", got)
	}
	if len(got.Localizations) != 1 || got.Localizations[0].UUID != l.UUID {
		t.Fatalf("localizations=%+v", got.Localizations)
	}
}
