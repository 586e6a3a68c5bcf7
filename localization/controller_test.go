package localization

import (
	"testing"

	"github.com/google/uuid"

	"shark-remote/protocol"
)

func testVideo() protocol.Video {
	return protocol.Video{UUID: uuid.New(), URL: "file:///a.mp4"}
}

// TestControllerLocalEmits 验证本地动作落镜像并进出站队列。
func TestControllerLocalEmits(t *testing.T) {
	c := NewController(nil)
	v := testVideo()
	l := protocol.Localization{UUID: uuid.New(), Concept: "bathochordaeus"}
	c.Add(v, l)

	if got := c.Localizations(); len(got) != 1 || got[0].UUID != l.UUID {
		t.Fatalf("localizations=%+v", got)
	}
	select {
	case msg := <-c.Outgoing():
		if msg.Action != ActionAdd || len(msg.Localizations) != 1 {
			t.Fatalf("msg=%+v", msg)
		}
		if msg.Video == nil || msg.Video.UUID != v.UUID {
			t.Fatalf("video=%+v", msg.Video)
		}
	default:
		t.Fatalf("no outgoing message")
	}
}

// TestControllerRemoveCarriesUUIDOnly 验证 remove 消息只携带 UUID 引用。
func TestControllerRemoveCarriesUUIDOnly(t *testing.T) {
	c := NewController(nil)
	v := testVideo()
	l := protocol.Localization{UUID: uuid.New(), Concept: "bathochordaeus"}
	c.Add(v, l)
	<-c.Outgoing()

	c.Remove(v, l.UUID)
	if got := c.Localizations(); len(got) != 0 {
		t.Fatalf("localizations=%+v", got)
	}
	msg := <-c.Outgoing()
	if msg.Action != ActionRemove {
		t.Fatalf("action=%s", msg.Action)
	}
	if len(msg.Localizations) != 1 || msg.Localizations[0].UUID != l.UUID || msg.Localizations[0].Concept != "" {
		t.Fatalf("localizations=%+v", msg.Localizations)
	}
}

// TestControllerAcceptApplies 验证远端消息依动作更新镜像并转入入站队列。
func TestControllerAcceptApplies(t *testing.T) {
	c := NewController(nil)
	v := testVideo()
	l := protocol.Localization{UUID: uuid.New(), Concept: "vampyroteuthis"}

	c.Accept(NewMessage(ActionAdd, &v, l))
	if got := c.Localizations(); len(got) != 1 {
		t.Fatalf("localizations=%+v", got)
	}
	c.Accept(NewMessage(ActionSelect, nil, protocol.Localization{UUID: l.UUID}))
	if got := c.Selected(); len(got) != 1 || got[0] != l.UUID {
		t.Fatalf("selected=%v", got)
	}
	c.Accept(NewMessage(ActionDeselect, nil, protocol.Localization{UUID: l.UUID}))
	if got := c.Selected(); len(got) != 0 {
		t.Fatalf("selected=%v", got)
	}
	c.Accept(NewMessage(ActionClear, &v))
	if got := c.Localizations(); len(got) != 0 {
		t.Fatalf("localizations=%+v", got)
	}

	for i := 0; i < 4; i++ {
		select {
		case <-c.Incoming():
		default:
			t.Fatalf("incoming message %d missing", i)
		}
	}
}

// TestControllerRemoveDropsSelection 验证移除标注时同步清掉其选中状态。
func TestControllerRemoveDropsSelection(t *testing.T) {
	c := NewController(nil)
	v := testVideo()
	l := protocol.Localization{UUID: uuid.New()}
	c.Add(v, l)
	c.Select(l.UUID)
	c.Remove(v, l.UUID)
	if got := c.Selected(); len(got) != 0 {
		t.Fatalf("selected=%v", got)
	}
}
