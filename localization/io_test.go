package localization

import (
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"shark-remote/config"
	"shark-remote/protocol"
)

func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func pubPort(t *testing.T, p *Publisher) int {
	t.Helper()
	return p.Addr().(*net.TCPAddr).Port
}

// TestPubSubDelivery 验证发布的消息能送达同话题订阅端。
func TestPubSubDelivery(t *testing.T) {
	pub, err := NewPublisher(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	sub, err := Subscribe("127.0.0.1", pubPort(t, pub), "localization", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	l := protocol.Localization{UUID: uuid.New(), Concept: "grimpoteuthis"}
	msg := NewMessage(ActionAdd, nil, l)

	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got := <-sub.C():
			if got.Action != ActionAdd || len(got.Localizations) != 1 || got.Localizations[0].UUID != l.UUID {
				t.Fatalf("got=%+v", got)
			}
			return
		case <-tick.C:
			pub.Broadcast("localization", msg)
		case <-deadline:
			t.Fatalf("message not delivered")
		}
	}
}

// TestPubSubTopicFilter 验证异话题订阅端收不到消息。
func TestPubSubTopicFilter(t *testing.T) {
	pub, err := NewPublisher(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	want, err := Subscribe("127.0.0.1", pubPort(t, pub), "localization", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer want.Close()
	other, err := Subscribe("127.0.0.1", pubPort(t, pub), "annotations", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	msg := NewMessage(ActionClear, nil)
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for delivered := false; !delivered; {
		select {
		case <-want.C():
			delivered = true
		case <-tick.C:
			pub.Broadcast("localization", msg)
		case <-deadline:
			t.Fatalf("message not delivered")
		}
	}

	select {
	case got := <-other.C():
		t.Fatalf("cross-topic delivery: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestSubscriberCloseClosesChannel 验证订阅端关闭后消息通道随之关闭。
func TestSubscriberCloseClosesChannel(t *testing.T) {
	pub, err := NewPublisher(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	sub, err := Subscribe("127.0.0.1", pubPort(t, pub), "localization", nil)
	if err != nil {
		t.Fatal(err)
	}
	sub.Close()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatalf("unexpected message")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed")
	}
}

// TestIOEndToEnd 验证通道两个方向：远端发布落到总线镜像，本地动作发布给远端订阅者。
func TestIOEndToEnd(t *testing.T) {
	remote, err := NewPublisher(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	cfg := config.LocalizationConfig{
		IncomingHost:  "127.0.0.1",
		IncomingPort:  pubPort(t, remote),
		OutgoingPort:  freeTCPPort(t),
		IncomingTopic: "localization",
		OutgoingTopic: "localization",
	}
	io, err := NewIO(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer io.Close()

	// 远端 → 本地：广播 add，总线镜像最终出现该标注
	l := protocol.Localization{UUID: uuid.New(), Concept: "nanomia"}
	in := NewMessage(ActionAdd, nil, l)
	deadline := time.Now().Add(3 * time.Second)
	for len(io.Controller().Localizations()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("incoming message never applied")
		}
		remote.Broadcast("localization", in)
		time.Sleep(20 * time.Millisecond)
	}

	// 本地 → 远端：订阅出站端口，本地 Add 最终送达
	sub, err := Subscribe("127.0.0.1", cfg.OutgoingPort, "localization", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	v := protocol.Video{UUID: uuid.New()}
	out := protocol.Localization{UUID: uuid.New(), Concept: "bathochordaeus"}
	timeout := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got := <-sub.C():
			if got.Action == ActionAdd && len(got.Localizations) == 1 && got.Localizations[0].UUID == out.UUID {
				return
			}
		case <-tick.C:
			io.Controller().Add(v, out)
		case <-timeout:
			t.Fatalf("outgoing message never published")
		}
	}
}
