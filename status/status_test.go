package status

import (
	"encoding/json"
	"testing"
)

// TestParsePlayStatus 验证播放状态文本解析与非法值拒绝。
func TestParsePlayStatus(t *testing.T) {
	s, err := ParsePlayStatus("shuttling forward")
	if err != nil {
		t.Fatal(err)
	}
	if s != ShuttlingForward {
		t.Fatalf("got=%s", s)
	}
	if _, err := ParsePlayStatus("ok"); err == nil {
		t.Fatalf("expected error")
	}
}

// TestPlayStatusJSONRoundTrip 验证 PlayStatus 的 JSON 编解码往返。
func TestPlayStatusJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Paused)
	if err != nil {
		t.Fatal(err)
	}
	var s PlayStatus
	if err := json.Unmarshal(b, &s); err != nil {
		t.Fatal(err)
	}
	if s != Paused {
		t.Fatalf("got=%s", s)
	}
	if err := json.Unmarshal([]byte(`"bogus"`), &s); err == nil {
		t.Fatalf("expected error")
	}
}

// TestParseVideoOpenState 验证视频打开状态解析。
func TestParseVideoOpenState(t *testing.T) {
	s, err := ParseVideoOpenState("Opening")
	if err != nil {
		t.Fatal(err)
	}
	if s != VideoOpening {
		t.Fatalf("got=%s", s)
	}
	if _, err := ParseVideoOpenState("Failed"); err == nil {
		t.Fatalf("expected error")
	}
}
