package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"shark-remote/status"
)

// TestVideoInfoRoundTrip 验证 VideoInfo 的 JSON 往返与 camelCase 字段名。
func TestVideoInfoRoundTrip(t *testing.T) {
	info := VideoInfo{UUID: uuid.New(), URL: "file:///a.mp4", DurationMillis: 60000, FrameRate: 29.97, IsKey: true}
	b, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"durationMillis"`) || !strings.Contains(string(b), `"frameRate"`) {
		t.Fatalf("bad wire names: %s", b)
	}
	var got VideoInfo
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got != info {
		t.Fatalf("got=%+v", got)
	}
}

// TestLocalizationRoundTripOptionalColor 验证 color 字段缺省与出现两种形态的往返。
func TestLocalizationRoundTripOptionalColor(t *testing.T) {
	for _, l := range []Localization{
		{UUID: uuid.New(), Concept: "Aegina", ElapsedTimeMillis: 10, X: 1, Y: 2, Width: 3, Height: 4},
		{UUID: uuid.New(), Concept: "Aegina", ElapsedTimeMillis: 10, DurationMillis: 5, X: 1, Y: 2, Width: 3, Height: 4, Color: "#00ff00"},
	} {
		b, err := json.Marshal(l)
		if err != nil {
			t.Fatal(err)
		}
		if l.Color == "" && strings.Contains(string(b), "color") {
			t.Fatalf("color should be absent: %s", b)
		}
		var got Localization
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatal(err)
		}
		if got != l {
			t.Fatalf("got=%+v", got)
		}
	}
}

// TestFrameCaptureRoundTrip 验证 FrameCapture 的 JSON 往返。
func TestFrameCaptureRoundTrip(t *testing.T) {
	fc := FrameCapture{UUID: uuid.New(), ElapsedTimeMillis: 42, ImageReferenceUUID: uuid.New(), ImageLocation: "/tmp/cap.png"}
	b, err := json.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"imageReferenceUuid"`) {
		t.Fatalf("bad wire names: %s", b)
	}
	var got FrameCapture
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got != fc {
		t.Fatalf("got=%+v", got)
	}
}

// TestVideoPlayerStateRoundTrip 验证 VideoPlayerState 独立编解码使用 status/rate 键。
func TestVideoPlayerStateRoundTrip(t *testing.T) {
	st := VideoPlayerState{Status: status.ShuttlingReverse, Rate: -2.5}
	b, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"status":"shuttling reverse","rate":-2.5}` {
		t.Fatalf("got=%s", b)
	}
	var got VideoPlayerState
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got != st {
		t.Fatalf("got=%+v", got)
	}
}

// TestVideoInfoFromEnvelope 验证扁平响应字段投影为 VideoInfo。
func TestVideoInfoFromEnvelope(t *testing.T) {
	u := uuid.New()
	dur := int64(1000)
	fr := 25.0
	key := true
	env := Envelope{Response: CmdRequestInformation, Status: StatusOK, UUID: u.String(), URL: "file:///b.mov", DurationMillis: &dur, FrameRate: &fr, IsKey: &key}
	info, err := VideoInfoFromEnvelope(env)
	if err != nil {
		t.Fatal(err)
	}
	want := VideoInfo{UUID: u, URL: "file:///b.mov", DurationMillis: 1000, FrameRate: 25.0, IsKey: true}
	if info != want {
		t.Fatalf("got=%+v", info)
	}
	if _, err := VideoInfoFromEnvelope(Envelope{UUID: u.String()}); err == nil {
		t.Fatalf("expected error")
	}
}

// TestPlayerStateFromEnvelope 验证 playStatus/rate 字段投影与非法值拒绝。
func TestPlayerStateFromEnvelope(t *testing.T) {
	rate := 1.5
	env := Envelope{Response: CmdRequestPlayerState, Status: StatusOK, PlayStatus: "playing", Rate: &rate}
	st, err := PlayerStateFromEnvelope(env)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != status.Playing || st.Rate != 1.5 {
		t.Fatalf("got=%+v", st)
	}
	env.PlayStatus = "ok"
	if _, err := PlayerStateFromEnvelope(env); err == nil {
		t.Fatalf("expected error")
	}
}

// TestFrameCaptureFromEnvelope 验证 frame capture done 响应投影。
func TestFrameCaptureFromEnvelope(t *testing.T) {
	u, ref := uuid.New(), uuid.New()
	ms := int64(777)
	env := Envelope{Response: RespFrameCaptureDone, Status: StatusOK, UUID: u.String(), ElapsedTimeMillis: &ms, ImageReferenceUUID: ref.String(), ImageLocation: "/tmp/x.png"}
	fc, err := FrameCaptureFromEnvelope(env)
	if err != nil {
		t.Fatal(err)
	}
	want := FrameCapture{UUID: u, ElapsedTimeMillis: 777, ImageReferenceUUID: ref, ImageLocation: "/tmp/x.png"}
	if fc != want {
		t.Fatalf("got=%+v", fc)
	}
	env.ImageReferenceUUID = ""
	if _, err := FrameCaptureFromEnvelope(env); err == nil {
		t.Fatalf("expected error")
	}
}
