package udp

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"shark-remote/config"
	xerrors "shark-remote/errors"
	"shark-remote/protocol"
)

// TestSyncClientRequestTimeout 验证对端无响应时在截止时间附近返回超时错误。
func TestSyncClientRequestTimeout(t *testing.T) {
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	cfg := config.DefaultConfig().UDP
	cfg.SendHost = "127.0.0.1"
	cfg.SendPort = peer.LocalAddr().(*net.UDPAddr).Port
	cfg.RequestTimeout = 300 * time.Millisecond

	c := NewSyncClient(cfg, nil)
	start := time.Now()
	_, err = c.Request(protocol.NewCommand(protocol.CmdRequestInformation))
	elapsed := time.Since(start)
	if !xerrors.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed < cfg.RequestTimeout || elapsed > cfg.RequestTimeout+time.Second {
		t.Fatalf("elapsed=%s", elapsed)
	}
}

// TestSyncClientRequestResponse 验证同步请求返回响应，且等待期间的 ping 会被回应。
func TestSyncClientRequestResponse(t *testing.T) {
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	cfg := config.DefaultConfig().UDP
	cfg.SendHost = "127.0.0.1"
	cfg.SendPort = peer.LocalAddr().(*net.UDPAddr).Port
	cfg.RequestTimeout = 2 * time.Second

	pong := make(chan protocol.Envelope, 1)
	go func() {
		buf := make([]byte, protocol.MaxDatagram)
		n, addr, err := peer.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var req protocol.Envelope
		if err := json.Unmarshal(buf[:n], &req); err != nil || req.Command != protocol.CmdConnect {
			return
		}
		// 先推一条 ping，再发正式响应
		ping, _ := json.Marshal(protocol.NewCommand(protocol.CmdPing))
		_, _ = peer.WriteToUDP(ping, addr)

		resp := protocol.OKResponse(protocol.CmdConnect)
		data, _ := json.Marshal(resp)
		_, _ = peer.WriteToUDP(data, addr)

		_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err = peer.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var p protocol.Envelope
		if err := json.Unmarshal(buf[:n], &p); err == nil {
			pong <- p
		}
	}()

	c := NewSyncClient(cfg, nil)
	env := protocol.NewCommand(protocol.CmdConnect)
	env.Port = 7001
	resp, err := c.Request(env)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Response != protocol.CmdConnect || !resp.OK() {
		t.Fatalf("got=%+v", resp)
	}

	select {
	case p := <-pong:
		if p.Response != protocol.CmdPing || !p.OK() {
			t.Fatalf("got=%+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no ping reply observed")
	}
}

// TestSyncClientRejectsOversizeRequest 验证超长出站报文被拒绝而非静默截断。
func TestSyncClientRejectsOversizeRequest(t *testing.T) {
	cfg := config.DefaultConfig().UDP
	cfg.SendHost = "127.0.0.1"
	cfg.SendPort = 9
	cfg.RequestTimeout = 100 * time.Millisecond

	big := make([]byte, protocol.MaxDatagram)
	for i := range big {
		big[i] = 'a'
	}
	env := protocol.NewCommand(protocol.CmdOpen)
	env.URL = string(big)

	c := NewSyncClient(cfg, nil)
	if _, err := c.Request(env); xerrors.Code(err) != xerrors.CodeBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}
