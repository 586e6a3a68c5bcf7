package client

import (
	"testing"
	"time"

	xerrors "shark-remote/errors"
	"shark-remote/protocol"
)

// TestCorrelatorCompleteMatches 验证响应名匹配时投递成功。
func TestCorrelatorCompleteMatches(t *testing.T) {
	cor := &correlator{}
	slot := cor.arm(protocol.CmdPlay)
	if !cor.complete(protocol.OKResponse(protocol.CmdPlay)) {
		t.Fatalf("expected complete")
	}
	env, err := cor.await(slot, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if env.Response != protocol.CmdPlay || !env.OK() {
		t.Fatalf("env=%+v", env)
	}
}

// TestCorrelatorIgnoresMismatch 验证异名响应（服务端推送）不会误配在途请求。
func TestCorrelatorIgnoresMismatch(t *testing.T) {
	cor := &correlator{}
	cor.arm(protocol.CmdPause)
	if cor.complete(protocol.OKResponse(protocol.RespOpenDone)) {
		t.Fatalf("mismatched response should not complete")
	}
	if !cor.complete(protocol.OKResponse(protocol.CmdPause)) {
		t.Fatalf("expected complete after mismatch")
	}
}

// TestCorrelatorNoPending 验证无在途请求时响应直接被拒绝。
func TestCorrelatorNoPending(t *testing.T) {
	cor := &correlator{}
	if cor.complete(protocol.OKResponse(protocol.CmdPlay)) {
		t.Fatalf("no pending request, complete should fail")
	}
}

// TestCorrelatorAwaitTimeout 验证超时返回超时错误并撤销登记。
func TestCorrelatorAwaitTimeout(t *testing.T) {
	cor := &correlator{}
	slot := cor.arm(protocol.CmdPlay)
	_, err := cor.await(slot, 50*time.Millisecond)
	if !xerrors.IsTimeout(err) {
		t.Fatalf("got=%v", err)
	}
	if cor.complete(protocol.OKResponse(protocol.CmdPlay)) {
		t.Fatalf("late response should be rejected after timeout")
	}
}
