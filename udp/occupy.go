package udp

import (
	"net"
	"time"
)

// CheckUDPPortAvailable 检测 UDP 端口是否可用（通过尝试绑定并立即关闭）。
// 参数：
// - port: 端口号
// 返回：
// - error: 端口不可用或绑定失败原因
func CheckUDPPortAvailable(port int) error {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	c, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	_ = c.SetDeadline(time.Now())
	_ = c.Close()
	return nil
}
