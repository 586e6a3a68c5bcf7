package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"shark-remote/client"
	"shark-remote/config"
	xlog "shark-remote/log"
	"shark-remote/status"
	"shark-remote/udp"
)

const Version = "1.0"

func main() {
	flag.CommandLine.SetOutput(os.Stdout)
	configPathFlag := flag.String("config_path", "configs/config.yaml", "配置文件路径（YAML）。如果是目录，则默认读取该目录下的 config.yaml")
	urlFlag := flag.String("url", "", "启动后打开并播放的视频地址（可选）")
	uuidFlag := flag.String("uuid", "", "打开视频使用的 UUID（可选，缺省随机生成）")
	versionFlag := flag.Bool("version", false, "输出版本并退出")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "shark-remote %s\n\n", Version)
		_, _ = fmt.Fprintln(os.Stdout, "用法：")
		_, _ = fmt.Fprintln(os.Stdout, "  shark-remote [--config_path <path>] [--url <video url>] [--uuid <uuid>] [--version] [--help]")
		_, _ = fmt.Fprintln(os.Stdout, "\n参数：")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		_, _ = fmt.Fprintln(os.Stdout, Version)
		return
	}

	configPath := resolveConfigPath(*configPathFlag)
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}
	if err := xlog.Init(cfg.Logging); err != nil {
		panic(err)
	}

	if err := udp.CheckUDPPortAvailable(cfg.UDP.ReceivePort); err != nil {
		xlog.With(map[string]any{"port": cfg.UDP.ReceivePort, "status": "udp_port_conflict"}).WithError(err).Error("端口占用检测失败")
		panic(err)
	}
	xlog.With(map[string]any{"port": cfg.UDP.ReceivePort, "status": "udp_port_available"}).Info("端口占用检测通过")

	c, err := client.Dial(cfg)
	if err != nil {
		panic(err)
	}
	defer c.Stop()

	if err := c.ConnectWait(cfg.UDP.ReceivePort); err != nil {
		xlog.L().WithError(err).Error("连接远控端失败")
		panic(err)
	}

	if *urlFlag != "" {
		v := uuid.New()
		if *uuidFlag != "" {
			v, err = uuid.Parse(*uuidFlag)
			if err != nil {
				panic(err)
			}
		}
		if err := c.Open(v, *urlFlag); err != nil {
			panic(err)
		}
		if err := waitOpen(c, v, cfg.UDP.OpenTimeout); err != nil {
			xlog.With(map[string]any{"uuid": v.String(), "url": *urlFlag}).WithError(err).Error("等待视频打开失败")
			panic(err)
		}
		if err := c.Play(v); err != nil {
			panic(err)
		}
		xlog.With(map[string]any{"uuid": v.String(), "url": *urlFlag}).Info("视频已开始播放")
	}

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	xlog.L().Info("收到退出信号，关闭客户端")
}

// waitOpen 轮询等待视频进入 Open 状态（open done 是异步通知）。
// 参数：
// - c: 客户端
// - v: 视频 UUID
// - timeout: 等待上限
// 返回：
// - error: 超时或打开失败（状态条目被移除）
func waitOpen(c *client.Client, v uuid.UUID, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s, ok := c.OpenState(v)
		if !ok {
			return fmt.Errorf("open failed for %s", v)
		}
		if s == status.VideoOpen {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("open timed out for %s", v)
}

func resolveConfigPath(p string) string {
	if p == "" {
		return "configs/config.yaml"
	}
	st, err := os.Stat(p)
	if err != nil {
		return p
	}
	if st.IsDir() {
		return filepath.Join(p, "config.yaml")
	}
	return p
}
