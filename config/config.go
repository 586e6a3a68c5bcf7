package config

import "time"

type Config struct {
	UDP          UDPConfig          `yaml:"udp"`
	Localization LocalizationConfig `yaml:"localization"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type UDPConfig struct {
	SendHost       string        `yaml:"send_host"`
	SendPort       int           `yaml:"send_port"`
	ReceivePort    int           `yaml:"receive_port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
	ReadInterval   time.Duration `yaml:"read_interval"`
	SendQueue      int           `yaml:"send_queue"`
	ReceiveQueue   int           `yaml:"receive_queue"`
}

type LocalizationConfig struct {
	IncomingHost  string `yaml:"incoming_host"`
	IncomingPort  int    `yaml:"incoming_port"`
	OutgoingPort  int    `yaml:"outgoing_port"`
	IncomingTopic string `yaml:"incoming_topic"`
	OutgoingTopic string `yaml:"outgoing_topic"`
}

type LoggingConfig struct {
	Level    string   `yaml:"level"`
	Format   string   `yaml:"format"`
	Output   string   `yaml:"output"`
	FilePath string   `yaml:"file_path"`
	MaxSize  ByteSize `yaml:"max_size"`
	MaxAge   int      `yaml:"max_age"`
	Compress bool     `yaml:"compress"`
}
