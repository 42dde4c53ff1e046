package observability

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig selects the operational log destination.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func (c *LogConfig) ApplyDefaults() {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 28
	}
}

// NewLogger writes to stderr and, when File is set, to a rotating file as
// well. The returned closer releases the file.
func NewLogger(cfg LogConfig) (*log.Logger, io.Closer) {
	cfg.ApplyDefaults()
	flags := log.LstdFlags | log.Lmicroseconds
	if cfg.File == "" {
		return log.New(os.Stderr, "", flags), nopCloser{}
	}
	rot := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return log.New(io.MultiWriter(os.Stderr, rot), "", flags), rot
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
