// Package logging builds the zap logger shared by the triage commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	Name       string    // logger name, also the log file prefix
	Level      string    // DEBUG, INFO, WARNING, ERROR, CRITICAL
	Structured bool      // JSON on the console instead of plain text
	Dir        string    // log directory; no file sink when empty or absent
	Console    io.Writer // defaults to os.Stdout
	Now        func() time.Time
}

// New returns a logger writing to the console and, when opts.Dir exists, to a
// daily file named <name>_YYYYMMDD.log inside it.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = "triage"
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleEnc := zapcore.NewConsoleEncoder(consoleCfg)
	if opts.Structured {
		consoleEnc = zapcore.NewJSONEncoder(jsonEncoderConfig())
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.AddSync(opts.Console), level),
	}

	if path := FilePath(opts.Dir, opts.Name, opts.Now()); path != "" {
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // megabytes
			MaxBackups: 7,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(file), level))
	}

	return zap.New(zapcore.NewTee(cores...)).Named(opts.Name), nil
}

// FilePath returns the log file for name on the given day, or "" when dir is
// empty or does not exist.
func FilePath(dir, name string, day time.Time) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, day.Format("20060102")))
}

// ParseLevel maps the configured level name onto a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "event"
	return cfg
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
