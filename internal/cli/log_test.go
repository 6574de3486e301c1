package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("chunk done") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("em iteration") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("em iteration") }, true},
		{"warn at info level", log.InfoLevel, func(l *log.Logger) { l.Warn("no convergence") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	f, err := parseLogFormat("json")
	if err != nil {
		t.Fatal(err)
	}
	logger.SetFormatter(f)
	logger.Info("partitioned", "families", 1200, "Q", 4)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "partitioned" || entry["families"] != float64(1200) {
		t.Errorf("entry = %v", entry)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(10 * time.Millisecond)
	prog.done("Partitioned", "organisms", 12, "Q", 5)

	out := buf.String()
	for _, want := range []string{"Partitioned (", "ms)", "organisms=12", "Q=5"} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output %q does not contain %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("a context without logger should yield log.Default()")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if loggerFromContext(ctx) != custom {
		t.Fatal("loggerFromContext did not return the attached logger")
	}
	loggerFromContext(ctx).Info("sample done")
	if !strings.Contains(buf.String(), "sample done") {
		t.Error("attached logger did not write")
	}
}
