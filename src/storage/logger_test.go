package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2022, 4, 1, 8, 30, 0, 0, time.UTC)
}

func newFileLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	logger.now = fixedClock
	t.Cleanup(func() { logger.Close() })
	return logger, path
}

func TestLogFormat(t *testing.T) {
	logger, path := newFileLogger(t)
	var out bytes.Buffer
	logger.Mirror(&out)

	logger.Info("数据源已加载")
	logger.Warningf("跳过 %d 行", 3)

	want := "[2022-04-01 08:30:00] INFO: 数据源已加载\n" +
		"[2022-04-01 08:30:00] WARNING: 跳过 3 行\n"
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
	assert.Equal(t, want, out.String())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "FATAL", FATAL.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestWriterLogger(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger(&out)
	logger.now = fixedClock

	n, err := logger.Write([]byte("GET /health 200\n"))
	require.NoError(t, err)
	assert.Equal(t, len("GET /health 200\n"), n)
	assert.Equal(t, "[2022-04-01 08:30:00] INFO: GET /health 200\n", out.String())

	// 不落盘的记录器不轮转
	rotated, err := logger.CheckRotate("1")
	require.NoError(t, err)
	assert.False(t, rotated)
}

func TestSubscribe(t *testing.T) {
	logger := NewWriterLogger(nil)
	logger.now = fixedClock

	ch, cancel := logger.Subscribe()
	logger.Error("读取失败")

	select {
	case msg := <-ch:
		assert.Equal(t, "[2022-04-01 08:30:00] ERROR: 读取失败\n", msg)
	case <-time.After(time.Second):
		t.Fatal("订阅者没有收到日志")
	}

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok, "取消后通道应关闭")

	// 取消后继续写日志不应阻塞或 panic
	logger.Info("still running")
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	logger := NewWriterLogger(nil)
	ch, cancel := logger.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		logger.Debug("tick")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestCloseClosesSubscribers(t *testing.T) {
	logger, _ := newFileLogger(t)
	ch, cancel := logger.Subscribe()

	require.NoError(t, logger.Close())
	_, ok := <-ch
	assert.False(t, ok)
	cancel()
}

func TestReopen(t *testing.T) {
	logger, path := newFileLogger(t)
	logger.Info("before")

	moved := path + ".old"
	require.NoError(t, os.Rename(path, moved))
	require.NoError(t, logger.Reopen(""))
	logger.Info("after")

	old, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Contains(t, string(old), "before")

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "after")
	assert.NotContains(t, string(current), "before")
}

func TestCheckRotate(t *testing.T) {
	logger, path := newFileLogger(t)

	rotated, err := logger.CheckRotate("1024")
	require.NoError(t, err)
	assert.False(t, rotated)

	logger.Info(strings.Repeat("x", 64))
	rotated, err = logger.CheckRotate("2 * 16")
	require.NoError(t, err)
	assert.True(t, rotated)

	archived := strings.TrimSuffix(path, ".log") + ".20220401083000.log"
	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Contains(t, string(data), strings.Repeat("x", 64))

	logger.Info("fresh")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2022-04-01 08:30:00] INFO: fresh\n", string(data))

	_, err = logger.CheckRotate("ten")
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		expr    string
		want    int64
		wantErr bool
	}{
		{"10 * 1024 * 1024", 10 * 1024 * 1024, false},
		{"512", 512, false},
		{"", 0, false},
		{"10 * MB", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.expr)
		if tt.wantErr {
			assert.Error(t, err, tt.expr)
			continue
		}
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got, tt.expr)
	}
}
