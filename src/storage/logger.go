package storage

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误
)

// 每个订阅者通道的缓冲大小
const subscriberBuffer = 100

// Logger 日志记录器结构体
type Logger struct {
	path        string        // 日志文件路径，为空表示只写 out
	file        *os.File      // 日志文件句柄
	out         io.Writer     // 额外的输出(例如标准输出)，可为 nil
	mu          sync.Mutex    // 互斥锁，保证并发安全
	subscribers []chan string // 订阅者通道列表
	now         func() time.Time
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径
//
// 返回值:
//
//	*Logger: 日志记录器实例
//	error: 创建过程中的错误
func NewLogger(filename string) (*Logger, error) {
	// 打开或创建日志文件，权限设置为0644
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &Logger{
		path: filename,
		file: file,
		now:  time.Now,
	}, nil
}

// NewWriterLogger 创建只写入 w 的日志记录器，不落盘
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{out: w, now: time.Now}
}

// Mirror 同时把日志写到 w(例如 os.Stdout)
func (l *Logger) Mirror(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// Close 关闭日志文件并关闭所有订阅通道
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ch := range l.subscribers {
		close(ch)
	}
	l.subscribers = nil

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Reopen 重新打开日志文件，用于外部轮转后(SIGHUP)
// 参数：
// filename：新文件的路径，为空则沿用当前路径
// 返回值：
// error：重建文件时的错误
func (l *Logger) Reopen(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if filename == "" {
		filename = l.path
	}
	if filename == "" {
		return nil
	}

	// 关闭旧文件
	if l.file != nil {
		_ = l.file.Close()
	}

	// 重新打开
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		return err
	}
	l.path = filename
	l.file = file
	return nil
}

// Log 记录日志方法
// 参数:
//
//	level: 日志级别
//	message: 日志消息内容
func (l *Logger) Log(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 格式化日志条目: [时间] 级别: 消息
	entry := fmt.Sprintf("[%s] %s: %s\n",
		l.now().Format("2006-01-02 15:04:05"),
		level.String(),
		message)

	if l.file != nil {
		l.file.WriteString(entry)
	}
	if l.out != nil {
		io.WriteString(l.out, entry)
	}

	// 通知所有订阅者，通道已满则丢弃
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Write 实现 io.Writer，整段内容按 INFO 级别记录，供 HTTP 框架等使用
func (l *Logger) Write(p []byte) (int, error) {
	l.Log(INFO, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// CheckRotate 日志文件超过 maxSizeExpr(如 "10 * 1024 * 1024" 字节)时轮转
// 返回值:
//
//	bool: 是否发生了轮转
//	error: 读取文件信息或轮转时的错误
func (l *Logger) CheckRotate(maxSizeExpr string) (bool, error) {
	limit, err := ParseSize(maxSizeExpr)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	file := l.file
	l.mu.Unlock()
	if file == nil || limit <= 0 {
		return false, nil
	}

	info, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("读取日志文件信息失败: %w", err)
	}

	if info.Size() <= limit {
		return false, nil
	}
	return true, l.rotateLog()
}

func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	l.file.Close()

	ext := ""
	base := l.path
	if i := strings.LastIndex(l.path, "."); i > 0 {
		base, ext = l.path[:i], l.path[i:]
	}
	archived := fmt.Sprintf("%s.%s%s", base, l.now().Format("20060102150405"), ext)
	if err := os.Rename(l.path, archived); err != nil {
		return fmt.Errorf("重命名日志文件失败: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		return fmt.Errorf("重新创建日志文件失败: %w", err)
	}
	l.file = file
	return nil
}

// Subscribe 订阅日志消息
// 返回值:
//
//	<-chan string: 只读通道，用于接收日志消息
//	func(): 取消订阅
func (l *Logger) Subscribe() (<-chan string, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	l.subscribers = append(l.subscribers, ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, c := range l.subscribers {
				if c == ch {
					l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}
	return ch, cancel
}

// String 实现LogLevel的String方法
// 返回值:
//
//	string: 日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSize 解析形如 "10 * 1024 * 1024" 的乘法表达式
func ParseSize(expr string) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, nil
	}
	var result int64 = 1
	for _, part := range strings.Split(expr, "*") {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("无效的日志大小表达式 %q: %w", expr, err)
		}
		result *= num
	}
	return result, nil
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }   // 记录调试信息
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }    // 记录普通信息
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) } // 记录警告信息
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }   // 记录错误信息
func (l *Logger) Fatal(msg string)   { l.Log(FATAL, msg) }   // 记录致命错误

func (l *Logger) Infof(format string, args ...any)    { l.Log(INFO, fmt.Sprintf(format, args...)) }
func (l *Logger) Warningf(format string, args ...any) { l.Log(WARNING, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any)   { l.Log(ERROR, fmt.Sprintf(format, args...)) }
