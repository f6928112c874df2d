package processor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrTimeTakenFormat 耗时字段不符合 "<标签> <整数> [min]" 或 "<整数> min"
var ErrTimeTakenFormat = errors.New("耗时字段格式错误")

const minuteUnit = "min"

// ParseTimeTaken 从形如 "(min) 25"、"(min) 25 min"、"25 min" 的文本中取出分钟数
// 片段按单个空格切分，不做任何猜测
func ParseTimeTaken(s string) (int, error) {
	tokens := strings.Split(s, " ")
	// 末尾多余的空格不算片段
	for len(tokens) > 2 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) < 2 {
		return 0, fmt.Errorf("%w: %q 少于两个以空格分隔的片段", ErrTimeTakenFormat, s)
	}

	switch {
	// <label> <int> [min]
	case isMinutes(tokens[1]) && (len(tokens) == 2 || len(tokens) == 3 && tokens[2] == minuteUnit):
		n, _ := strconv.Atoi(tokens[1])
		return n, nil
	// <int> min
	case len(tokens) == 2 && tokens[1] == minuteUnit && isMinutes(tokens[0]):
		n, _ := strconv.Atoi(tokens[0])
		return n, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrTimeTakenFormat, s)
}

// 非负十进制整数
func isMinutes(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := strconv.Atoi(tok)
	return err == nil
}
