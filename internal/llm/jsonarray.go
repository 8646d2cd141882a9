package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoJSONArray 模型输出里找不到完整的 JSON 数组
var ErrNoJSONArray = errors.New("no JSON array in response")

// ExtractJSONArray 返回文本中第一个括号配平的顶层 [...] 片段。
// 会跳过字符串内部的括号和转义字符，不做 JSON 校验。
func ExtractJSONArray(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if start < 0 {
			if ch == '[' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONArray
}

// DecodeJSONArray 两步解析：先定位数组，再严格反序列化
func DecodeJSONArray(text string, v any) error {
	raw, err := ExtractJSONArray(text)
	if err != nil {
		return fmt.Errorf("%w: %s", err, preview(text, 200))
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("invalid JSON in response: %w: %s", err, preview(raw, 200))
	}
	return nil
}

func preview(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
