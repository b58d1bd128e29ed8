package collector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// 年份 4 位，月/日 1~2 位，分隔符为 . - /
var datePattern = regexp.MustCompile(`(\d{4})[./-](\d{1,2})[./-](\d{1,2})`)

// NormalizeDate 将 "2025.9.1"、"2025/09/01 12:30" 之类的文本规范为 YYYY-MM-DD。
// 匹配不到时原样返回去掉首尾空白的文本（如 "오늘"、"3시간 전"），不报错。
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
}
