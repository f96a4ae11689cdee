package common

import (
	"regexp"
	"strings"
	"time"
)

// PrettyDuration 是 time.Duration 值的漂亮打印版本，
// 去掉文本表示中不必要的精度
type PrettyDuration time.Duration

var prettyDurationRe = regexp.MustCompile(`\.[0-9]{4,}`)

// String 实现了 Stringer 接口，持续时间四舍五入到三位小数。
func (d PrettyDuration) String() string {
	label := time.Duration(d).String()
	if match := prettyDurationRe.FindString(label); len(match) > 4 {
		label = strings.Replace(label, match, match[:4], 1)
	}
	return label
}

// TerminalString 让终端格式的日志也使用缩短后的形式。
func (d PrettyDuration) TerminalString() string {
	return d.String()
}
