package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const (
	timeFormat     = "2006-01-02T15:04:05-0700"
	termTimeFormat = "01-02|15:04:05.000"
	termMsgJust    = 40
)

// 终端输出中位置前缀会去掉模块名
const locationTrim = "flybind/"

// locationEnabled 非零时终端格式带上 文件:行号。
var locationEnabled uint32

// PrintOrigins 打开或关闭终端格式的调用位置输出。
func PrintOrigins(print bool) {
	var v uint32
	if print {
		v = 1
	}
	atomic.StoreUint32(&locationEnabled, v)
}

type Format interface {
	Format(r *Record) []byte
}

// FormatFunc 把函数包装成 Format。
func FormatFunc(f func(*Record) []byte) Format {
	return formatFunc(f)
}

type formatFunc func(*Record) []byte

func (f formatFunc) Format(r *Record) []byte {
	return f(r)
}

// TerminalStringer 由希望在终端输出中使用更短形式的类型实现，
// 例如 common.PrettyDuration。
type TerminalStringer interface {
	TerminalString() string
}

// TerminalFormat 输出便于人阅读的单行记录：
//
//	INFO [05-16|20:58:45.123] Registered contracts      count=1 elapsed=1.234ms
//
// usecolor 为 true 时级别带颜色。
func TerminalFormat(usecolor bool) Format {
	return FormatFunc(func(r *Record) []byte {
		msg := escapeMessage(r.Msg)
		lvl := r.Lvl.AlignedString()
		if usecolor {
			lvl = fmt.Sprintf("\x1b[%dm%s\x1b[0m", levelColor(r.Lvl), lvl)
		}
		b := new(bytes.Buffer)
		if atomic.LoadUint32(&locationEnabled) != 0 {
			location := strings.TrimPrefix(fmt.Sprintf("%+v", r.Call), locationTrim)
			fmt.Fprintf(b, "%s[%s|%s] %s ", lvl, r.Time.Format(termTimeFormat), location, msg)
		} else {
			fmt.Fprintf(b, "%s[%s] %s ", lvl, r.Time.Format(termTimeFormat), msg)
		}
		if n := utf8.RuneCountInString(msg); len(r.Ctx) > 0 && n < termMsgJust {
			b.Write(bytes.Repeat([]byte{' '}, termMsgJust-n))
		}
		logfmt(b, r.Ctx, true)
		return b.Bytes()
	})
}

func levelColor(l Lvl) int {
	switch l {
	case LvlCrit:
		return 35
	case LvlError:
		return 31
	case LvlWarn:
		return 33
	case LvlInfo:
		return 32
	case LvlDebug:
		return 36
	default:
		return 34
	}
}

// LogfmtFormat 输出 logfmt 格式：t=... lvl=... msg=... key=value ...
func LogfmtFormat() Format {
	return FormatFunc(func(r *Record) []byte {
		head := []interface{}{r.KeyNames.Time, r.Time, r.KeyNames.Lvl, r.Lvl, r.KeyNames.Msg, r.Msg}
		b := new(bytes.Buffer)
		logfmt(b, append(head, r.Ctx...), false)
		return b.Bytes()
	})
}

func logfmt(b *bytes.Buffer, ctx []interface{}, term bool) {
	for i := 0; i < len(ctx); i += 2 {
		if i != 0 {
			b.WriteByte(' ')
		}
		k, ok := ctx[i].(string)
		v := formatLogfmtValue(ctx[i+1], term)
		if !ok {
			k, v = errorKey, formatLogfmtValue(ctx[i], term)
		}
		b.WriteString(escapeString(k))
		b.WriteByte('=')
		b.WriteString(v)
	}
	b.WriteByte('\n')
}

// JSONFormat 每条记录输出一行 JSON 对象。
func JSONFormat() Format {
	return FormatFunc(func(r *Record) []byte {
		props := map[string]interface{}{
			r.KeyNames.Time: r.Time,
			r.KeyNames.Lvl:  r.Lvl.String(),
			r.KeyNames.Msg:  r.Msg,
		}
		for i := 0; i < len(r.Ctx); i += 2 {
			k, ok := r.Ctx[i].(string)
			if !ok {
				props[errorKey] = fmt.Sprintf("%+v is not a string key", r.Ctx[i])
				continue
			}
			props[k] = formatJSONValue(r.Ctx[i+1])
		}
		b, err := json.Marshal(props)
		if err != nil {
			b, _ = json.Marshal(map[string]string{errorKey: err.Error()})
		}
		return append(b, '\n')
	})
}

// formatShared 处理两种格式共有的类型，nil 指针的 String 调用不会让记录崩溃。
func formatShared(value interface{}) (result interface{}) {
	defer func() {
		if err := recover(); err != nil {
			if v := reflect.ValueOf(value); v.Kind() == reflect.Ptr && v.IsNil() {
				result = "nil"
			} else {
				panic(err)
			}
		}
	}()
	switch v := value.(type) {
	case time.Time:
		return v.Format(timeFormat)
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

func formatJSONValue(value interface{}) interface{} {
	value = formatShared(value)
	switch value.(type) {
	case int, int8, int16, int32, int64, float32, float64, uint, uint8, uint16, uint32, uint64, string, bool:
		return value
	default:
		return fmt.Sprintf("%+v", value)
	}
}

func formatLogfmtValue(value interface{}, term bool) string {
	if value == nil {
		return "nil"
	}
	switch v := value.(type) {
	case time.Time:
		return v.Format(timeFormat)
	case *big.Int:
		if v == nil {
			return "<nil>"
		}
		return v.String()
	}
	if term {
		if s, ok := value.(TerminalStringer); ok {
			return escapeString(s.TerminalString())
		}
	}
	switch v := formatShared(value).(type) {
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', 3, 64)
	case float64:
		return strconv.FormatFloat(v, 'f', 3, 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case string:
		return escapeString(v)
	default:
		return escapeString(fmt.Sprintf("%+v", v))
	}
}

// escapeString 在含有空白、引号、等号或非 ASCII 字符时加引号。
func escapeString(s string) string {
	for _, r := range s {
		if r <= '"' || r > '~' || r == '=' {
			return strconv.Quote(s)
		}
	}
	return s
}

// escapeMessage 与 escapeString 相同，但允许空格和换行。
func escapeMessage(s string) string {
	for _, r := range s {
		if r == '\n' || r == '\r' {
			continue
		}
		if r < ' ' || r > '~' || r == '=' {
			return strconv.Quote(s)
		}
	}
	return s
}
