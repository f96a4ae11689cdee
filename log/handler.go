package log

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"

	"github.com/go-stack/stack"
)

// Handler 定义日志记录的写入位置和方式。
// Logger 通过写入 Handler 来打印其日志记录。
// 处理程序是可组合的，为您提供了极大的组合灵活性
// 它们来实现适合您的应用程序的日志记录结构。
type Handler interface {
	Log(r *Record) error
}

// FuncHandler 返回一个记录给定记录的处理程序
// 功能。
func FuncHandler(fn func(r *Record) error) Handler {
	return funcHandler(fn)
}

type funcHandler func(r *Record) error

func (h funcHandler) Log(r *Record) error {
	return h(r)
}

// StreamHandler 将日志记录写入一个 io.Writer
// 使用给定的格式。可以使用 StreamHandler
// 轻松开始将日志记录写入其他
// 输出。
//
// StreamHandler 用 LazyHandler 和 SyncHandler 包装自己
// 评估惰性对象并执行安全的并发写入。
func StreamHandler(wr io.Writer, fmtr Format) Handler {
	h := FuncHandler(func(r *Record) error {
		_, err := wr.Write(fmtr.Format(r))
		return err
	})
	return LazyHandler(SyncHandler(h))
}

// SyncHandler 可以包裹在处理程序周围以保证
// 一次只能进行一个日志操作。有必要
// 用于线程安全的并发写入。
func SyncHandler(h Handler) Handler {
	var mu sync.Mutex
	return FuncHandler(func(r *Record) error {
		mu.Lock()
		defer mu.Unlock()

		return h.Log(r)
	})
}

// FileHandler 以追加方式打开 path（不存在时按 0644 创建），
// 返回写入该文件的处理程序以及用于关闭文件的 io.Closer。
func FileHandler(path string, fmtr Format) (Handler, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return StreamHandler(f, fmtr), f, nil
}

// CallerFileHandler 返回一个添加行号和文件的Handler
// 使用键“caller”调用上下文的函数。
func CallerFileHandler(h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		r.Ctx = append(r.Ctx, "caller", fmt.Sprint(r.Call))
		return h.Log(r)
	})
}

// FilterHandler 只在 fn 返回 true 时把记录交给 h。
func FilterHandler(fn func(r *Record) bool, h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		if fn(r) {
			return h.Log(r)
		}
		return nil
	})
}

// LvlFilterHandler 返回一个只写的 Handler
// 小于给定详细程度的记录
// 级别到包装的处理程序。例如，只
// 记录错误/暴击记录：
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return FilterHandler(func(r *Record) bool {
		return r.Lvl <= maxLvl
	}, h)
}

// MultiHandler 将任何写入分派给它的每个处理程序。
// 这对于写入不同类型的日志信息很有用
//到不同的位置。例如，记录到一个文件和
// 标准错误：
func MultiHandler(hs ...Handler) Handler {
	return FuncHandler(func(r *Record) error {
		for _, h := range hs {
			h.Log(r)
		}
		return nil
	})
}

// LazyHandler 在评估后将所有值写入包装的处理程序
// 记录上下文中的任何惰性函数。已经包好了
// 围绕这个库中的 StreamHandler 和 SyslogHandler，你只需要
// 如果您编写自己的处理程序，则它。
func LazyHandler(h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		// 遍历值（奇数索引）并重新分配
		// 任何惰性 fn 的值与其执行结果
		hadErr := false
		for i := 1; i < len(r.Ctx); i += 2 {
			lz, ok := r.Ctx[i].(Lazy)
			if ok {
				v, err := evaluateLazy(lz)
				if err != nil {
					hadErr = true
					r.Ctx[i] = err
				} else {
					if cs, ok := v.(stack.CallStack); ok {
						v = cs.TrimBelow(r.Call).TrimRuntime()
					}
					r.Ctx[i] = v
				}
			}
		}

		if hadErr {
			r.Ctx = append(r.Ctx, errorKey, "bad lazy")
		}

		return h.Log(r)
	})
}

func evaluateLazy(lz Lazy) (interface{}, error) {
	t := reflect.TypeOf(lz.Fn)

	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("INVALID_LAZY, not func: %+v", lz.Fn)
	}

	if t.NumIn() > 0 {
		return nil, fmt.Errorf("INVALID_LAZY, func takes args: %+v", lz.Fn)
	}

	if t.NumOut() == 0 {
		return nil, fmt.Errorf("INVALID_LAZY, no func return val: %+v", lz.Fn)
	}

	value := reflect.ValueOf(lz.Fn)
	results := value.Call([]reflect.Value{})
	if len(results) == 1 {
		return results[0].Interface(), nil
	}
	values := make([]interface{}, len(results))
	for i, v := range results {
		values[i] = v.Interface()
	}
	return values, nil
}

// DiscardHandler 报告所有写入成功但不执行任何操作。
// 这对于在运行时通过动态禁用日志记录很有用
// 记录器的 SetHandler 方法。
func DiscardHandler() Handler {
	return FuncHandler(func(r *Record) error {
		return nil
	})
}
