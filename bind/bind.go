// 包 bind 把合约描述表中的每个条目绑定成可调用的合约句柄。
package bind

import (
	"errors"
	"fmt"
	"time"

	"flybind/common"
	"flybind/common/compiler"
	"flybind/log"
)

var ErrNoBinder = errors.New("no abi binder")

// ABIBinder 根据合约描述构造句柄。
type ABIBinder interface {
	Bind(name string, c *compiler.Contract) (*Handle, error)
}

// BinderFunc 让普通函数充当 ABIBinder。
type BinderFunc func(name string, c *compiler.Contract) (*Handle, error)

func (f BinderFunc) Bind(name string, c *compiler.Contract) (*Handle, error) {
	return f(name, c)
}

// EthBinder 用 go-ethereum 的 abi 包解析 ABI 定义。
type EthBinder struct{}

func (EthBinder) Bind(name string, c *compiler.Contract) (*Handle, error) {
	parsed, err := c.ABI()
	if err != nil {
		return nil, err
	}
	h := &Handle{Name: name, ABI: parsed, Descriptor: c}
	// 未链接的合约先不解码，部署前由 Link 补上
	if h.Unlinked = c.LinkReferences(); len(h.Unlinked) > 0 {
		return h, nil
	}
	if h.Code, err = c.Bytecode(); err != nil {
		return nil, err
	}
	return h, nil
}

// BindError 标明绑定失败的合约。
type BindError struct {
	Name string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Name, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Register 按名称顺序为描述表中的每个合约构造句柄。
// 任何一个条目失败都会中止注册，不返回部分结果。
func Register(table compiler.Table, binder ABIBinder) (Registry, error) {
	if binder == nil {
		return nil, ErrNoBinder
	}
	start := time.Now()
	reg := make(Registry, len(table))
	for _, name := range table.Names() {
		h, err := binder.Bind(name, table[name])
		if err != nil {
			log.Debug("Contract binding failed", "name", name, "err", err)
			return nil, &BindError{Name: name, Err: err}
		}
		if h == nil {
			return nil, &BindError{Name: name, Err: errors.New("binder returned no handle")}
		}
		reg[name] = h
		log.Trace("Bound contract", "name", name, "methods", len(h.ABI.Methods), "events", len(h.ABI.Events))
	}
	log.Debug("Registered contracts", "count", len(reg), "elapsed", common.PrettyDuration(time.Since(start)))
	return reg, nil
}
