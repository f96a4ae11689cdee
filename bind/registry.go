package bind

import (
	"fmt"
	"sort"

	"flybind/common/compiler"
)

// Registry 是合约名称到句柄的映射，由 Register 创建并归调用方所有。
// 不支持并发 Add。
type Registry map[string]*Handle

// Get 按名称查找句柄。
func (r Registry) Get(name string) (*Handle, error) {
	h, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", compiler.ErrUnknownContract, name)
	}
	return h, nil
}

func (r Registry) MustGet(name string) *Handle {
	h, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return h
}

// Names 返回排好序的名称。
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Registry) Len() int { return len(r) }

// Add 以 h.Name 为键存入句柄，已有同名条目时覆盖并返回 true。
func (r Registry) Add(h *Handle) bool {
	_, replaced := r[h.Name]
	r[h.Name] = h
	return replaced
}
