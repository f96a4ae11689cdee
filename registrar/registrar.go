// 包 registrar 记录已部署合约实例的地址。
package registrar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

var ErrNoKnownAddress = errors.New("no known address")

// AddressEvent 在新地址登记时发出。
type AddressEvent struct {
	Name    string
	Address common.Address
}

// AddressBook 是内存中的地址登记表，每个名称对应一组地址，
// 按登记顺序保存。可以并发使用。
type AddressBook struct {
	mu    sync.RWMutex
	addrs map[string][]common.Address

	feed  event.Feed
	scope event.SubscriptionScope
}

func NewAddressBook() *AddressBook {
	return &AddressBook{addrs: make(map[string][]common.Address)}
}

// SetAddress 登记 name 的一个地址，重复登记不产生事件，返回是否为新地址。
func (b *AddressBook) SetAddress(name string, addr common.Address) bool {
	b.mu.Lock()
	for _, known := range b.addrs[name] {
		if known == addr {
			b.mu.Unlock()
			return false
		}
	}
	b.addrs[name] = append(b.addrs[name], addr)
	b.mu.Unlock()

	b.feed.Send(AddressEvent{Name: name, Address: addr})
	return true
}

// Addresses 返回 name 的所有已知地址。
func (b *AddressBook) Addresses(name string) ([]common.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	known, ok := b.addrs[name]
	if !ok {
		return nil, fmt.Errorf("%w for '%s'", ErrNoKnownAddress, name)
	}
	out := make([]common.Address, len(known))
	copy(out, known)
	return out, nil
}

// Latest 返回每个名称最近登记的地址，用于链接库。
func (b *AddressBook) Latest() map[string]common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]common.Address, len(b.addrs))
	for name, known := range b.addrs {
		out[name] = known[len(known)-1]
	}
	return out
}

// Len 返回有地址的名称数量。
func (b *AddressBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.addrs)
}

// SubscribeAddresses 订阅地址登记事件。Send 会阻塞直到所有订阅者收到事件，
// 所以通道需要有缓冲或者有人持续读取。
func (b *AddressBook) SubscribeAddresses(ch chan<- AddressEvent) event.Subscription {
	return b.scope.Track(b.feed.Subscribe(ch))
}

// Close 取消所有订阅。
func (b *AddressBook) Close() {
	b.scope.Close()
}
