package registrar

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	ethbind "github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"flybind/bind"
	"flybind/log"
)

var ErrBytecodeMismatch = errors.New("bytecode mismatch")

// Provider 结合句柄注册表和地址登记表，在链上部署或查找合约实例。
type Provider struct {
	Registry bind.Registry
	Book     *AddressBook
	Backend  ethbind.ContractBackend

	log log.Logger
}

func NewProvider(reg bind.Registry, book *AddressBook, backend ethbind.ContractBackend) *Provider {
	return &Provider{Registry: reg, Book: book, Backend: backend, log: log.New("module", "registrar")}
}

// Deploy 部署 name 的新实例并登记地址。交易打包前地址上还没有代码。
// 字节码引用的库必须已经登记，否则返回 compiler.ErrUnlinked。
func (p *Provider) Deploy(opts *ethbind.TransactOpts, name string, params ...interface{}) (common.Address, *types.Transaction, error) {
	h, err := p.Registry.Get(name)
	if err != nil {
		return common.Address{}, nil, err
	}
	// 依赖的库取登记表中最近的地址
	if h, err = h.Link(p.Book.Latest()); err != nil {
		return common.Address{}, nil, fmt.Errorf("deploy %s: %w", name, err)
	}
	addr, tx, _, err := h.Deploy(opts, p.Backend, params...)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("deploy %s: %w", name, err)
	}
	p.Book.SetAddress(name, addr)
	p.log.Debug("Deployed contract", "name", name, "address", addr, "tx", tx.Hash())
	return addr, tx, nil
}

// Contract 返回最近登记且链上代码与描述一致的实例。
func (p *Provider) Contract(ctx context.Context, name string) (common.Address, *ethbind.BoundContract, error) {
	h, err := p.Registry.Get(name)
	if err != nil {
		return common.Address{}, nil, err
	}
	addrs, err := p.Book.Addresses(name)
	if err != nil {
		return common.Address{}, nil, err
	}
	// 描述中没有运行时代码时只要求地址上有代码
	var want []byte
	if h.Descriptor != nil && h.Descriptor.RuntimeCode != "" {
		if want, err = hexutil.Decode(h.Descriptor.RuntimeCode); err != nil {
			return common.Address{}, nil, fmt.Errorf("%s: invalid runtime code: %w", name, err)
		}
		if len(want) == 0 {
			want = nil
		}
	}
	for i := len(addrs) - 1; i >= 0; i-- {
		code, err := p.Backend.CodeAt(ctx, addrs[i], nil)
		if err != nil {
			return common.Address{}, nil, err
		}
		if len(code) == 0 || (want != nil && !bytes.Equal(code, want)) {
			p.log.Trace("Skipping stale address", "name", name, "address", addrs[i], "size", len(code))
			continue
		}
		return addrs[i], h.At(addrs[i], p.Backend), nil
	}
	return common.Address{}, nil, fmt.Errorf("%w: %s", ErrBytecodeMismatch, name)
}
