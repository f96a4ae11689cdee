package bind

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethbind "github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"flybind/common/compiler"
)

var ErrNoCode = errors.New("contract has no deployable code")

// Handle 是合约工厂：持有解析后的 ABI 和部署字节码，
// 可以部署新实例或者绑定到已有地址。
type Handle struct {
	Name       string
	ABI        abi.ABI
	Code       []byte
	Descriptor *compiler.Contract

	// Unlinked 列出部署字节码中尚未链接的库，非空时 Code 为 nil。
	Unlinked []string
}

// Link 返回链接了库地址的句柄副本。没有未链接引用时返回 h 本身。
func (h *Handle) Link(libs map[string]common.Address) (*Handle, error) {
	if len(h.Unlinked) == 0 {
		return h, nil
	}
	if h.Descriptor == nil {
		return nil, ErrNoCode
	}
	desc, err := h.Descriptor.Link(libs)
	if err != nil {
		return nil, err
	}
	code, err := desc.Bytecode()
	if err != nil {
		return nil, err
	}
	linked := *h
	linked.Code, linked.Descriptor, linked.Unlinked = code, desc, nil
	return &linked, nil
}

func (h *Handle) checkCode() error {
	if len(h.Unlinked) > 0 {
		return fmt.Errorf("%w: %s", compiler.ErrUnlinked, strings.Join(h.Unlinked, ", "))
	}
	if len(h.Code) == 0 {
		return ErrNoCode
	}
	return nil
}

// Pack 编码一次方法调用的输入数据。
func (h *Handle) Pack(method string, args ...interface{}) ([]byte, error) {
	return h.ABI.Pack(method, args...)
}

// ABIJSON 返回 abiDefinition 形式的 ABI。有描述时原样返回描述中的定义，
// 否则由解析后的 ABI 重建。
func (h *Handle) ABIJSON() ([]byte, error) {
	if h.Descriptor != nil {
		return h.Descriptor.ABIJSON()
	}
	return MarshalABI(h.ABI)
}

// Constructor 返回构造函数描述，合约未声明时返回零值。
func (h *Handle) Constructor() abi.Method {
	return h.ABI.Constructor
}

// DeployData 返回部署交易的数据：字节码后接编码后的构造参数。
func (h *Handle) DeployData(params ...interface{}) ([]byte, error) {
	if err := h.checkCode(); err != nil {
		return nil, err
	}
	input, err := h.ABI.Pack("", params...)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(h.Code)+len(input))
	data = append(data, h.Code...)
	return append(data, input...), nil
}

// Deploy 通过 backend 发送部署交易。
func (h *Handle) Deploy(opts *ethbind.TransactOpts, backend ethbind.ContractBackend, params ...interface{}) (common.Address, *types.Transaction, *ethbind.BoundContract, error) {
	if err := h.checkCode(); err != nil {
		return common.Address{}, nil, nil, err
	}
	return ethbind.DeployContract(opts, h.ABI, h.Code, backend, params...)
}

// At 把合约绑定到链上已部署的地址。
func (h *Handle) At(address common.Address, backend ethbind.ContractBackend) *ethbind.BoundContract {
	return ethbind.NewBoundContract(address, h.ABI, backend, backend, backend)
}
