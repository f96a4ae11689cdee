// 包 contractsapi 通过 JSON-RPC 的 contracts 命名空间公开合约注册表。
package contractsapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"flybind/bind"
	"flybind/common/compiler"
)

const Namespace = "contracts"

// API 提供 contracts_names、contracts_abi、contracts_code 和 contracts_hashes。
type API struct {
	reg bind.Registry
}

func NewAPI(reg bind.Registry) *API {
	return &API{reg: reg}
}

// Names 返回已注册的合约名称。
func (api *API) Names() []string {
	return api.reg.Names()
}

// Abi 返回合约的 ABI 定义。
func (api *API) Abi(name string) (json.RawMessage, error) {
	h, err := api.reg.Get(name)
	if err != nil {
		return nil, err
	}
	blob, err := h.ABIJSON()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(blob), nil
}

// Code 返回部署字节码，引用了未链接库的合约返回错误。
func (api *API) Code(name string) (hexutil.Bytes, error) {
	h, err := api.reg.Get(name)
	if err != nil {
		return nil, err
	}
	if len(h.Unlinked) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", name, compiler.ErrUnlinked, strings.Join(h.Unlinked, ", "))
	}
	return h.Code, nil
}

// Hashes 返回方法签名到选择器的映射，描述中没有时现算。
func (api *API) Hashes(name string) (map[string]string, error) {
	h, err := api.reg.Get(name)
	if err != nil {
		return nil, err
	}
	if h.Descriptor != nil && len(h.Descriptor.Hashes) > 0 {
		return h.Descriptor.Hashes, nil
	}
	blob, err := h.ABIJSON()
	if err != nil {
		return nil, err
	}
	return compiler.Hashes(blob)
}

// NewServer 创建只注册了 contracts 服务的 RPC 服务器。
func NewServer(reg bind.Registry) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(Namespace, NewAPI(reg)); err != nil {
		srv.Stop()
		return nil, err
	}
	return srv, nil
}
