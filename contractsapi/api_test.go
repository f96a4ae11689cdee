package contractsapi

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"flybind/bind"
	"flybind/common/compiler"
	"flybind/contracts/fixture"
)

const tokenABI = `[{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

func newClient(t *testing.T) *rpc.Client {
	table := fixture.MustTable()
	table["Token"] = &compiler.Contract{
		Code: "0x6000",
		Info: compiler.ContractInfo{AbiDefinition: tokenABI, Language: "Solidity"},
	}
	reg, err := bind.Register(table, bind.EthBinder{})
	require.NoError(t, err)

	srv, err := NewServer(reg)
	require.NoError(t, err)
	client := rpc.DialInProc(srv)
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})
	return client
}

func TestNames(t *testing.T) {
	client := newClient(t)
	var names []string
	require.NoError(t, client.Call(&names, "contracts_names"))
	require.Equal(t, []string{fixture.ExampleName, "Token"}, names)
}

func TestAbi(t *testing.T) {
	client := newClient(t)
	var abi json.RawMessage
	require.NoError(t, client.Call(&abi, "contracts_abi", fixture.ExampleName))
	require.JSONEq(t, `[{"inputs":[],"type":"constructor"}]`, string(abi))

	err := client.Call(&abi, "contracts_abi", "Missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown contract")
}

func TestCode(t *testing.T) {
	client := newClient(t)
	var code hexutil.Bytes
	require.NoError(t, client.Call(&code, "contracts_code", fixture.ExampleName))
	require.Equal(t, fixture.ExampleCode, code.String())
}

func TestHashes(t *testing.T) {
	client := newClient(t)
	var hashes map[string]string
	require.NoError(t, client.Call(&hashes, "contracts_hashes", "Token"))
	require.Equal(t, map[string]string{"transfer(address,uint256)": "a9059cbb"}, hashes)

	var none map[string]string
	require.NoError(t, client.Call(&none, "contracts_hashes", fixture.ExampleName))
	require.Empty(t, none)
}

// 自定义 binder 产生的句柄可以没有描述，ABI 仍按 abiDefinition 形式返回。
func TestAbiWithoutDescriptor(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	require.NoError(t, err)
	reg := bind.Registry{"Token": &bind.Handle{Name: "Token", ABI: parsed}}

	srv, err := NewServer(reg)
	require.NoError(t, err)
	defer srv.Stop()
	client := rpc.DialInProc(srv)
	defer client.Close()

	var blob json.RawMessage
	require.NoError(t, client.Call(&blob, "contracts_abi", "Token"))
	require.JSONEq(t, `[{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`, string(blob))

	again, err := abi.JSON(strings.NewReader(string(blob)))
	require.NoError(t, err)
	require.Equal(t, parsed.Methods["transfer"].ID, again.Methods["transfer"].ID)

	var hashes map[string]string
	require.NoError(t, client.Call(&hashes, "contracts_hashes", "Token"))
	require.Equal(t, map[string]string{"transfer(address,uint256)": "a9059cbb"}, hashes)
}

func TestCodeUnlinked(t *testing.T) {
	table := fixture.MustTable()
	table["User"] = &compiler.Contract{
		Code: "0x6000__Lib" + strings.Repeat("_", 35),
		Info: compiler.ContractInfo{AbiDefinition: tokenABI},
	}
	reg, err := bind.Register(table, bind.EthBinder{})
	require.NoError(t, err)

	api := NewAPI(reg)
	_, err = api.Code("User")
	require.ErrorIs(t, err, compiler.ErrUnlinked)
	require.Contains(t, err.Error(), "Lib")

	// 其余方法不受影响
	hashes, err := api.Hashes("User")
	require.NoError(t, err)
	require.Equal(t, "a9059cbb", hashes["transfer(address,uint256)"])
}
