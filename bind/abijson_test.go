package bind

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"
)

const storeABI = `[
	{"type":"constructor","inputs":[{"name":"owner","type":"address"}],"stateMutability":"nonpayable"},
	{"type":"fallback","stateMutability":"nonpayable"},
	{"type":"receive","stateMutability":"payable"},
	{"type":"function","name":"set","inputs":[{"name":"key","type":"bytes32"},{"name":"value","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"get","inputs":[{"name":"key","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"batch","inputs":[{"name":"items","type":"tuple[]","components":[{"name":"key","type":"bytes32"},{"name":"values","type":"uint256[2]"}]}],"stateMutability":"nonpayable"},
	{"type":"event","name":"Stored","anonymous":false,"inputs":[{"name":"key","type":"bytes32","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"error","name":"Unauthorized","inputs":[{"name":"caller","type":"address"}]}
]`

func TestMarshalABIRoundTrip(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(storeABI))
	require.NoError(t, err)

	blob, err := MarshalABI(parsed)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(blob), "["))

	again, err := abi.JSON(strings.NewReader(string(blob)))
	require.NoError(t, err)
	require.Equal(t, parsed, again)
	require.Equal(t, parsed.Methods["batch"].ID, again.Methods["batch"].ID)
	require.Equal(t, parsed.Events["Stored"].ID, again.Events["Stored"].ID)
}

func TestMarshalABIConstructorOnly(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(exampleABI))
	require.NoError(t, err)
	blob, err := MarshalABI(parsed)
	require.NoError(t, err)
	require.JSONEq(t, exampleABI, string(blob))
}

func TestMarshalABIEmpty(t *testing.T) {
	blob, err := MarshalABI(abi.ABI{})
	require.NoError(t, err)
	require.Equal(t, "[]", string(blob))
}

func TestHandleABIJSONWithoutDescriptor(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(storeABI))
	require.NoError(t, err)
	blob, err := (&Handle{Name: "Store", ABI: parsed}).ABIJSON()
	require.NoError(t, err)
	require.NotContains(t, string(blob), "TupleType")
	require.Contains(t, string(blob), `"type":"tuple[]"`)
}
