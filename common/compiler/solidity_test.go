package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const combinedJSONPre08 = `{
  "contracts": {
    "test.sol:test": {
      "abi": "[{\"constant\":false,\"inputs\":[{\"name\":\"a\",\"type\":\"uint256\"}],\"name\":\"multiply\",\"outputs\":[{\"name\":\"d\",\"type\":\"uint256\"}],\"payable\":false,\"type\":\"function\"}]",
      "bin": "6060",
      "bin-runtime": "6061",
      "devdoc": "{\"methods\":{}}",
      "userdoc": "{\"methods\":{}}",
      "hashes": {"multiply(uint256)": "c6888fa1"},
      "srcmap": "",
      "srcmap-runtime": ""
    }
  },
  "version": "0.4.9+commit.364da425"
}`

const combinedJSONV8 = `{
  "contracts": {
    "a.sol:Token": {
      "abi": [{"inputs":[],"stateMutability":"nonpayable","type":"constructor"}],
      "bin": "6080",
      "bin-runtime": "6081",
      "devdoc": {"kind":"dev","methods":{},"version":1},
      "userdoc": {"kind":"user","methods":{},"version":1}
    },
    "b.sol:Token": {
      "abi": [],
      "bin": "",
      "bin-runtime": ""
    }
  },
  "version": "0.8.19+commit.7dd6d404"
}`

func TestParseCombinedJSON(t *testing.T) {
	contracts, err := ParseCombinedJSON([]byte(combinedJSONPre08), "source", "0.4.9", "0.4.9", "--optimize")
	require.NoError(t, err)
	require.Len(t, contracts, 1)

	c := contracts["test"]
	require.NotNil(t, c, "short name expected")
	require.Equal(t, "0x6060", c.Code)
	require.Equal(t, "0x6061", c.RuntimeCode)
	require.Equal(t, "Solidity", c.Info.Language)
	require.Equal(t, "source", c.Info.Source)
	require.Equal(t, "--optimize", c.Info.CompilerOptions)
	require.Equal(t, "c6888fa1", c.Hashes["multiply(uint256)"])

	_, err = c.ABI()
	require.NoError(t, err)
}

func TestParseCombinedJSONV8(t *testing.T) {
	contracts, err := ParseCombinedJSON([]byte(combinedJSONV8), "", "0.8.19", "0.8.19", "")
	require.NoError(t, err)
	// 两个短名都是 Token，保留完整键
	require.Equal(t, []string{"a.sol:Token", "b.sol:Token"}, contracts.Names())

	c := contracts["a.sol:Token"]
	require.Equal(t, "0x6080", c.Code)
	parsed, err := c.ABI()
	require.NoError(t, err)
	require.Empty(t, parsed.Constructor.Inputs)
}

func TestParseCombinedJSONInvalid(t *testing.T) {
	_, err := ParseCombinedJSON([]byte(`{"contracts": 1}`), "", "", "", "")
	require.Error(t, err)
}

func TestMakeArgs(t *testing.T) {
	old := &Solidity{Major: 0, Minor: 4, Patch: 6}
	require.Equal(t, "bin,bin-runtime,srcmap,srcmap-runtime,abi,userdoc,devdoc", old.makeArgs()[1])

	recent := &Solidity{Major: 0, Minor: 8, Patch: 19}
	require.Contains(t, recent.makeArgs()[1], ",metadata,hashes")
}

const combinedJSONLinked = `{
  "contracts": {
    "a.sol:Lib": {
      "abi": [],
      "bin": "6060",
      "bin-runtime": "6061",
      "srcmap": ""
    },
    "a.sol:User": {
      "abi": [{"inputs":[],"stateMutability":"nonpayable","type":"constructor"}],
      "bin": "6060__a.sol:Lib_____________________________6000",
      "bin-runtime": "",
      "srcmap": ""
    }
  },
  "version": "0.4.26+commit.4563c3fc"
}`

func TestParseCombinedJSONLibraries(t *testing.T) {
	table, err := ParseCombinedJSONV8([]byte(combinedJSONLinked), "", "0.4.26", "0.4.26", "")
	require.NoError(t, err)
	require.Equal(t, []string{"Lib", "User"}, table.Names())
	require.NoError(t, table.Validate())

	user := table["User"]
	require.Equal(t, []string{"a.sol:Lib"}, user.LinkReferences())
	require.Empty(t, user.RuntimeCode)
	_, err = user.Bytecode()
	require.ErrorIs(t, err, ErrUnlinked)

	// 空的 srcmap 和运行时代码不写出
	out, err := table.MarshalIndent("", "  ")
	require.NoError(t, err)
	require.NotContains(t, string(out), `"srcMap"`)
	require.NotContains(t, string(out), `"runtime-code": "0x"`)
}
