// 包 web 生成前端使用的 contracts.js 并通过 HTTP 提供合约描述。
package web

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"flybind/common/compiler"
	"flybind/log"
)

const jsIndent = "    "

const contractsJSHeader = `
var contracts = contracts || {};

function makeContracts() {
    var contractData = `

const contractsJSFooter = `;
    var contractNames = Object.keys(contractData);
    for (var i=0; i < contractNames.length; i++) {
        contractName = contractNames[i];
        contracts[contractName] = web3.eth.contract(contractData[contractName].info.abiDefinition);
    }
};
makeContracts();
`

// RenderContractsJS 生成为每个合约调用 web3.eth.contract 的脚本。
func RenderContractsJS(table compiler.Table) ([]byte, error) {
	data, err := table.MarshalIndent("", jsIndent)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(contractsJSHeader)
	buf.Write(data)
	buf.WriteString(contractsJSFooter)
	return buf.Bytes(), nil
}

// RenderContractABIs 生成 var contract_abis = {...}; 形式的脚本。
func RenderContractABIs(table compiler.Table) ([]byte, error) {
	data, err := table.MarshalIndent("", jsIndent)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("var contract_abis = %s;", data)), nil
}

// CollectAssets 把 js/contracts.js 和 contracts.json 写到 <buildDir>/assets 下，
// 返回写入的文件路径。
func CollectAssets(table compiler.Table, buildDir string) ([]string, error) {
	js, err := RenderContractsJS(table)
	if err != nil {
		return nil, err
	}
	data, err := table.MarshalIndent("", jsIndent)
	if err != nil {
		return nil, err
	}
	assets := filepath.Join(buildDir, "assets")
	files := []struct {
		path string
		data []byte
	}{
		{filepath.Join(assets, "js", "contracts.js"), js},
		{filepath.Join(assets, "contracts.json"), append(data, '\n')},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return written, err
		}
		if err := os.WriteFile(f.path, f.data, 0644); err != nil {
			return written, err
		}
		log.Debug("Wrote asset", "path", f.path, "size", len(f.data))
		written = append(written, f.path)
	}
	return written, nil
}
