// Package fixture 内嵌测试用的合约描述表（单个 Example 合约）。
package fixture

import (
	_ "embed"

	"flybind/common/compiler"
)

const (
	// ExampleName 是描述表中唯一合约的名称。
	ExampleName = "Example"

	// ExampleCode 是 Example 合约的部署字节码。
	ExampleCode = "0x60606040525b5b600a8060136000396000f30060606040526008565b00"

	// ExampleSource 是产生 ExampleCode 的源码。
	ExampleSource = "contract Example {\n        function Example() {\n        }\n}\n"
)

//go:embed contracts.json
var contractsJSON []byte

// JSON 返回描述表的原始文本。
func JSON() []byte {
	out := make([]byte, len(contractsJSON))
	copy(out, contractsJSON)
	return out
}

// Table 每次调用都重新解析，调用方拿到的表互不共享。
func Table() (compiler.Table, error) {
	return compiler.ParseTable(contractsJSON)
}

func MustTable() compiler.Table {
	table, err := Table()
	if err != nil {
		panic(err)
	}
	return table
}
