// 包 compiler 描述已编译合约（字节码和编译器元数据），并封装 Solidity 编译器可执行文件 (solc)。
package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrUnknownContract = errors.New("unknown contract")
	ErrEmptyName       = errors.New("empty contract name")
	ErrNoABI           = errors.New("contract has no abi definition")
)

// Contract 包含有关已编译合约的信息，以及它的代码和运行时代码。
//
// 字段按 JSON 键的字母顺序排列，夹具中没有的字段为空时省略，
// 这样重新序列化的结果与原始描述表逐字节一致。
type Contract struct {
	Code        string            `json:"code"`
	Hashes      map[string]string `json:"hashes,omitempty"`
	Info        ContractInfo      `json:"info"`
	RuntimeCode string            `json:"runtime-code,omitempty"`
}

// ContractInfo 包含有关已编译合约的信息，包括访问
// 到 ABI 定义、源映射、用户和开发人员文档以及元数据。
//
// 取决于源、语言版本、编译器版本和编译器
// options 将提供有关合约如何编译的信息。
type ContractInfo struct {
	AbiDefinition   interface{} `json:"abiDefinition"`
	CompilerOptions string      `json:"compilerOptions,omitempty"`
	CompilerVersion string      `json:"compilerVersion"`
	DeveloperDoc    interface{} `json:"developerDoc"`
	Language        string      `json:"language"`
	LanguageVersion string      `json:"languageVersion"`
	Metadata        string      `json:"metadata,omitempty"`
	Source          string      `json:"source"`
	SrcMap          string      `json:"srcMap,omitempty"`
	SrcMapRuntime   string      `json:"srcMapRuntime,omitempty"`
	UserDoc         interface{} `json:"userDoc"`
}

// Bytecode 解码 0x 前缀的部署字节码。
// 含有未链接库占位符时返回 ErrUnlinked，需要先调用 Link。
func (c *Contract) Bytecode() ([]byte, error) {
	if refs := c.LinkReferences(); len(refs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnlinked, strings.Join(refs, ", "))
	}
	code, err := hexutil.Decode(c.Code)
	if err != nil {
		return nil, fmt.Errorf("invalid code: %w", err)
	}
	return code, nil
}

// ABIJSON 返回 ABI 定义的 JSON 编码，可以直接交给 abi.JSON。
func (c *Contract) ABIJSON() ([]byte, error) {
	if c.Info.AbiDefinition == nil {
		return nil, ErrNoABI
	}
	// 由 solc 旧版本产生的 ABI 可能是一个 JSON 字符串
	if s, ok := c.Info.AbiDefinition.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(c.Info.AbiDefinition)
}

// ABI 解析合约的 ABI 定义。
func (c *Contract) ABI() (abi.ABI, error) {
	blob, err := c.ABIJSON()
	if err != nil {
		return abi.ABI{}, err
	}
	return abi.JSON(bytes.NewReader(blob))
}

// Table 是合约名称到合约描述的映射，名称天然唯一。
// 构建之后只读。
type Table map[string]*Contract

// ParseTable 解析 {name: {code, info}} 形式的描述表。
func ParseTable(data []byte) (Table, error) {
	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("invalid contract table: %w", err)
	}
	for name, c := range table {
		if c == nil {
			return nil, fmt.Errorf("invalid contract table: %q is null", name)
		}
	}
	return table, nil
}

// LoadTable 从文件读取描述表。
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// Names 返回排好序的合约名称。
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get 按名称查找合约。
func (t Table) Get(name string) (*Contract, error) {
	c, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	return c, nil
}

// MarshalIndent 返回描述表的文本形式。与 json.MarshalIndent 不同，
// 它不转义 HTML 字符，源码文本原样保留。
func (t Table) MarshalIndent(prefix, indent string) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Validate 检查每个条目的名称、字节码和 ABI，返回所有问题而不是第一个。
// 未链接的库引用不算错误。
func (t Table) Validate() error {
	var result *multierror.Error
	for _, name := range t.Names() {
		c := t[name]
		if strings.TrimSpace(name) == "" {
			result = multierror.Append(result, ErrEmptyName)
			continue
		}
		// 未链接的占位符按零地址检查其余部分
		code := replacePlaceholders(c.Code, func(string) (string, bool) {
			return strings.Repeat("0", placeholderLen), true
		})
		if _, err := hexutil.Decode(code); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: invalid code: %w", name, err))
		}
		if _, err := c.ABI(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: invalid abi: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}
