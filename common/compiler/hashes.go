package compiler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

type abiArgument struct {
	Type       string        `json:"type"`
	Components []abiArgument `json:"components"`
}

type abiEntry struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	Inputs []abiArgument `json:"inputs"`
}

// Hashes 计算 ABI 中每个函数签名的 4 字节选择器，
// 结果与 solc --combined-json hashes 的格式相同：
// "transfer(address,uint256)" -> "a9059cbb"。
func Hashes(abiJSON []byte) (map[string]string, error) {
	var entries []abiEntry
	if err := json.Unmarshal(abiJSON, &entries); err != nil {
		return nil, fmt.Errorf("invalid abi: %w", err)
	}
	hashes := make(map[string]string)
	for _, entry := range entries {
		// 缺省 type 的条目按函数处理
		if entry.Type != "function" && entry.Type != "" {
			continue
		}
		sig := signature(entry.Name, entry.Inputs)
		hashes[sig] = hex.EncodeToString(keccak256([]byte(sig))[:4])
	}
	return hashes, nil
}

// signature 返回规范的方法签名，元组展开为括号形式。
func signature(name string, inputs []abiArgument) string {
	types := make([]string, len(inputs))
	for i, input := range inputs {
		types[i] = canonicalType(input)
	}
	return name + "(" + strings.Join(types, ",") + ")"
}

func canonicalType(arg abiArgument) string {
	if !strings.HasPrefix(arg.Type, "tuple") {
		return arg.Type
	}
	parts := make([]string, len(arg.Components))
	for i, c := range arg.Components {
		parts[i] = canonicalType(c)
	}
	return "(" + strings.Join(parts, ",") + ")" + strings.TrimPrefix(arg.Type, "tuple")
}

func keccak256(data []byte) []byte {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	return d.Sum(nil)
}

// FillHashes 为缺少 hashes 的合约补上选择器表。
func (t Table) FillHashes() error {
	for _, name := range t.Names() {
		c := t[name]
		if len(c.Hashes) > 0 {
			continue
		}
		blob, err := c.ABIJSON()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		hashes, err := Hashes(blob)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if len(hashes) > 0 {
			c.Hashes = hashes
		}
	}
	return nil
}
