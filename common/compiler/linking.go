package compiler

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnlinked = errors.New("unlinked library references")

// 链接占位符固定 40 个十六进制字符宽，正好放下一个地址。两种形式：
//
//	__a.sol:Lib_____________________________   solc < 0.5，名称截断到 36 个字符
//	__$<keccak256(完整名称) 前 34 位>$__       solc >= 0.5
const placeholderLen = 2 * common.AddressLength

// LinkReferences 返回字节码中尚未链接的占位符内容（去掉两侧下划线），按出现顺序去重。
func LinkReferences(code string) []string {
	var refs []string
	replacePlaceholders(code, func(ref string) (string, bool) {
		refs = append(refs, ref)
		return "", false
	})
	return dedup(refs)
}

// LibraryHash 返回 solc >= 0.5 占位符中的库标识 $...$。
func LibraryHash(name string) string {
	return "$" + hex.EncodeToString(keccak256([]byte(name)))[:34] + "$"
}

// refMatches 判断占位符 ref 是否指向库 name。name 可以是完整名称
// "a.sol:Lib"，也可以是短名 "Lib"。
func refMatches(ref, name string) bool {
	if strings.HasPrefix(ref, "$") {
		return ref == LibraryHash(name)
	}
	truncated := name
	if len(truncated) > placeholderLen-4 {
		truncated = truncated[:placeholderLen-4]
	}
	return ref == truncated || shortName(ref) == name
}

// Link 用 libs 中的地址替换字节码里的库占位符。仍有未解析的占位符时返回 ErrUnlinked。
func Link(code string, libs map[string]common.Address) (string, error) {
	names := make([]string, 0, len(libs))
	for name := range libs {
		names = append(names, name)
	}
	sort.Strings(names)

	var missing []string
	linked := replacePlaceholders(code, func(ref string) (string, bool) {
		for _, name := range names {
			if refMatches(ref, name) {
				return hex.EncodeToString(libs[name].Bytes()), true
			}
		}
		missing = append(missing, ref)
		return "", false
	})
	if len(missing) > 0 {
		return linked, fmt.Errorf("%w: %s", ErrUnlinked, strings.Join(dedup(missing), ", "))
	}
	return linked, nil
}

// replacePlaceholders 依次把每个占位符交给 resolve，resolve 返回 true 时用结果替换。
func replacePlaceholders(code string, resolve func(ref string) (string, bool)) string {
	prefix := ""
	if strings.HasPrefix(code, "0x") {
		prefix = "0x"
	}
	body := []byte(strings.TrimPrefix(code, "0x"))
	for i := 0; i+placeholderLen <= len(body); {
		j := strings.Index(string(body[i:]), "__")
		if j < 0 || i+j+placeholderLen > len(body) {
			break
		}
		start := i + j
		ref := strings.Trim(string(body[start:start+placeholderLen]), "_")
		if addr, ok := resolve(ref); ok {
			copy(body[start:], addr)
		}
		i = start + placeholderLen
	}
	return prefix + string(body)
}

func dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}

// LinkReferences 返回部署字节码中未链接的库。
func (c *Contract) LinkReferences() []string {
	return LinkReferences(c.Code)
}

// Link 返回一份链接后的副本，原描述不变。
func (c *Contract) Link(libs map[string]common.Address) (*Contract, error) {
	code, err := Link(c.Code, libs)
	if err != nil {
		return nil, err
	}
	linked := *c
	linked.Code = code
	if c.RuntimeCode != "" {
		if linked.RuntimeCode, err = Link(c.RuntimeCode, libs); err != nil {
			return nil, err
		}
	}
	return &linked, nil
}
