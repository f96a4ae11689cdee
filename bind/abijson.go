package bind

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// abiArgument 和 abiEntry 是 solc abiDefinition 的 JSON 形式，
// abi.ABI 本身没有对应的序列化。
type abiArgument struct {
	Components []abiArgument `json:"components,omitempty"`
	Indexed    bool          `json:"indexed,omitempty"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
}

type abiEntry struct {
	Anonymous       bool          `json:"anonymous,omitempty"`
	Constant        bool          `json:"constant,omitempty"`
	Inputs          []abiArgument `json:"inputs"`
	Name            string        `json:"name,omitempty"`
	Outputs         []abiArgument `json:"outputs,omitempty"`
	Payable         bool          `json:"payable,omitempty"`
	StateMutability string        `json:"stateMutability,omitempty"`
	Type            string        `json:"type"`
}

// MarshalABI 把解析后的 ABI 还原为 abiDefinition 数组。顺序为构造函数、
// fallback、receive，然后是按名称排序的函数、事件和错误。
func MarshalABI(parsed abi.ABI) ([]byte, error) {
	entries := make([]abiEntry, 0, 3+len(parsed.Methods)+len(parsed.Events)+len(parsed.Errors))

	// 未声明的构造函数是零值，String() 为空
	if parsed.Constructor.String() != "" {
		entries = append(entries, methodEntry("constructor", parsed.Constructor))
	}
	if parsed.HasFallback() {
		entries = append(entries, methodEntry("fallback", parsed.Fallback))
	}
	if parsed.HasReceive() {
		entries = append(entries, methodEntry("receive", parsed.Receive))
	}
	for _, name := range sortedKeys(parsed.Methods) {
		m := parsed.Methods[name]
		e := methodEntry("function", m)
		e.Name = m.RawName
		e.Outputs = arguments(m.Outputs)
		entries = append(entries, e)
	}
	for _, name := range sortedKeys(parsed.Events) {
		ev := parsed.Events[name]
		entries = append(entries, abiEntry{
			Type:      "event",
			Name:      ev.RawName,
			Anonymous: ev.Anonymous,
			Inputs:    arguments(ev.Inputs),
		})
	}
	for _, name := range sortedKeys(parsed.Errors) {
		e := parsed.Errors[name]
		entries = append(entries, abiEntry{Type: "error", Name: e.Name, Inputs: arguments(e.Inputs)})
	}
	return json.Marshal(entries)
}

func methodEntry(typ string, m abi.Method) abiEntry {
	return abiEntry{
		Type:            typ,
		Inputs:          arguments(m.Inputs),
		StateMutability: m.StateMutability,
		Constant:        m.Constant,
		Payable:         m.Payable,
	}
}

func arguments(args abi.Arguments) []abiArgument {
	out := make([]abiArgument, len(args))
	for i, arg := range args {
		typ, components := typeName(arg.Type)
		out[i] = abiArgument{Name: arg.Name, Type: typ, Components: components, Indexed: arg.Indexed}
	}
	return out
}

// typeName 返回 JSON 中的类型名。元组写作 tuple（数组为 tuple[] / tuple[N]），
// 字段放在 components 里。
func typeName(t abi.Type) (string, []abiArgument) {
	switch t.T {
	case abi.TupleTy:
		components := make([]abiArgument, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			typ, sub := typeName(*elem)
			components[i] = abiArgument{Name: t.TupleRawNames[i], Type: typ, Components: sub}
		}
		return "tuple", components
	case abi.SliceTy:
		typ, components := typeName(*t.Elem)
		return typ + "[]", components
	case abi.ArrayTy:
		typ, components := typeName(*t.Elem)
		return typ + "[" + strconv.Itoa(t.Size) + "]", components
	default:
		return t.String(), nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
