package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Solidity 包含有关 solidity 编译器的信息。
type Solidity struct {
	Path, Version, FullVersion string
	Major, Minor, Patch        int
}

// --组合输出格式
type solcOutput struct {
	Contracts map[string]struct {
		BinRuntime                                  string `json:"bin-runtime"`
		SrcMapRuntime                               string `json:"srcmap-runtime"`
		Bin, SrcMap, Abi, Devdoc, Userdoc, Metadata string
		Hashes                                      map[string]string
	}
	Version string
}

// solidity v.0.8 改变了 ABI、Devdoc 和 Userdoc 的序列化方式
type solcOutputV8 struct {
	Contracts map[string]struct {
		BinRuntime            string `json:"bin-runtime"`
		SrcMapRuntime         string `json:"srcmap-runtime"`
		Bin, SrcMap, Metadata string
		Abi                   interface{}
		Devdoc                interface{}
		Userdoc               interface{}
		Hashes                map[string]string
	}
	Version string
}

var versionRegexp = regexp.MustCompile(`([0-9]+)\.([0-9]+)\.([0-9]+)`)

func (s *Solidity) makeArgs() []string {
	p := []string{
		"--combined-json", "bin,bin-runtime,srcmap,srcmap-runtime,abi,userdoc,devdoc",
		"--optimize",
		"--allow-paths", "., ./, ../",
	}
	if s.Major > 0 || s.Minor > 4 || s.Patch > 6 {
		p[1] += ",metadata,hashes"
	}
	return p
}

// SolidityVersion 运行 solc --version 并解析输出。
func SolidityVersion(ctx context.Context, solc string) (*Solidity, error) {
	if solc == "" {
		solc = "solc"
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, solc, "--version")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	matches := versionRegexp.FindStringSubmatch(out.String())
	if len(matches) != 4 {
		return nil, fmt.Errorf("can't parse solc version %q", out.String())
	}
	s := &Solidity{Path: cmd.Path, FullVersion: out.String(), Version: matches[0]}
	if s.Major, _ = strconv.Atoi(matches[1]); s.Major != 0 {
		// solc 1.x 以后的输出格式未知
		return nil, fmt.Errorf("unsupported solc major version %d", s.Major)
	}
	s.Minor, _ = strconv.Atoi(matches[2])
	s.Patch, _ = strconv.Atoi(matches[3])
	return s, nil
}

// CompileSolidity 用 solc 编译所有给定的源文件。
func CompileSolidity(ctx context.Context, solc string, sourcefiles ...string) (Table, error) {
	if len(sourcefiles) == 0 {
		return nil, errors.New("solc: no source files")
	}
	source, err := slurpFiles(sourcefiles)
	if err != nil {
		return nil, err
	}
	s, err := SolidityVersion(ctx, solc)
	if err != nil {
		return nil, err
	}
	args := append(s.makeArgs(), "--")
	cmd := exec.CommandContext(ctx, s.Path, append(args, sourcefiles...)...)
	return s.run(cmd, source)
}

func (s *Solidity) run(cmd *exec.Cmd, source string) (Table, error) {
	var stderr, stdout bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("solc: %v\n%s", err, stderr.Bytes())
	}
	return ParseCombinedJSON(stdout.Bytes(), source, s.Version, s.Version, strings.Join(s.makeArgs(), " "))
}

func slurpFiles(files []string) (string, error) {
	var concat strings.Builder
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		concat.Write(content)
	}
	return concat.String(), nil
}

// ParseCombinedJSON 采用 solc --combined-output 运行的直接输出，
// 将其解析为合约名称到合约结构的映射。提供的源码、语言版本、
// 编译器版本和编译器选项都原样放进合约结构中。
//
// solc 输出应包含 ABI、源映射、用户文档和开发文档。
//
// 如果 JSON 格式错误或缺少数据，或者嵌入在 JSON 中的 JSON
// 格式不正确，则返回错误。
func ParseCombinedJSON(combinedJSON []byte, source string, languageVersion string, compilerVersion string, compilerOptions string) (Table, error) {
	var output solcOutput
	if err := json.Unmarshal(combinedJSON, &output); err != nil {
		// 尝试使用新的 solidity v.0.8.0 规则解析输出
		return ParseCombinedJSONV8(combinedJSON, source, languageVersion, compilerVersion, compilerOptions)
	}
	// 编译成功，组装并返回合约。
	keys := make([]string, 0, len(output.Contracts))
	for key := range output.Contracts {
		keys = append(keys, key)
	}
	names := contractNames(keys)
	contracts := make(Table)
	for key, info := range output.Contracts {
		// 解析单独的编译结果。
		var abi, userdoc, devdoc interface{}
		if err := json.Unmarshal([]byte(info.Abi), &abi); err != nil {
			return nil, fmt.Errorf("solc: error reading abi definition (%v)", err)
		}
		if err := json.Unmarshal([]byte(info.Userdoc), &userdoc); err != nil {
			return nil, fmt.Errorf("solc: error reading userdoc definition (%v)", err)
		}
		if err := json.Unmarshal([]byte(info.Devdoc), &devdoc); err != nil {
			return nil, fmt.Errorf("solc: error reading devdoc definition (%v)", err)
		}
		contracts[names[key]] = &Contract{
			Code:        "0x" + info.Bin,
			RuntimeCode: runtimeCode(info.BinRuntime),
			Hashes:      info.Hashes,
			Info: ContractInfo{
				Source:          source,
				Language:        "Solidity",
				LanguageVersion: languageVersion,
				CompilerVersion: compilerVersion,
				CompilerOptions: compilerOptions,
				SrcMap:          info.SrcMap,
				SrcMapRuntime:   info.SrcMapRuntime,
				AbiDefinition:   abi,
				UserDoc:         userdoc,
				DeveloperDoc:    devdoc,
				Metadata:        info.Metadata,
			},
		}
	}
	return contracts, nil
}

// ParseCombinedJSONV8 解析 solc --combined-output 的直接输出，
// 使用 solidity v.0.8.0 及更高版本的规则。
func ParseCombinedJSONV8(combinedJSON []byte, source string, languageVersion string, compilerVersion string, compilerOptions string) (Table, error) {
	var output solcOutputV8
	if err := json.Unmarshal(combinedJSON, &output); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(output.Contracts))
	for key := range output.Contracts {
		keys = append(keys, key)
	}
	names := contractNames(keys)
	contracts := make(Table)
	for key, info := range output.Contracts {
		contracts[names[key]] = &Contract{
			Code:        "0x" + info.Bin,
			RuntimeCode: runtimeCode(info.BinRuntime),
			Hashes:      info.Hashes,
			Info: ContractInfo{
				Source:          source,
				Language:        "Solidity",
				LanguageVersion: languageVersion,
				CompilerVersion: compilerVersion,
				CompilerOptions: compilerOptions,
				SrcMap:          info.SrcMap,
				SrcMapRuntime:   info.SrcMapRuntime,
				AbiDefinition:   info.Abi,
				UserDoc:         info.Userdoc,
				DeveloperDoc:    info.Devdoc,
				Metadata:        info.Metadata,
			},
		}
	}
	return contracts, nil
}

// runtimeCode 在 solc 没有给出运行时代码（例如抽象合约）时返回空串，序列化时省略。
func runtimeCode(bin string) string {
	if bin == "" {
		return ""
	}
	return "0x" + bin
}

// contractNames 把 solc 的 "path/File.sol:Name" 键缩短为 "Name"，
// 短名冲突时保留完整键。
func contractNames(keys []string) map[string]string {
	short := make(map[string]int, len(keys))
	for _, key := range keys {
		short[shortName(key)]++
	}
	names := make(map[string]string, len(keys))
	for _, key := range keys {
		if s := shortName(key); short[s] == 1 {
			names[key] = s
		} else {
			names[key] = key
		}
	}
	return names
}

func shortName(key string) string {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}
