// 包 codegen 把合约描述表生成为 Go 源文件，生成的包在加载时注册合约句柄。
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"flybind/common/compiler"
)

var (
	ErrInvalidPackage = errors.New("invalid package name")
	ErrInvalidModule  = errors.New("invalid module path")
)

// DefaultModule 是生成代码默认导入的模块路径。生成的包只能在这个模块内部
// 或者依赖它的模块中编译。
const DefaultModule = "flybind"

type tmplContract struct {
	Ident string
	Name  string
}

type tmplData struct {
	Package   string
	Module    string
	Contracts []tmplContract
	JSON      string
}

// Generate 生成包 pkg 的源码，其中嵌入了描述表和 Register 函数。
// 生成的代码导入 module 下的 bind 和 common/compiler 包，module 为空时用 DefaultModule。
func Generate(pkg, module string, table compiler.Table) ([]byte, error) {
	if !token.IsIdentifier(pkg) {
		return nil, ErrInvalidPackage
	}
	if module == "" {
		module = DefaultModule
	}
	if err := checkModule(module); err != nil {
		return nil, err
	}
	data, err := table.MarshalIndent("", "\t")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = tmplSource.Execute(&buf, &tmplData{Package: pkg, Module: module, Contracts: contracts(table.Names()), JSON: string(data)})
	if err != nil {
		return nil, err
	}
	return imports.Process(pkg+".go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
}

// checkModule 只做基本检查：不能含空白、引号或反斜杠，也不能以 / 开头或结尾。
func checkModule(module string) error {
	if strings.HasPrefix(module, "/") || strings.HasSuffix(module, "/") ||
		strings.ContainsAny(module, " \t\n\"`\\") {
		return fmt.Errorf("%w: %q", ErrInvalidModule, module)
	}
	return nil
}

// contracts 为每个名称生成 Name 前缀的常量名，冲突时追加序号。
func contracts(names []string) []tmplContract {
	var (
		out  = make([]tmplContract, 0, len(names))
		used = make(map[string]bool)
	)
	for _, name := range names {
		ident := "Name" + identifier(name)
		for i := 2; used[ident]; i++ {
			ident = "Name" + identifier(name) + strconv.Itoa(i)
		}
		used[ident] = true
		out = append(out, tmplContract{Ident: ident, Name: name})
	}
	return out
}

// identifier 把 "path/a.sol:Token" 这样的名称转换为合法的标识符片段。
func identifier(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// literal 优先使用原始字符串，内容含反引号时退回到带引号的形式。
func literal(s string) string {
	if strings.ContainsRune(s, '`') {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}

var tmplSource = template.Must(template.New("").Funcs(template.FuncMap{
	"literal": literal,
	"quote":   strconv.Quote,
}).Parse(`// Code generated by flybind. DO NOT EDIT.

package {{.Package}}

import (
	"{{.Module}}/bind"
	"{{.Module}}/common/compiler"
)

// 描述表中的合约名称。
const (
{{- range .Contracts}}
	{{.Ident}} = {{quote .Name}}
{{- end}}
)

const contractsJSON = {{literal .JSON}}

// Table 解析内嵌的合约描述表。
func Table() (compiler.Table, error) {
	return compiler.ParseTable([]byte(contractsJSON))
}

// Register 用 binder 为内嵌描述表中的每个合约构造句柄。
func Register(binder bind.ABIBinder) (bind.Registry, error) {
	table, err := Table()
	if err != nil {
		return nil, err
	}
	return bind.Register(table, binder)
}
`))
