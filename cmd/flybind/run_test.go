package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/docker/pkg/reexec"
	"github.com/stretchr/testify/require"

	"flybind/contracts/fixture"
	"flybind/internal/cmdtest"
)

const registeredName = "flybind-test"

type testflybind struct {
	*cmdtest.TestCmd
}

func init() {
	reexec.Register(registeredName, func() {
		main()
		os.Exit(0)
	})
}

func TestMain(m *testing.M) {
	// 子进程在这里进入 main
	if reexec.Init() {
		return
	}
	os.Exit(m.Run())
}

func newFlybind(t *testing.T) *testflybind {
	tt := new(testflybind)
	tt.TestCmd = cmdtest.NewTestCmd(t, tt)
	return tt
}

// runFlybind 启动子进程执行 flybind，args 不含程序名。
func runFlybind(t *testing.T, args ...string) *testflybind {
	tt := newFlybind(t)
	tt.Run(registeredName, args...)
	return tt
}

func TestVersion(t *testing.T) {
	tt := runFlybind(t, "version")
	tt.ExpectRegexp(fmt.Sprintf(`flybind/v%s/[a-z0-9]+/go[^\n]*\n`, strings.ReplaceAll(Version, ".", `\.`)))
	tt.ExpectExit()
}

func TestList(t *testing.T) {
	tt := runFlybind(t, "list")
	tt.Expect(`
Example
`)
	tt.ExpectExit()
}

func TestValidate(t *testing.T) {
	tt := runFlybind(t, "validate")
	tt.Expect("1 contracts OK\n")
	tt.ExpectExit()
}

func TestRender(t *testing.T) {
	want, err := os.ReadFile(filepath.Join("..", "..", "web", "testdata", "contracts.js"))
	require.NoError(t, err)

	tt := runFlybind(t, "render")
	got := tt.Output()
	tt.WaitExit()
	require.Zero(t, tt.ExitStatus())
	require.Equal(t, string(want), string(got))
}

func TestGen(t *testing.T) {
	tt := runFlybind(t, "gen", "--pkg", "example")
	got := string(tt.Output())
	tt.WaitExit()
	require.Zero(t, tt.ExitStatus())
	require.Contains(t, got, "package example")
	require.Contains(t, got, "func Register(binder bind.ABIBinder) (bind.Registry, error)")
}

func TestGenModule(t *testing.T) {
	tt := runFlybind(t, "gen", "--pkg", "example", "--module", "example.com/flybind")
	got := string(tt.Output())
	tt.WaitExit()
	require.Zero(t, tt.ExitStatus())
	require.Contains(t, got, `"example.com/flybind/bind"`)
	require.NotContains(t, got, `"flybind/bind"`)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	tt := runFlybind(t, "--build-dir", dir, "collect")
	tt.Expect(fmt.Sprintf("%s\n%s\n",
		filepath.Join(dir, "assets", "js", "contracts.js"),
		filepath.Join(dir, "assets", "contracts.json"),
	))
	tt.ExpectExit()

	data, err := os.ReadFile(filepath.Join(dir, "assets", "contracts.json"))
	require.NoError(t, err)
	require.Equal(t, string(fixture.JSON()), string(data))
}

func TestMissingContractsFile(t *testing.T) {
	tt := runFlybind(t, "--contracts", filepath.Join(t.TempDir(), "missing.json"), "list")
	tt.ExpectExit()
	require.Equal(t, 1, tt.ExitStatus())
	require.Contains(t, tt.StderrText(), "contracts file not found")
}

func TestBadVerbosity(t *testing.T) {
	tt := runFlybind(t, "--verbosity", "loud", "list")
	tt.ExpectExit()
	require.Equal(t, 1, tt.ExitStatus())
	require.Contains(t, tt.StderrText(), "unknown level")
}

// renamedTable 写出一份把 Example 改名为 name 的描述表。
func renamedTable(t *testing.T, dir, name string) string {
	data := strings.Replace(string(fixture.JSON()), `"Example":`, fmt.Sprintf("%q:", name), 1)
	path := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	renamedTable(t, dir, "FromConfig")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flybind.toml"), []byte("contracts = \"table.json\"\n"), 0644))

	tt := newFlybind(t)
	tt.Dir = dir
	tt.Run(registeredName, "list")
	tt.Expect("FromConfig\n")
	tt.ExpectExit()
}

func TestEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := renamedTable(t, dir, "FromEnv")

	tt := newFlybind(t)
	tt.Env = []string{"FLYBIND_CONTRACTS=" + path}
	tt.Run(registeredName, "list")
	tt.Expect("FromEnv\n")
	tt.ExpectExit()
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "flybind.log")
	tt := runFlybind(t, "--build-dir", dir, "--verbosity", "debug", "--log.file", logPath, "collect")
	tt.Output()
	tt.WaitExit()
	require.Zero(t, tt.ExitStatus())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `msg="Wrote asset"`)
	require.Contains(t, string(data), "lvl=dbug")
	// 终端输出仍然写到 stderr
	require.Contains(t, tt.StderrText(), "Wrote asset")
}
