package cmdtest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"text/template"
	"time"

	"github.com/docker/docker/pkg/reexec"
)

// NewTestCmd 创建子进程测试助手，data 是 Expect 模板的数据。
func NewTestCmd(t *testing.T, data interface{}) *TestCmd {
	return &TestCmd{T: t, Data: data}
}

// TestCmd 把测试二进制本身当作被测命令重新执行，
// 子进程由 reexec.Register 注册的名称选择入口。
type TestCmd struct {
	*testing.T

	Func    template.FuncMap
	Data    interface{}
	Cleanup func()

	// Dir 和 Env 在 Run 之前设置，为空时继承当前进程。
	Dir string
	Env []string

	cmd    *exec.Cmd
	stdout *bufio.Reader
	stderr *testlogger
	// Err 会包含进程退出错误或中断信号错误
	Err error
}

var id int32

// Run 以 name 作为 argv[0] 启动当前测试二进制，
// 触发 reexec 中以该名称注册的入口函数。
func (tt *TestCmd) Run(name string, args ...string) {
	id := atomic.AddInt32(&id, 1)
	tt.stderr = &testlogger{t: tt.T, name: fmt.Sprintf("%d", id)}
	tt.cmd = &exec.Cmd{
		Path:   reexec.Self(),
		Args:   append([]string{name}, args...),
		Dir:    tt.Dir,
		Stderr: tt.stderr,
	}
	if len(tt.Env) > 0 {
		tt.cmd.Env = append(os.Environ(), tt.Env...)
	}
	stdout, err := tt.cmd.StdoutPipe()
	if err != nil {
		tt.Fatal(err)
	}
	tt.stdout = bufio.NewReader(stdout)
	if err := tt.cmd.Start(); err != nil {
		tt.Fatal(err)
	}
}

// Expect 把参数当作模板执行，期望子进程在 5s 内输出同样的文本。
// 模板开头的一个换行符会被去掉。
func (tt *TestCmd) Expect(tplsource string) {
	tpl := template.Must(template.New("").Funcs(tt.Func).Parse(tplsource))
	wantbuf := new(bytes.Buffer)
	if err := tpl.Execute(wantbuf, tt.Data); err != nil {
		panic(err)
	}
	want := bytes.TrimPrefix(wantbuf.Bytes(), []byte("\n"))
	if err := tt.matchExactOutput(want); err != nil {
		tt.Fatal(err)
	}
	tt.Logf("Matched stdout text:\n%s", want)
}

// Output 读取子进程的全部标准输出。
func (tt *TestCmd) Output() []byte {
	var buf []byte
	tt.withKillTimeOut(func() { buf, _ = io.ReadAll(tt.stdout) })
	return buf
}

func (tt *TestCmd) matchExactOutput(want []byte) error {
	buf := make([]byte, len(want))
	n := 0
	tt.withKillTimeOut(func() { n, _ = io.ReadFull(tt.stdout, buf) })
	buf = buf[:n]
	if n < len(want) || !bytes.Equal(buf, want) {
		// 附上已缓冲的输出便于排查
		buf = append(buf, make([]byte, tt.stdout.Buffered())...)
		tt.stdout.Read(buf[n:])
		for i := 0; i < n; i++ {
			if want[i] != buf[i] {
				return fmt.Errorf("output mismatch at ◊:\n---------------- (stdout text)\n%s◊%s\n---------------- (expected text)\n%s",
					buf[:i], buf[i:n], want)
			}
		}
		if n < len(want) {
			return fmt.Errorf("not enough output, got until ◊:\n---------------- (stdout text)\n%s\n---------------- (expected text)\n%s◊%s",
				buf, want[:n], want[n:])
		}
	}
	return nil
}

// ExpectRegexp 期望子进程在 5s 内输出匹配 regex 的文本，返回各个子匹配。
// 匹配可能消耗任意多的输出，之后一般不能再调用 Expect。
func (tt *TestCmd) ExpectRegexp(regex string) (*regexp.Regexp, []string) {
	regex = strings.TrimPrefix(regex, "\n")
	var (
		re      = regexp.MustCompile(regex)
		rtee    = &runeTee{in: tt.stdout}
		matches []int
	)
	tt.withKillTimeOut(func() { matches = re.FindReaderSubmatchIndex(rtee) })
	output := rtee.buf.Bytes()
	if matches == nil {
		tt.Fatalf("Output did not match:\n---------------- (stdout text)\n%s\n---------------- (regular expression)\n%s",
			output, regex)
		return re, nil
	}
	tt.Logf("Match stdout text:\n%s", output)
	return re, submatches(output, matches)
}

// submatches 按 [start, end) 成对读取匹配下标，未参与匹配的分组为空串。
func submatches(output []byte, matches []int) []string {
	out := make([]string, 0, len(matches)/2)
	for i := 0; i+1 < len(matches); i += 2 {
		if matches[i] < 0 {
			out = append(out, "")
			continue
		}
		out = append(out, string(output[matches[i]:matches[i+1]]))
	}
	return out
}

// ExpectExit 期望子进程在 5s 内退出，且没有多余的标准输出。
func (tt *TestCmd) ExpectExit() {
	var output []byte
	tt.withKillTimeOut(func() {
		output, _ = io.ReadAll(tt.stdout)
	})
	tt.WaitExit()
	if tt.Cleanup != nil {
		tt.Cleanup()
	}
	if len(output) > 0 {
		tt.Errorf("Unmatched stdout text:\n%s", output)
	}
}

func (tt *TestCmd) WaitExit() {
	tt.Err = tt.cmd.Wait()
}

// ExitStatus 返回子进程的退出码，只在 WaitExit 之后有效。
func (tt *TestCmd) ExitStatus() int {
	var exitErr *exec.ExitError
	if errors.As(tt.Err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}
	return 0
}

// StderrText 返回到目前为止收集到的标准错误输出。
func (tt *TestCmd) StderrText() string {
	tt.stderr.mu.Lock()
	defer tt.stderr.mu.Unlock()
	return tt.stderr.buf.String()
}

func (tt *TestCmd) Kill() {
	tt.cmd.Process.Kill()
	if tt.Cleanup != nil {
		tt.Cleanup()
	}
}

func (tt *TestCmd) withKillTimeOut(fn func()) {
	timeout := time.AfterFunc(5*time.Second, func() {
		tt.Log("Killing the child process (timeout)")
		tt.Kill()
	})
	defer timeout.Stop()
	fn()
}

// testlogger 把子进程的 stderr 逐行转给 t.Log，同时保存下来。
type testlogger struct {
	t    *testing.T
	mu   sync.Mutex
	buf  bytes.Buffer
	name string
}

func (tl *testlogger) Write(b []byte) (n int, err error) {
	lines := bytes.Split(b, []byte("\n"))
	for _, line := range lines {
		if len(line) > 0 {
			tl.t.Logf("(stderr:%v) %s", tl.name, line)
		}
	}
	tl.mu.Lock()
	tl.buf.Write(b)
	tl.mu.Unlock()
	return len(b), err
}

// runeTee 将读取的文本收集到 buf 中。
type runeTee struct {
	in interface {
		io.Reader
		io.ByteReader
		io.RuneReader
	}
	buf bytes.Buffer
}

func (rtee *runeTee) Read(b []byte) (n int, err error) {
	n, err = rtee.in.Read(b)
	rtee.buf.Write(b[:n])
	return n, err
}

func (rtee *runeTee) ReadRune() (r rune, size int, err error) {
	r, size, err = rtee.in.ReadRune()
	if err == nil {
		rtee.buf.WriteRune(r)
	}
	return r, size, err
}

func (rtee *runeTee) ReadByte() (b byte, err error) {
	b, err = rtee.in.ReadByte()
	if err == nil {
		rtee.buf.WriteByte(b)
	}
	return b, err
}
