package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// MakeName 创建形如 name/vX/os/go 的版本字符串。
func MakeName(name, version string) string {
	return fmt.Sprintf("%s/v%s/%s/%s", name, version, runtime.GOOS, runtime.Version())
}

// FileExist 检查文件路径是否存在文件。
func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil || !os.IsNotExist(err)
}

// AbsolutePath 返回 datadir + 文件名，如果是绝对路径则返回文件名。
func AbsolutePath(datadir string, filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(datadir, filename)
}
