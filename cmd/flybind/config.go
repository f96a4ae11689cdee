package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"flybind/common"
	"flybind/common/compiler"
	"flybind/contracts/fixture"
	"flybind/log"
)

const (
	contractsFlag = "contracts"
	buildDirFlag  = "build-dir"
	httpAddrFlag  = "http.addr"
	verbosityFlag = "verbosity"
	logJSONFlag   = "log.json"
	logFileFlag   = "log.file"
	solcFlag      = "solc"
)

// config 依次取命令行参数、FLYBIND_* 环境变量和工作目录下的 flybind.{toml,yaml,json}。
var config = newConfig()

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetConfigName(clientIdentifier)
	v.AddConfigPath(".")
	v.SetEnvPrefix(strings.ToUpper(clientIdentifier))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// addGlobalFlags 定义所有子命令共用的参数并绑定到 config。
func addGlobalFlags(fs *pflag.FlagSet) error {
	fs.String(contractsFlag, "", "contract table JSON (default: embedded Example table)")
	fs.String(buildDirFlag, "./build", "build output directory")
	fs.String(httpAddrFlag, "127.0.0.1:8545", "HTTP listen address for serve")
	fs.String(verbosityFlag, "info", "log level: trace, debug, info, warn, error, crit")
	fs.Bool(logJSONFlag, false, "format logs as JSON")
	fs.String(logFileFlag, "", "also write logs to this file (logfmt, or JSON with --log.json)")
	fs.String(solcFlag, "solc", "solidity compiler executable")
	return config.BindPFlags(fs)
}

// logFile 由 --log.file 打开，main 退出前关闭。
var logFile io.Closer

func setup(cmd *cobra.Command, args []string) error {
	if err := config.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}
	lvl, err := log.LvlFromString(config.GetString(verbosityFlag))
	if err != nil {
		return err
	}
	var handler log.Handler
	if config.GetBool(logJSONFlag) {
		handler = log.StreamHandler(os.Stderr, log.JSONFormat())
		if lvl >= log.LvlDebug {
			handler = log.CallerFileHandler(handler)
		}
	} else {
		// 调试级别以上在终端输出中带上文件和行号
		log.PrintOrigins(lvl >= log.LvlDebug)
		handler = log.StreamHandler(os.Stderr, log.TerminalFormat(false))
	}
	if path := config.GetString(logFileFlag); path != "" {
		fileFormat := log.LogfmtFormat()
		if config.GetBool(logJSONFlag) {
			fileFormat = log.JSONFormat()
		}
		fh, closer, err := log.FileHandler(path, fileFormat)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		logFile = closer
		handler = log.MultiHandler(handler, fh)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, handler))
	if used := config.ConfigFileUsed(); used != "" {
		log.Debug("Loaded config file", "path", used)
	}
	return nil
}

// loadTable 读取 --contracts 指定的描述表，未指定时使用内嵌的 Example 表。
func loadTable() (compiler.Table, error) {
	path := config.GetString(contractsFlag)
	if path == "" {
		return fixture.Table()
	}
	if !common.FileExist(path) {
		return nil, fmt.Errorf("contracts file not found: %s", path)
	}
	table, err := compiler.LoadTable(path)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded contract table", "path", path, "contracts", len(table))
	return table, nil
}

func buildPath(name string) string {
	return common.AbsolutePath(config.GetString(buildDirFlag), name)
}
