// flybind 管理合约描述表：列出、渲染 contracts.js、生成 Go 绑定、编译并提供服务。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"flybind/common"
	"flybind/log"
)

const (
	clientIdentifier = "flybind"
	Version          = "0.1.0"
)

// 由链接器设置
var gitCommit = ""

var rootCmd = &cobra.Command{
	Use:               clientIdentifier,
	Short:             "Contract descriptor tables for tests and web3 front ends",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	if err := addGlobalFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		listCommand,
		validateCommand,
		renderCommand,
		collectCommand,
		compileCommand,
		genCommand,
		serveCommand,
		versionCommand,
	)
}

func main() {
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stderr, log.TerminalFormat(false))))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if logFile != nil {
		defer logFile.Close()
	}
	if err != nil {
		log.Crit("Command failed", "err", err)
	}
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version numbers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version := Version
		if len(gitCommit) >= 8 {
			version += "-" + gitCommit[:8]
		}
		fmt.Fprintln(cmd.OutOrStdout(), common.MakeName(clientIdentifier, version))
	},
}
