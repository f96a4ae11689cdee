package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"flybind/codegen"
	"flybind/common"
	"flybind/common/compiler"
	"flybind/log"
	"flybind/web"
)

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "Print the contract names in the table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		for _, name := range table.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var validateCommand = &cobra.Command{
	Use:   "validate",
	Short: "Check bytecode and ABI of every contract",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		if err := table.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d contracts OK\n", len(table))
		return nil
	},
}

var renderCommand = &cobra.Command{
	Use:   "render",
	Short: "Render contracts.js",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		render := web.RenderContractsJS
		if abis, _ := cmd.Flags().GetBool("abis"); abis {
			render = web.RenderContractABIs
		}
		data, err := render(table)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		return writeOutput(cmd.OutOrStdout(), out, data)
	},
}

var collectCommand = &cobra.Command{
	Use:   "collect",
	Short: "Write contracts.js and contracts.json into the build assets directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		paths, err := web.CollectAssets(table, config.GetString(buildDirFlag))
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

var compileCommand = &cobra.Command{
	Use:   "compile <file.sol>...",
	Short: "Compile solidity sources into a contract table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		table, err := compiler.CompileSolidity(cmd.Context(), config.GetString(solcFlag), args...)
		if err != nil {
			return err
		}
		if err := table.FillHashes(); err != nil {
			return err
		}
		data, err := table.MarshalIndent("", "    ")
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = buildPath("contracts.json")
		}
		if err := writeOutput(cmd.OutOrStdout(), out, append(data, '\n')); err != nil {
			return err
		}
		log.Info("Compiled contracts", "count", len(table), "out", out, "elapsed", common.PrettyDuration(time.Since(start)))
		return nil
	},
}

var genCommand = &cobra.Command{
	Use:   "gen",
	Short: "Generate a Go package that registers the contract table",
	Long: `Generate a Go package that embeds the contract table and registers it.

The generated file imports the bind and common/compiler packages of the
module given by --module (default "flybind"). It only compiles inside that
module or in a module that requires it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		pkg, _ := cmd.Flags().GetString("pkg")
		module, _ := cmd.Flags().GetString("module")
		src, err := codegen.Generate(pkg, module, table)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		return writeOutput(cmd.OutOrStdout(), out, src)
	},
}

func init() {
	renderCommand.Flags().String("out", "-", "output file, - for stdout")
	renderCommand.Flags().Bool("abis", false, "render var contract_abis instead of contracts.js")
	compileCommand.Flags().String("out", "", "output file, - for stdout (default: <build-dir>/contracts.json)")
	genCommand.Flags().String("pkg", "contracts", "Go package name")
	genCommand.Flags().String("module", codegen.DefaultModule, "module path that provides the bind and common/compiler packages")
	genCommand.Flags().String("out", "-", "output file, - for stdout")
}

// writeOutput 在 path 为 "-" 或空时写到 stdout，否则写文件并按需创建目录。
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Info("Wrote file", "path", path, "size", len(data))
	return nil
}
