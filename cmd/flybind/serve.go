package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"flybind/bind"
	"flybind/common/compiler"
	"flybind/contractsapi"
	"flybind/log"
	"flybind/web"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve contracts.js, the contract table and the contracts JSON-RPC API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		handler, closeRPC, err := newServeHandler(table)
		if err != nil {
			return err
		}
		defer closeRPC()

		srv := &http.Server{
			Addr:              config.GetString(httpAddrFlag),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		log.Info("HTTP server started", "addr", srv.Addr, "contracts", len(table))

		select {
		case err := <-errc:
			return err
		case <-cmd.Context().Done():
		}
		log.Info("HTTP server stopping")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// newServeHandler 注册合约句柄，把 JSON-RPC 服务挂到 /rpc，其余路由交给 web 包。
func newServeHandler(table compiler.Table) (http.Handler, func(), error) {
	reg, err := bind.Register(table, bind.EthBinder{})
	if err != nil {
		return nil, nil, err
	}
	rpcSrv, err := contractsapi.NewServer(reg)
	if err != nil {
		return nil, nil, err
	}
	router := web.NewHandler(table, log.New("module", "web"))
	router.Handle("/rpc", rpcSrv)
	return router, rpcSrv.Stop, nil
}
