package web

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"flybind/common/compiler"
	"flybind/log"
)

type handler struct {
	table  compiler.Table
	logger log.Logger
}

// NewHandler 返回提供合约脚本和描述的路由：
//
//	GET /contracts.js
//	GET /static-3/contracts.js
//	GET /contracts.json
//	GET /contracts/{name}
//
// 调用方可以在返回的路由上继续挂载其他处理程序。
func NewHandler(table compiler.Table, logger log.Logger) *mux.Router {
	if logger == nil {
		logger = log.Root()
	}
	h := &handler{table: table, logger: logger}
	r := mux.NewRouter()
	r.HandleFunc("/contracts.js", h.contractsJS).Methods(http.MethodGet)
	r.HandleFunc("/static-3/contracts.js", h.contractABIs).Methods(http.MethodGet)
	r.HandleFunc("/contracts.json", h.contractsJSON).Methods(http.MethodGet)
	r.HandleFunc("/contracts/{name}", h.contract).Methods(http.MethodGet)
	r.Use(h.logRequests)
	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Trace("Serving request", "method", r.Method, "url", r.URL.String())
		next.ServeHTTP(w, r)
	})
}

func (h *handler) contractsJS(w http.ResponseWriter, r *http.Request) {
	h.write(w, "application/javascript", RenderContractsJS)
}

func (h *handler) contractABIs(w http.ResponseWriter, r *http.Request) {
	h.write(w, "application/javascript", RenderContractABIs)
}

func (h *handler) contractsJSON(w http.ResponseWriter, r *http.Request) {
	h.write(w, "application/json", func(t compiler.Table) ([]byte, error) {
		return t.MarshalIndent("", jsIndent)
	})
}

func (h *handler) contract(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, err := h.table.Get(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsIndent)
	if err := enc.Encode(c); err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

func (h *handler) write(w http.ResponseWriter, contentType string, render func(compiler.Table) ([]byte, error)) {
	data, err := render(h.table)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("Failed to render contracts", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
