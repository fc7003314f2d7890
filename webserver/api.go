package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"strings"
	"time"

	. "ESGo/global"
	"ESGo/sip"
)

func StartWS() {
	r := http.NewServeMux()
	ws := fmt.Sprintf("%s:%d", sip.ServerIPv4, HttpTcpPort)
	srv := &http.Server{Addr: ws, Handler: r, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 15 * time.Second}

	wireAPIPathHandlers(r)

	WtGrp.Add(1)
	go func() {
		defer WtGrp.Done()
		log.Fatal(srv.ListenAndServe())
	}()

	fmt.Print("Loading API Webserver...")
	fmt.Println("Success: HTTP", ws)

	fmt.Printf("Prometheus metrics available at http://%s/metrics\n", ws)

	fmt.Println("ESGo is ready to serve!")
}

func wireAPIPathHandlers(r *http.ServeMux) {
	r.HandleFunc("GET /api/v1/call", serveCall)
	r.HandleFunc("GET /api/v1/subscription", serveSubscription)
	r.HandleFunc("GET /api/v1/subscription/remote", serveRemoteHandle)
	r.HandleFunc("GET /api/v1/stats", serveStats)

	r.Handle("GET /metrics", Prometrics.Handler())
	r.HandleFunc("GET /", serveHome)
}

func serveHome(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write(fmt.Appendf(nil, "<h1>%s API Webserver</h1>\n", EngineNameVersion))
}

func serveCall(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response, _ := json.Marshal(sip.Calls.Summaries())
	_, err := w.Write(response)
	if err != nil {
		LogError(LTWebserver, err.Error())
	}
}

// serveSubscription evaluates a meta-field batch against the subscription a
// handle addresses, e.g. /api/v1/subscription?handle=U_...&fields=status,expires
func serveSubscription(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	fieldsParam := r.URL.Query().Get("fields")
	if handle == "" || fieldsParam == "" {
		http.Error(w, "handle and fields query parameters are required", http.StatusBadRequest)
		return
	}
	flds := strings.Split(fieldsParam, ",")

	values, err := sip.QuerySubscriptionFields(handle, flds)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	data := struct {
		Handle string   `json:"handle"`
		Fields []string `json:"fields"`
		Values []string `json:"values"`
	}{handle, flds, values}

	response, _ := json.Marshal(data)
	if _, err = w.Write(response); err != nil {
		LogError(LTWebserver, err.Error())
	}
}

// serveRemoteHandle rewrites a handle to address the peer dialog side.
func serveRemoteHandle(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		http.Error(w, "handle query parameter is required", http.StatusBadRequest)
		return
	}

	remote, err := sip.RemoteSubscriptionHandle(handle)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	data := struct {
		Handle       string `json:"handle"`
		RemoteHandle string `json:"remoteHandle"`
	}{handle, remote}

	response, _ := json.Marshal(data)
	if _, err = w.Write(response); err != nil {
		LogError(LTWebserver, err.Error())
	}
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sip.ErrInvalidHandle), errors.Is(err, sip.ErrInvalidField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, sip.ErrCallNotFound), errors.Is(err, sip.ErrInvalidSubscription):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func serveStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	BToMB := func(b uint64) uint64 {
		return b / 1000 / 1000
	}

	data := struct {
		CPUCount        int
		GoRoutinesCount int
		Alloc           uint64
		System          uint64
		GCCycles        uint32
		WaitGroupLength int
		CallsCount      int
	}{
		CPUCount:        runtime.NumCPU(),
		GoRoutinesCount: runtime.NumGoroutine(),
		Alloc:           BToMB(m.Alloc),
		System:          BToMB(m.Sys),
		GCCycles:        m.NumGC,
		WaitGroupLength: sip.WorkerCount + 2,
		CallsCount:      sip.Calls.Count(),
	}

	response, _ := json.Marshal(data)
	_, err := w.Write(response)
	if err != nil {
		LogError(LTWebserver, err.Error())
	}
}
