// Package monitoring turns a simulation into an HTTP server that can be
// inspected and controlled while it runs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/slahiruk/vcml/processor"
	"github.com/slahiruk/vcml/sim/command"
	"github.com/slahiruk/vcml/sim/naming"
	"github.com/slahiruk/vcml/sim/timing"
	"github.com/slahiruk/vcml/stats"
)

// Monitor serves the state of a simulation over HTTP.
type Monitor struct {
	kernel     timing.Engine
	collector  *stats.Collector
	components []naming.Named
	commands   *command.Directory
	portNumber int
	logger     *slog.Logger

	profileDuration time.Duration

	holdLock sync.Mutex

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		commands:        command.NewDirectory(),
		logger:          slog.Default(),
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		if portNumber != 0 {
			m.logger.Warn("port number not allowed, using a random port",
				"port", portNumber)
		}

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterKernel registers the kernel that runs the simulation.
func (m *Monitor) RegisterKernel(k timing.Engine) {
	m.kernel = k
}

// RegisterCollector registers the statistics served under /api/stats.
func (m *Monitor) RegisterCollector(c *stats.Collector) {
	m.collector = c
}

// RegisterComponent registers a component to be monitored. Components that
// run debug commands can be driven through /api/command.
func (m *Monitor) RegisterComponent(c naming.Named) {
	m.components = append(m.components, c)

	if e, ok := c.(command.Executor); ok {
		m.commands.Add(e)
	}
}

// Router returns the handler of all routes.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseKernel)
	r.HandleFunc("/api/continue", m.continueKernel)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/commands/{name}", m.listCommands)
	r.HandleFunc("/api/command/{name}/{command}", m.runCommand)
	r.HandleFunc("/api/irq/{name}", m.listIrqStats)
	r.HandleFunc("/api/stats", m.listStats)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving in the background and returns the URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", m.portNumber))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitoring server failed", "err", err)
		}
	}()

	m.logger.Info("monitoring simulation", "url", url)

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("cannot write response", "err", err)
	}
}

func (m *Monitor) kernelOr503(w http.ResponseWriter) timing.Engine {
	if m.kernel == nil {
		http.Error(w, "no kernel registered", http.StatusServiceUnavailable)
	}

	return m.kernel
}

type pauseRsp struct {
	Paused bool `json:"paused"`
}

func (m *Monitor) pauseKernel(w http.ResponseWriter, _ *http.Request) {
	k := m.kernelOr503(w)
	if k == nil {
		return
	}

	k.Pause()
	m.writeJSON(w, pauseRsp{Paused: true})
}

func (m *Monitor) continueKernel(w http.ResponseWriter, _ *http.Request) {
	k := m.kernelOr503(w)
	if k == nil {
		return
	}

	k.Continue()
	m.writeJSON(w, pauseRsp{Paused: false})
}

type nowRsp struct {
	Now  uint64 `json:"now"`
	Text string `json:"text"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	k := m.kernelOr503(w)
	if k == nil {
		return
	}

	now := k.Now()
	m.writeJSON(w, nowRsp{Now: uint64(now), Text: now.String()})
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	sort.Strings(names)

	m.writeJSON(w, names)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) naming.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	http.Error(w, "component not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	defer m.holdKernel()()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("cannot serialize component",
			"component", component.Name(), "err", err)
	}
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	defer m.holdKernel()()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("cannot serialize field",
			"component", req.CompName, "field", req.FieldName, "err", err)
	}
}

type commandInfo struct {
	Name  string `json:"name"`
	Usage string `json:"usage"`
	Desc  string `json:"desc"`
}

func (m *Monitor) listCommands(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	e, found := m.commands.Find(name)
	if !found {
		http.Error(w, "component not found", http.StatusNotFound)
		return
	}

	cmds := e.Commands()
	list := make([]commandInfo, 0, len(cmds))

	for _, c := range cmds {
		list = append(list, commandInfo{Name: c.Name, Usage: c.Usage, Desc: c.Desc})
	}

	m.writeJSON(w, list)
}

type commandRsp struct {
	OK     bool   `json:"ok"`
	Output string `json:"output"`
}

// runCommand executes a debug command between two events. Arguments are
// given as repeated arg query parameters.
func (m *Monitor) runCommand(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if _, found := m.commands.Find(vars["name"]); !found {
		http.Error(w, "component not found", http.StatusNotFound)
		return
	}

	out, ok := m.Execute(vars["name"], vars["command"], r.URL.Query()["arg"])

	m.writeJSON(w, commandRsp{OK: ok, Output: out})
}

// Execute runs a debug command on a registered component with the kernel
// paused.
func (m *Monitor) Execute(target, name string, args []string) (string, bool) {
	defer m.holdKernel()()

	return m.commands.Execute(target, name, args)
}

// holdKernel pauses the kernel between two events, unless it is already
// paused, and returns the function that lets it continue. Simulation state
// is only read or changed while the kernel is held.
func (m *Monitor) holdKernel() (release func()) {
	m.holdLock.Lock()

	if m.kernel == nil || m.kernel.Paused() {
		return m.holdLock.Unlock
	}

	m.kernel.Pause()

	return func() {
		m.kernel.Continue()
		m.holdLock.Unlock()
	}
}

type irqRsp struct {
	Line       uint   `json:"line"`
	Count      uint64 `json:"count"`
	Asserted   bool   `json:"asserted"`
	LastAssert string `json:"last_assert"`
	Cumulative string `json:"cumulative"`
	Longest    string `json:"longest"`
}

func (m *Monitor) listIrqStats(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	p, ok := component.(*processor.Processor)
	if !ok {
		http.Error(w, "component is not a processor", http.StatusBadRequest)
		return
	}

	release := m.holdKernel()
	irqs := p.IrqStats()
	release()

	list := make([]irqRsp, 0, len(irqs))

	for _, st := range irqs {
		list = append(list, irqRsp{
			Line:       st.Line,
			Count:      st.Count,
			Asserted:   st.Asserted,
			LastAssert: st.LastAssert.String(),
			Cumulative: st.Cumulative.String(),
			Longest:    st.Longest.String(),
		})
	}

	m.writeJSON(w, list)
}

func (m *Monitor) listStats(w http.ResponseWriter, _ *http.Request) {
	if m.collector == nil {
		http.Error(w, "no statistics collected", http.StatusNotFound)
		return
	}

	release := m.holdKernel()
	entries := m.collector.EndpointEntries()
	release()

	m.writeJSON(w, entries)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]ProgressBarState, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.State())
	}

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{CPUPercent: cpuPercent, MemorySize: memInfo.RSS})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}
