package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/shukan/internal/config"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeComponent struct {
	name      string
	deps      []string
	rec       *recorder
	initErr   error
	startErr  error
	stopErr   error
	healthErr error
	stopBlock chan struct{}

	mu     sync.Mutex
	health *ComponentHealth
}

func newFake(rec *recorder, name string, deps ...string) *fakeComponent {
	return &fakeComponent{name: name, deps: deps, rec: rec, health: Healthy(name)}
}

func (f *fakeComponent) Name() string           { return f.name }
func (f *fakeComponent) Dependencies() []string { return f.deps }

func (f *fakeComponent) Init(ctx context.Context) error {
	f.rec.add("init " + f.name)
	return f.initErr
}

func (f *fakeComponent) Start(ctx context.Context) error {
	f.rec.add("start " + f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	f.rec.add("stop " + f.name)
	if f.stopBlock != nil {
		<-f.stopBlock
	}
	return f.stopErr
}

func (f *fakeComponent) Health(ctx context.Context) (*ComponentHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health, f.healthErr
}

func (f *fakeComponent) setHealth(h *ComponentHealth) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = h
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Store:  config.StoreConfig{Backend: "memory"},
	}
}

func newTestDaemon(t *testing.T, comps ...Component) *Daemon {
	t.Helper()
	d, err := NewDaemon("test", testConfig())
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}
	for _, c := range comps {
		d.AddComponent(c)
	}
	return d
}

func TestNewDaemon(t *testing.T) {
	tests := []struct {
		name        string
		workspaceID string
		cfg         *config.Config
		wantErr     bool
	}{
		{"valid daemon", "personal", &config.Config{}, false},
		{"empty workspace ID", "", &config.Config{}, true},
		{"nil config", "personal", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDaemon(tt.workspaceID, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDaemon() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if d.Health() != StatusStarting {
				t.Fatalf("Health() = %s, want %s", d.Health(), StatusStarting)
			}
			if d.Uptime() != 0 {
				t.Fatalf("Uptime() = %v before start, want 0", d.Uptime())
			}
		})
	}
}

func TestValidateConfig_ResolvesDefaultWorkspaceRoot(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	workspaceID := fmt.Sprintf("test-%d", time.Now().UnixNano())
	d, err := NewDaemon(workspaceID, &config.Config{Server: config.ServerConfig{Port: 8080}})
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}
	if err := d.validateConfig(); err != nil {
		t.Fatalf("validateConfig() failed: %v", err)
	}

	expected := filepath.Join(tmpHome, ".shukan", "workspaces", workspaceID)
	if _, err := os.Stat(expected); err != nil {
		t.Fatalf("expected workspace path to exist at %s: %v", expected, err)
	}
}

func TestValidateConfig_MemoryBackendSkipsWorkspace(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspaces")
	cfg := testConfig()
	cfg.Store.WorkspacePath = root

	d, _ := NewDaemon("test", cfg)
	if err := d.validateConfig(); err != nil {
		t.Fatalf("validateConfig() failed: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("memory backend should not create %s", root)
	}
}

func TestValidateConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"port", func(c *config.Config) { c.Server.Port = 70000 }, "invalid port"},
		{"reward chance", func(c *config.Config) { c.Engine.RewardChance = 1.5 }, "engine.reward_chance"},
		{"unparsable duration", func(c *config.Config) { c.Reminder.Inactivity = "soon" }, "reminder.inactivity"},
		{"negative duration", func(c *config.Config) { c.Engine.TickInterval = "-1s" }, "engine.tick_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			d, _ := NewDaemon("test", cfg)
			err := d.validateConfig()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("validateConfig() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestAddComponent_IgnoresDuplicates(t *testing.T) {
	rec := &recorder{}
	first := newFake(rec, "Engine")
	d := newTestDaemon(t, first, newFake(rec, "Engine"))

	if len(d.components) != 1 {
		t.Fatalf("components = %d, want 1", len(d.components))
	}
	if d.Component("Engine") != first {
		t.Fatal("Component() should return the first registration")
	}
	if d.Component("Missing") != nil {
		t.Fatal("Component() should return nil for unknown names")
	}
}

func TestPlanOrder(t *testing.T) {
	rec := &recorder{}
	plan, err := planOrder([]Component{
		newFake(rec, "HTTPServer", "Engine"),
		newFake(rec, "Reminder", "Engine", "Notifier"),
		newFake(rec, "Engine", "Notifier"),
		newFake(rec, "Notifier"),
	})
	if err != nil {
		t.Fatalf("planOrder() failed: %v", err)
	}

	want := []string{"Notifier", "Engine", "HTTPServer", "Reminder"}
	if got := names(plan); !reflect.DeepEqual(got, want) {
		t.Fatalf("plan = %v, want %v", got, want)
	}
}

func TestPlanOrder_Cycle(t *testing.T) {
	rec := &recorder{}
	_, err := planOrder([]Component{
		newFake(rec, "A", "B"),
		newFake(rec, "B", "A"),
		newFake(rec, "C"),
	})
	if err == nil || !strings.Contains(err.Error(), "circular dependency") || !strings.Contains(err.Error(), "A, B") {
		t.Fatalf("planOrder() error = %v, want cycle involving A, B", err)
	}
}

func TestPlanOrder_MissingDependency(t *testing.T) {
	_, err := planOrder([]Component{newFake(&recorder{}, "Reminder", "Engine")})
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("planOrder() error = %v, want missing dependency", err)
	}
}

func TestStart_InitFailureStopsOnlyInitialized(t *testing.T) {
	rec := &recorder{}
	b := newFake(rec, "B", "A")
	b.initErr = errors.New("boom")
	d := newTestDaemon(t, newFake(rec, "C", "B"), b, newFake(rec, "A"))

	err := d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "component B init failed") {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"init A", "init B", "stop A"}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if d.Health() != StatusStopped {
		t.Fatalf("Health() = %s, want stopped", d.Health())
	}
}

func TestStart_StartFailureStopsEverythingInitialized(t *testing.T) {
	rec := &recorder{}
	b := newFake(rec, "B", "A")
	b.startErr = errors.New("port in use")
	d := newTestDaemon(t, newFake(rec, "A"), b, newFake(rec, "C", "B"))

	err := d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "component B startup failed") {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"init A", "init B", "init C", "start A", "start B", "stop C", "stop B", "stop A"}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestStart_RunsUntilCancelled(t *testing.T) {
	rec := &recorder{}
	d := newTestDaemon(t, newFake(rec, "Engine", "Notifier"), newFake(rec, "Notifier"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for d.Health() != StatusRunning {
		if time.Now().After(deadline) {
			t.Fatal("daemon never reported running")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}

	want := []string{"init Notifier", "init Engine", "start Notifier", "start Engine", "stop Engine", "stop Notifier"}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if d.Health() != StatusStopped {
		t.Fatalf("Health() = %s, want stopped", d.Health())
	}
}

func TestStopComponents_JoinsErrors(t *testing.T) {
	rec := &recorder{}
	a := newFake(rec, "A")
	b := newFake(rec, "B")
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	a.stopErr, b.stopErr = errA, errB

	d := newTestDaemon(t)
	err := d.stopComponents([]Component{a, b}, time.Second)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("stopComponents() error = %v, want both failures", err)
	}
	if got := rec.list(); !reflect.DeepEqual(got, []string{"stop B", "stop A"}) {
		t.Fatalf("events = %v", got)
	}
}

func TestStopComponents_Timeout(t *testing.T) {
	slow := newFake(&recorder{}, "Slow")
	slow.stopBlock = make(chan struct{})
	defer close(slow.stopBlock)

	d := newTestDaemon(t)
	err := d.stopComponents([]Component{slow}, 20*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "shutdown timeout") {
		t.Fatalf("stopComponents() error = %v, want timeout", err)
	}
}

type nilHealth struct{ *fakeComponent }

func (nilHealth) Health(context.Context) (*ComponentHealth, error) { return nil, nil }

func TestComponentErrors(t *testing.T) {
	rec := &recorder{}
	ok := newFake(rec, "Healthy")
	failing := newFake(rec, "Failing")
	failing.setHealth(Unhealthy("Failing", errors.New("disk full")))
	silent := newFake(rec, "Silent")
	silent.setHealth(&ComponentHealth{Name: "Silent"})
	erroring := newFake(rec, "Erroring")
	erroring.healthErr = errors.New("probe failed")
	empty := nilHealth{newFake(rec, "Empty")}

	d := newTestDaemon(t, ok, failing, silent, erroring, empty)
	errs := d.ComponentErrors()

	if len(errs) != 5 {
		t.Fatalf("ComponentErrors() = %d entries, want 5", len(errs))
	}
	if errs["Healthy"] != nil {
		t.Fatalf("Healthy error = %v, want nil", errs["Healthy"])
	}
	if errs["Failing"] == nil || errs["Failing"].Error() != "disk full" {
		t.Fatalf("Failing error = %v", errs["Failing"])
	}
	if errs["Silent"] == nil || errs["Silent"].Error() != "unhealthy" {
		t.Fatalf("Silent error = %v", errs["Silent"])
	}
	if errs["Erroring"] == nil || errs["Erroring"].Error() != "probe failed" {
		t.Fatalf("Erroring error = %v", errs["Erroring"])
	}
	if errs["Empty"] == nil {
		t.Fatal("a component reporting no health should be unhealthy")
	}
}

func TestObserveHealth_ReportsTransitions(t *testing.T) {
	comp := newFake(&recorder{}, "Reminder")
	d := newTestDaemon(t, comp)
	last := make(map[string]bool)

	if changed := d.observeHealth(last); len(changed) != 0 {
		t.Fatalf("first healthy check reported %v", changed)
	}

	comp.setHealth(Unhealthy("Reminder", errors.New("stuck")))
	if changed := d.observeHealth(last); !reflect.DeepEqual(changed, []string{"Reminder"}) {
		t.Fatalf("changed = %v, want [Reminder]", changed)
	}
	if changed := d.observeHealth(last); len(changed) != 0 {
		t.Fatalf("repeated unhealthy check reported %v", changed)
	}

	comp.setHealth(Healthy("Reminder"))
	if changed := d.observeHealth(last); !reflect.DeepEqual(changed, []string{"Reminder"}) {
		t.Fatalf("recovery changed = %v, want [Reminder]", changed)
	}
}
