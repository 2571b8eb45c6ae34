package debugger

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileYieldsEmpty(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Breakpoints) != 0 {
		t.Fatalf("expected empty breakpoints, got %v", cfg.Breakpoints)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbg.yaml")
	cfg := &Config{Breakpoints: []uint32{0x1000, 0x2000}}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(loaded.Breakpoints) != 2 || loaded.Breakpoints[0] != 0x1000 || loaded.Breakpoints[1] != 0x2000 {
		t.Fatalf("got %v, want [0x1000 0x2000]", loaded.Breakpoints)
	}
}

func TestToggleBreakpointAddsThenRemoves(t *testing.T) {
	m := &model{cfg: &Config{}}
	m.toggleBreakpoint(0x42)
	if len(m.cfg.Breakpoints) != 1 {
		t.Fatalf("expected 1 breakpoint after add, got %d", len(m.cfg.Breakpoints))
	}
	m.toggleBreakpoint(0x42)
	if len(m.cfg.Breakpoints) != 0 {
		t.Fatalf("expected 0 breakpoints after toggle-off, got %d", len(m.cfg.Breakpoints))
	}
}
