package limpet

import (
	"strings"
	"testing"
)

// badPathRecord declares a path binding without implementing PathField.
type badPathRecord struct {
	P string `upload:"path"`
}

// oddTagRecord declares a binding the pipeline does not know.
type oddTagRecord struct {
	X string `upload:"banana"`
}

// dupRecord declares the path binding twice.
type dupRecord struct {
	A string `upload:"path"`
	B string `upload:"path"`
}

func (d *dupRecord) UploadPath() string        { return d.A }
func (d *dupRecord) SetUploadPath(path string) { d.A = path }

// plainRecord has no bindings at all.
type plainRecord struct {
	ID string `db:"id"`
}

func TestConfigure_DiscoversBindings(t *testing.T) {
	l, _ := newTestListener(t)

	cfg, err := Configure[photoRecord](l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.pathField != "Path" {
		t.Errorf("pathField: got %s, want Path", cfg.pathField)
	}
	if cfg.nameField != "Name" {
		t.Errorf("nameField: got %s, want Name", cfg.nameField)
	}
	if cfg.typeField != "Type" {
		t.Errorf("typeField: got %s, want Type", cfg.typeField)
	}
	if cfg.sizeField != "Size" {
		t.Errorf("sizeField: got %s, want Size", cfg.sizeField)
	}
	if !strings.HasSuffix(cfg.typeName, "photoRecord") {
		t.Errorf("typeName: got %s, want *.photoRecord", cfg.typeName)
	}
}

func TestConfigure_Options(t *testing.T) {
	l, _ := newTestListener(t)
	namer := RandomNamer{}

	cfg, err := Configure[photoRecord](l,
		WithDir("/data/photos"),
		WithMaxSize(1<<20),
		WithAllowed("image/jpeg", "image/png"),
		WithDenied("image/gif"),
		WithNamer(namer),
		WithOverwrite(AppendCounter),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Dir != "/data/photos" {
		t.Errorf("Dir: got %s, want /data/photos", cfg.Dir)
	}
	if cfg.MaxSize != 1<<20 {
		t.Errorf("MaxSize: got %d, want %d", cfg.MaxSize, 1<<20)
	}
	if len(cfg.Allowed) != 2 || cfg.Allowed[0] != "image/jpeg" {
		t.Errorf("Allowed: got %v", cfg.Allowed)
	}
	if len(cfg.Denied) != 1 || cfg.Denied[0] != "image/gif" {
		t.Errorf("Denied: got %v", cfg.Denied)
	}
	if _, ok := cfg.Namer.(RandomNamer); !ok {
		t.Error("expected RandomNamer")
	}
	if cfg.Overwrite != AppendCounter {
		t.Errorf("Overwrite: got %d, want AppendCounter", cfg.Overwrite)
	}
}

func TestConfigure_MissingCapability(t *testing.T) {
	l, _ := newTestListener(t)

	_, err := Configure[badPathRecord](l)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "PathField") {
		t.Errorf("expected mention of PathField, got: %v", err)
	}
}

func TestConfigure_UnknownBinding(t *testing.T) {
	l, _ := newTestListener(t)

	_, err := Configure[oddTagRecord](l)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "banana") {
		t.Errorf("expected mention of the unknown binding, got: %v", err)
	}
}

func TestConfigure_DuplicateBinding(t *testing.T) {
	l, _ := newTestListener(t)

	_, err := Configure[dupRecord](l)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate binding error, got: %v", err)
	}
}

func TestConfigure_NoBindings(t *testing.T) {
	l, _ := newTestListener(t)

	cfg, err := Configure[plainRecord](l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.pathField != "" || cfg.nameField != "" || cfg.typeField != "" || cfg.sizeField != "" {
		t.Errorf("expected no bindings, got %+v", cfg)
	}
}

func TestConfigure_Replaces(t *testing.T) {
	l, _ := newTestListener(t)

	if _, err := Configure[photoRecord](l, WithMaxSize(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg2, err := Configure[photoRecord](l, WithMaxSize(200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.mu.Lock()
	active := l.configFor(&photoRecord{})
	l.mu.Unlock()

	if active != cfg2 {
		t.Error("expected the later configuration to replace the earlier one")
	}
	if active.MaxSize != 200 {
		t.Errorf("MaxSize: got %d, want 200", active.MaxSize)
	}
}
