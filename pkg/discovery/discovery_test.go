package discovery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	layercfg "github.com/goliatone/go-layercfg"
	"github.com/goliatone/go-layercfg/pkg/discovery"
)

const layersDir = "../../testdata/layers"

func testPaths() []discovery.SearchPath {
	return []discovery.SearchPath{
		{Dir: filepath.Join(layersDir, "custom"), Type: layercfg.LayerTypeCustom},
		{Dir: filepath.Join(layersDir, "explicit"), Type: layercfg.LayerTypeExplicit},
		{Dir: filepath.Join(layersDir, "implicit"), Type: layercfg.LayerTypeImplicit},
		{Dir: filepath.Join(layersDir, "does-not-exist"), Type: layercfg.LayerTypeImplicit},
	}
}

func TestScanBuildsCatalogAndReportsFailures(t *testing.T) {
	result, err := discovery.NewScanner(discovery.WithConcurrency(2)).Scan(context.Background(), testPaths()...)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Catalog.Len() != 4 {
		t.Fatalf("expected 4 layers, got %d", result.Catalog.Len())
	}
	for _, name := range []string{
		"VK_LAYER_KHRONOS_validation",
		"VK_LAYER_LUNARG_api_dump",
		"VK_LAYER_LUNARG_device_simulation",
		"VK_LAYER_LUNARG_screenshot",
	} {
		if _, ok := result.Catalog.Find(name); !ok {
			t.Fatalf("expected %s in catalog", name)
		}
	}
	if len(result.Failures) != 1 || filepath.Base(result.Failures[0].Path) != "broken.json" {
		t.Fatalf("expected broken.json failure, got %+v", result.Failures)
	}
	var schemaErr *layercfg.SchemaError
	if !errors.As(result.Err(), &schemaErr) || schemaErr.Type != "slider" {
		t.Fatalf("expected SchemaError for slider, got %v", result.Err())
	}

	layer, _ := result.Catalog.Find("VK_LAYER_LUNARG_device_simulation")
	if layer.Type != layercfg.LayerTypeImplicit {
		t.Fatalf("expected implicit type, got %v", layer.Type)
	}
	sources := result.Catalog.Sources()
	if sources[0].Type != layercfg.LayerTypeCustom {
		t.Fatalf("expected custom source first, got %+v", sources[0])
	}
}

func TestScanSameTypePathsGetDistinctPriorities(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	data, err := os.ReadFile(filepath.Join(layersDir, "explicit", "VkLayer_api_dump.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	for _, dir := range []string{first, second} {
		if err := os.WriteFile(filepath.Join(dir, "api_dump.json"), data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	result, err := discovery.NewScanner().Scan(context.Background(),
		discovery.SearchPath{Dir: first, Type: layercfg.LayerTypeExplicit},
		discovery.SearchPath{Dir: second, Type: layercfg.LayerTypeExplicit},
	)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	trace := result.Catalog.Trace("VK_LAYER_LUNARG_api_dump")
	if len(trace) != 2 {
		t.Fatalf("expected two providers, got %d", len(trace))
	}
	if trace[0].Source.Name != first {
		t.Fatalf("expected first path to win, got %s", trace[0].Source.Name)
	}
	layer, _ := result.Catalog.Find("VK_LAYER_LUNARG_api_dump")
	if filepath.Dir(layer.LayerPath) != first {
		t.Fatalf("expected layer from %s, got %s", first, layer.LayerPath)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := discovery.NewScanner().Scan(ctx, testPaths()...); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSearchPathsDedupe(t *testing.T) {
	paths := discovery.NewSearchPaths()
	if !paths.Add("/opt/layers", layercfg.LayerTypeCustom) {
		t.Fatalf("expected first add to change list")
	}
	if paths.Add("/opt/layers/", layercfg.LayerTypeCustom) {
		t.Fatalf("expected cleaned duplicate to be ignored")
	}
	paths.Add("/usr/share/vulkan/explicit_layer.d", layercfg.LayerTypeExplicit)
	if got := paths.Custom(); len(got) != 1 || got[0] != "/opt/layers" {
		t.Fatalf("unexpected custom paths %v", got)
	}
	if !paths.Remove("/opt/layers") || paths.Len() != 1 {
		t.Fatalf("expected removal, got %d paths", paths.Len())
	}
	if paths.Remove("/opt/layers") {
		t.Fatalf("expected second removal to be a no-op")
	}
}

func TestWatcherDebouncesManifestChanges(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	watcher, err := discovery.NewWatcher(discovery.WatcherConfig{
		Paths:    []discovery.SearchPath{{Dir: dir, Type: layercfg.LayerTypeCustom}},
		Debounce: 50 * time.Millisecond,
		OnChange: func(context.Context) { calls.Add(1) },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(dir, "layer.json"), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one debounced callback, got %d", got)
	}
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	if _, err := discovery.NewWatcher(discovery.WatcherConfig{}); err == nil {
		t.Fatalf("expected error without OnChange")
	}
}
