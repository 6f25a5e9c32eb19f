package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEngineOptions(t *testing.T) {
	t.Parallel()
	base := EngineOptions{Workers: 3}
	tests := []struct {
		name    string
		doc     string
		want    EngineOptions
		wantErr bool
	}{
		{name: "empty", doc: "", want: base},
		{name: "workers", doc: "workers: 6\n", want: EngineOptions{Workers: 6}},
		{
			name: "flags",
			doc:  "force_sequential: true\nside_effects: true\nenable_stats: true\n",
			want: EngineOptions{Workers: 3, ForceSequential: true, SideEffects: true, EnableStats: true},
		},
		{name: "negative workers", doc: "workers: -1\n", wantErr: true},
		{name: "unknown key", doc: "threads: 4\n", wantErr: true},
		{name: "bad type", doc: "workers: many\n", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEngineOptions([]byte(tt.doc), base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEngineOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseEngineOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseEngineOptionsZeroWorkers(t *testing.T) {
	t.Parallel()
	got, err := ParseEngineOptions([]byte("workers: 0"), EngineOptions{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got.Workers != DefaultEngineOptions().Workers {
		t.Errorf("Workers = %d, want %d", got.Workers, DefaultEngineOptions().Workers)
	}
}

func TestLoadEngineOptions(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte("workers: 2\nenable_stats: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := LoadEngineOptions(path)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Workers != 2 || !opts.EnableStats {
		t.Errorf("LoadEngineOptions() = %+v", opts)
	}
	if _, err := LoadEngineOptions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
