package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/dotstim/pkg/config"
	"github.com/matzehuels/dotstim/pkg/pipeline"
	"github.com/matzehuels/dotstim/pkg/store"
)

func writeJobFile(t *testing.T, dir string) string {
	t.Helper()
	job := fmt.Sprintf(`
count   = 5
workers = 2
seed    = 200
output  = '%s/{{printf "%%02d" .Index}}.png'
records = '%s/manifest.jsonl'
write_layout = true

[dots]
number_of_dots    = 10
total_dot_area    = 4000
desired_hull_area = 60000

[canvas]
supersample = 2
`, filepath.ToSlash(dir), filepath.ToSlash(dir))
	path := filepath.Join(dir, "job.toml")
	if err := os.WriteFile(path, []byte(job), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeJobFile(t, dir)

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"batch", "-c", jobPath, "--no-tui", "--no-cache", "--count", "3"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("batch: %v", err)
	}

	for i := range 3 {
		for _, ext := range []string{"png", "json"} {
			if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("%02d.%s", i, ext))); err != nil {
				t.Errorf("image %d: %v", i, err)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "03.png")); !os.IsNotExist(err) {
		t.Error("--count should override the job file")
	}

	seeds := map[uint64]bool{}
	err := store.ReadJSONL(filepath.Join(dir, "manifest.jsonl"), func(r store.Record) bool {
		seeds[r.Seed] = true
		if !strings.HasSuffix(r.Path, fmt.Sprintf("%02d.png", r.Index)) {
			t.Errorf("record %d path = %q", r.Index, r.Path)
		}
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if !seeds[200+uint64(i)] {
			t.Errorf("no record for seed %d", 200+i)
		}
	}
}

func TestPersistUsesRecordID(t *testing.T) {
	dir := t.TempDir()
	job, err := config.Parse([]byte(fmt.Sprintf("output = '%s/{{.ID}}.png'", filepath.ToSlash(dir))))
	if err != nil {
		t.Fatal(err)
	}
	records, err := store.NewJSONLStore(filepath.Join(dir, "m.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer records.Close()

	opts := smallCLIOptions()
	runner := pipeline.NewRunner(nil, nil, newLogger(io.Discard, LogInfo))
	res, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	jr := &pipeline.JobResult{Job: pipeline.Job{Index: 4, Seed: opts.Seed, Options: opts}, Result: res}
	if err := newPersister(job, records).persist(context.Background(), jr); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(jr.Paths) != 1 {
		t.Fatalf("paths = %v", jr.Paths)
	}

	got, err := records.Get(context.Background(), mustRecordID(t, filepath.Join(dir, "m.jsonl")))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, got.ID.String()+".png"); got.Path != want || jr.Paths[0] != want {
		t.Errorf("record path %q, written %q, want %q", got.Path, jr.Paths[0], want)
	}
}

func smallCLIOptions() pipeline.Options {
	opts := pipeline.Options{Dots: 10, TotalArea: 4000, HullArea: 60000, Seed: 3}
	opts.Render.Supersample = 2
	return opts
}

func mustRecordID(t *testing.T, path string) (id uuid.UUID) {
	t.Helper()
	n := 0
	if err := store.ReadJSONL(path, func(r store.Record) bool {
		id = r.ID
		n++
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("%d records, want 1", n)
	}
	return id
}

func TestBatchCommandInvalidJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	if err := os.WriteFile(path, []byte("cuont = 3"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"batch", "-c", path, "--no-tui", "--no-cache"})
	root.SetErr(io.Discard)
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Error("unknown key should fail")
	}
}
