// skein-bench is a benchmark and stress test for the skein library. It
// drives the simulated runtime and measures the common editor and
// environment operations.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/phroun/skein"
)

const (
	bufferTokens = 50_000
	editOps      = 10_000
	historyOps   = 5_000
	snapshotOps  = 200
	syncTokens   = 1_500
	spawnOps     = 500
)

type BenchResult struct {
	Name     string
	Duration time.Duration
	Ops      int
	Extra    string
}

func (r BenchResult) String() string {
	if r.Ops > 0 {
		opsPerSec := float64(r.Ops) / r.Duration.Seconds()
		if r.Extra != "" {
			return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec) %s", r.Name, r.Duration.Round(time.Microsecond), r.Ops, opsPerSec, r.Extra)
		}
		return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec)", r.Name, r.Duration.Round(time.Microsecond), r.Ops, opsPerSec)
	}
	return fmt.Sprintf("%-40s %12v  %s", r.Name, r.Duration.Round(time.Microsecond), r.Extra)
}

func main() {
	fmt.Println("Skein Benchmark and Stress Test")
	fmt.Println("================================")
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()

	model := skein.NewSimModel()
	mc, err := model.NewContext(skein.ContextParams{CtxSize: 1 << 16, BatchSize: 512})
	if err != nil {
		fail(err)
	}
	defer mc.Close()

	opts := skein.DefaultEditorOptions()
	opts.HistoryLimit = 0
	ed, err := skein.NewEditor(mc, model, opts)
	if err != nil {
		fail(err)
	}
	defer ed.Close()

	rng := rand.New(rand.NewSource(42))
	var results []BenchResult

	results = append(results, benchFill(ed, rng))
	results = append(results, benchRandomInsert(ed, rng))
	results = append(results, benchRandomDelete(ed, rng))
	results = append(results, benchUndoRedo(ed))
	results = append(results, benchSnapshot(ed))
	results = append(results, benchSync(model))
	results = append(results, benchSpawnDestroy(model))

	fmt.Println()
	fmt.Println("Results")
	fmt.Println("-------")
	for _, r := range results {
		fmt.Println(r)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "bench failed: %v\n", err)
	os.Exit(1)
}

func randomTokens(rng *rand.Rand, n int) []skein.Token {
	toks := make([]skein.Token, n)
	for i := range toks {
		toks[i] = skein.Token(32 + rng.Intn(95))
	}
	return toks
}

func benchFill(ed *skein.Editor, rng *rand.Rand) BenchResult {
	start := time.Now()
	if err := ed.InsertTokens(0, 0, randomTokens(rng, bufferTokens)); err != nil {
		fail(err)
	}
	return BenchResult{Name: "fill buffer", Duration: time.Since(start), Ops: bufferTokens, Extra: "appends"}
}

func benchRandomInsert(ed *skein.Editor, rng *rand.Rand) BenchResult {
	start := time.Now()
	for i := 0; i < editOps; i++ {
		pos := rng.Intn(ed.Len() + 1)
		if err := ed.InsertTokens(pos, 0, randomTokens(rng, 4)); err != nil {
			fail(err)
		}
	}
	return BenchResult{Name: "random insert (4 tokens)", Duration: time.Since(start), Ops: editOps}
}

func benchRandomDelete(ed *skein.Editor, rng *rand.Rand) BenchResult {
	start := time.Now()
	for i := 0; i < editOps; i++ {
		pos := rng.Intn(ed.Len() - 4)
		if err := ed.DeleteTokens(skein.Range{Start: pos, End: pos + 4, Seq: 0}); err != nil {
			fail(err)
		}
	}
	return BenchResult{Name: "random delete (4 tokens)", Duration: time.Since(start), Ops: editOps}
}

func benchUndoRedo(ed *skein.Editor) BenchResult {
	start := time.Now()
	for i := 0; i < historyOps; i++ {
		if err := ed.Undo(); err != nil {
			fail(err)
		}
	}
	for i := 0; i < historyOps; i++ {
		if err := ed.Redo(); err != nil {
			fail(err)
		}
	}
	return BenchResult{Name: "undo/redo round trip", Duration: time.Since(start), Ops: 2 * historyOps}
}

func benchSnapshot(ed *skein.Editor) BenchResult {
	start := time.Now()
	for i := 0; i < snapshotOps; i++ {
		snap, err := ed.CreateSnapshot()
		if err != nil {
			fail(err)
		}
		if err := ed.RestoreSnapshot(snap); err != nil {
			fail(err)
		}
	}
	return BenchResult{
		Name:     "snapshot + restore",
		Duration: time.Since(start),
		Ops:      snapshotOps,
		Extra:    fmt.Sprintf("%d tokens each", ed.Len()),
	}
}

func benchSync(model *skein.SimModel) BenchResult {
	mc, err := model.NewContext(skein.ContextParams{CtxSize: 4096, BatchSize: 512})
	if err != nil {
		fail(err)
	}
	defer mc.Close()
	ed, err := skein.NewEditor(mc, model, skein.DefaultEditorOptions())
	if err != nil {
		fail(err)
	}
	defer ed.Close()

	rng := rand.New(rand.NewSource(7))
	if err := ed.InsertTokens(0, 0, randomTokens(rng, syncTokens)); err != nil {
		fail(err)
	}

	start := time.Now()
	ops := 0
	for i := 0; i < 50; i++ {
		if err := ed.SetToken(rng.Intn(ed.Len()), 0, skein.Token(65)); err != nil {
			fail(err)
		}
		if err := ed.SyncKV(); err != nil {
			fail(err)
		}
		ops++
	}
	return BenchResult{
		Name:     "full kv sync after edit",
		Duration: time.Since(start),
		Ops:      ops,
		Extra:    fmt.Sprintf("%d tokens", syncTokens),
	}
}

func benchSpawnDestroy(model *skein.SimModel) BenchResult {
	env, err := skein.NewEnv(model, skein.EnvConfig{MaxContexts: 4, MaxDepth: 4})
	if err != nil {
		fail(err)
	}
	defer env.Shutdown()

	root, err := env.CreateRoot(skein.ContextConfig{Prompt: "bench root"})
	if err != nil {
		fail(err)
	}

	start := time.Now()
	for i := 0; i < spawnOps; i++ {
		child, err := env.SpawnChild(root, skein.ContextConfig{Share: skein.ShareTokensCopy})
		if err != nil {
			fail(err)
		}
		if err := env.Destroy(child); err != nil {
			fail(err)
		}
	}
	return BenchResult{Name: "spawn + destroy child", Duration: time.Since(start), Ops: spawnOps, Extra: "tokens copied"}
}
