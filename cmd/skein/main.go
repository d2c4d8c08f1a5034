// Command skein is an interactive token-stream console: it drives a
// skein environment over the simulated runtime, exposing editing,
// inspection, completion, and context-tree commands.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/phroun/skein"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	specialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	genStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type options struct {
	ctxSize     int
	threads     int
	batchSize   int
	gpuLayers   int
	prompt      string
	promptFile  string
	interactive bool
	recursive   bool
	verbose     bool
}

func main() {
	opts := options{}
	root := &cobra.Command{
		Use:   "skein [model-path]",
		Short: "Token-stream editor and recursive context console",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(opts, args)
		},
	}
	f := root.Flags()
	f.IntVarP(&opts.ctxSize, "ctx-size", "c", 2048, "context window size")
	f.IntVarP(&opts.threads, "threads", "t", 4, "runtime threads")
	f.IntVarP(&opts.batchSize, "batch-size", "b", 512, "decode batch size")
	f.IntVarP(&opts.gpuLayers, "gpu-layers", "n", 0, "layers to offload (ignored by the simulated runtime)")
	f.StringVarP(&opts.prompt, "prompt", "p", "", "initial prompt text")
	f.StringVarP(&opts.promptFile, "file", "f", "", "read initial prompt from file")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "interactive console")
	f.BoolVarP(&opts.recursive, "recursive", "r", false, "enable the recursive environment commands")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose environment logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func run(opts options, args []string) error {
	prompt := opts.prompt
	if opts.promptFile != "" {
		data, err := os.ReadFile(opts.promptFile)
		if err != nil {
			return err
		}
		prompt = string(data)
	}

	// A model path selects a real runtime when one is linked in; the
	// simulated runtime backs the session otherwise.
	model := skein.NewSimModel()
	if len(args) == 1 && opts.verbose {
		fmt.Println(dimStyle.Render("model path ignored: using simulated runtime"))
	}

	cfg := skein.DefaultEnvConfig()
	cfg.CtxSize = opts.ctxSize
	cfg.BatchSize = opts.batchSize
	cfg.Threads = opts.threads
	cfg.EnableLogging = opts.verbose

	env, err := skein.NewEnv(model, cfg)
	if err != nil {
		return err
	}
	defer env.Shutdown()

	cur, err := env.CreateRoot(skein.ContextConfig{Prompt: prompt})
	if err != nil {
		return err
	}

	if !opts.interactive {
		printBuffer(cur.Editor(), 0, cur.Editor().Len())
		return nil
	}

	console := &console{env: env, cur: cur, recursive: opts.recursive}
	console.loop()
	return nil
}

// console is the interactive session state: the environment, the context
// commands apply to, and the last snapshot taken.
type console struct {
	env       *skein.Env
	cur       *skein.Context
	recursive bool
	snap      *skein.Snapshot
}

func (cl *console) loop() {
	fmt.Println(headerStyle.Render("skein console") + dimStyle.Render("  (help for commands)"))
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render(fmt.Sprintf("[%d]> ", cl.cur.ID())))
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, rest := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return
		}
		if err := cl.dispatch(cmd, rest, line); err != nil {
			fmt.Println(errorStyle.Render("error: ") + err.Error())
		}
	}
}

func (cl *console) dispatch(cmd string, args []string, line string) error {
	ed := cl.cur.Editor()
	switch cmd {
	case "help":
		cl.printHelp()
		return nil

	case "show":
		start, end := 0, ed.Len()
		if len(args) >= 2 {
			var err error
			if start, err = strconv.Atoi(args[0]); err != nil {
				return err
			}
			if end, err = strconv.Atoi(args[1]); err != nil {
				return err
			}
		}
		printBuffer(ed, start, end)
		return nil

	case "showtext":
		text, err := ed.FullText()
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil

	case "insert":
		if len(args) < 2 {
			return fmt.Errorf("usage: insert <pos> <token...>")
		}
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		toks, err := parseTokens(args[1:])
		if err != nil {
			return err
		}
		return ed.InsertTokens(pos, 0, toks)

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: delete <start> <end>")
		}
		start, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		end, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return ed.DeleteTokens(skein.Range{Start: start, End: end, Seq: 0})

	case "replace":
		if len(args) < 3 {
			return fmt.Errorf("usage: replace <start> <end> <token...>")
		}
		start, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		end, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		toks, err := parseTokens(args[2:])
		if err != nil {
			return err
		}
		return ed.ReplaceTokens(skein.Range{Start: start, End: end, Seq: 0}, toks)

	case "set":
		if len(args) != 2 {
			return fmt.Errorf("usage: set <pos> <token>")
		}
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		tok, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return ed.SetToken(pos, 0, skein.Token(tok))

	case "find":
		needle := strings.TrimSpace(strings.TrimPrefix(line, "find"))
		if needle == "" {
			return fmt.Errorf("usage: find <text>")
		}
		hits, err := ed.FindText(needle, 0, 0)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println(dimStyle.Render("no matches"))
			return nil
		}
		for _, pos := range hits {
			fmt.Printf("  match at %d\n", pos)
		}
		return nil

	case "topk":
		k := 10
		if len(args) == 1 {
			var err error
			if k, err = strconv.Atoi(args[0]); err != nil {
				return err
			}
		}
		cands, err := ed.TopK(k)
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render("  token   logit     prob  piece"))
		for _, c := range cands {
			piece, _ := ed.TokenPiece(c.Token)
			fmt.Printf("  %5d  %6.2f  %6.4f  %q\n", c.Token, c.Logit, c.Prob, piece)
		}
		return nil

	case "complete":
		params := skein.DefaultCompletionParams()
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			params.MaxTokens = n
		}
		if cl.cur.State() != skein.StateIdle {
			if err := cl.cur.Reset(); err != nil {
				return err
			}
		}
		out, err := cl.cur.CompleteSync(params)
		if err != nil {
			return err
		}
		fmt.Println(genStyle.Render(out))
		return nil

	case "undo":
		return ed.Undo()

	case "redo":
		return ed.Redo()

	case "snapshot":
		snap, err := ed.CreateSnapshot()
		if err != nil {
			return err
		}
		cl.snap = snap
		fmt.Printf("snapshot %s (%d tokens)\n", snap.ID[:8], len(snap.Tokens))
		return nil

	case "restore":
		if cl.snap == nil {
			return fmt.Errorf("no snapshot taken")
		}
		return ed.RestoreSnapshot(cl.snap)

	case "clear":
		return ed.Clear(0)

	case "export":
		if len(args) != 1 {
			return fmt.Errorf("usage: export <file>")
		}
		data, err := ed.ExportBinary()
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], data, 0o644)

	case "import":
		if len(args) != 1 {
			return fmt.Errorf("usage: import <file>")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return ed.ImportBinary(0, data)

	case "spawn":
		if !cl.recursive {
			return fmt.Errorf("recursive commands disabled (run with -r)")
		}
		prompt := strings.TrimSpace(strings.TrimPrefix(line, "spawn"))
		child, err := cl.env.SpawnChild(cl.cur, skein.ContextConfig{Prompt: prompt})
		if err != nil {
			return err
		}
		cl.cur = child
		fmt.Printf("spawned context %d, now current\n", child.ID())
		return nil

	case "use":
		if len(args) != 1 {
			return fmt.Errorf("usage: use <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		ctx, ok := cl.env.ContextByID(id)
		if !ok {
			return fmt.Errorf("no context %d", id)
		}
		cl.cur = ctx
		return nil

	case "tree":
		cl.env.PrintTree(os.Stdout)
		return nil

	case "info":
		cl.printInfo()
		return nil

	default:
		return fmt.Errorf("unknown command %q (help for commands)", cmd)
	}
}

func (cl *console) printInfo() {
	ed := cl.cur.Editor()
	st := cl.env.Stats()
	fmt.Printf("context %d  %s %s  depth %d\n",
		cl.cur.ID(), cl.cur.Relation(), cl.cur.State(), cl.cur.Depth())
	fmt.Printf("buffer: %d tokens, history %d, kv dirty %v, logits valid %v\n",
		ed.Len(), ed.HistoryLen(), ed.KVDirty(), ed.LogitsValid())
	fmt.Printf("env: %d active, %d created, %d recursions, peak depth %d, %d generated\n",
		st.ActiveContexts, st.ContextsCreated, st.Recursions, st.PeakDepth, st.TokensGenerated)
}

func (cl *console) printHelp() {
	fmt.Print(`buffer:
  show [start end]     list tokens with flags
  showtext             detokenized buffer
  insert <pos> <t...>  insert tokens before pos
  delete <s> <e>       delete range [s, e)
  replace <s> <e> <t...>  replace range
  set <pos> <t>        overwrite one token
  clear                remove all tokens
  undo / redo          walk the history
inspection:
  find <text>          search for text
  topk [k]             next-token candidates
  info                 context and environment status
state:
  snapshot / restore   capture and roll back
  export / import <f>  binary token stream
generation:
  complete [n]         generate up to n tokens
tree (with -r):
  spawn [prompt]       child of the current context
  use <id>             switch current context
  tree                 print the forest
quit
`)
}

func parseTokens(args []string) ([]skein.Token, error) {
	toks := make([]skein.Token, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, err
		}
		toks = append(toks, skein.Token(n))
	}
	return toks, nil
}

func printBuffer(ed *skein.Editor, start, end int) {
	if end > ed.Len() {
		end = ed.Len()
	}
	if start < 0 {
		start = 0
	}
	fmt.Println(headerStyle.Render("   pos  token  flags       piece"))
	for i := start; i < end; i++ {
		info, err := ed.Info(i, 0)
		if err != nil {
			continue
		}
		piece, _ := ed.TokenPiece(info.ID)
		line := fmt.Sprintf("  %4d  %5d  %-10s  %q", i, info.ID, flagString(info.Flags), piece)
		switch {
		case info.Flags.Has(skein.FlagSpecial) || info.Flags.Has(skein.FlagControl):
			line = specialStyle.Render(line)
		case info.Flags.Has(skein.FlagGenerated):
			line = genStyle.Render(line)
		case info.Flags.Has(skein.FlagUserData):
			line = userStyle.Render(line)
		}
		fmt.Println(line)
	}
}

func flagString(f skein.TokenFlags) string {
	var parts []string
	if f.Has(skein.FlagBOS) {
		parts = append(parts, "BOS")
	}
	if f.Has(skein.FlagEOS) {
		parts = append(parts, "EOS")
	}
	if f.Has(skein.FlagSpecial) {
		parts = append(parts, "SPC")
	}
	if f.Has(skein.FlagControl) {
		parts = append(parts, "CTL")
	}
	if f.Has(skein.FlagUserData) {
		parts = append(parts, "USR")
	}
	if f.Has(skein.FlagGenerated) {
		parts = append(parts, "GEN")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}
