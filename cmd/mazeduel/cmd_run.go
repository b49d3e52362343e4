package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MJE43/maze-duel/internal/match"
	"github.com/MJE43/maze-duel/internal/scripting"
)

type runOptions struct {
	mazeMaster  string
	adventurers string
	seed        string
	pacing      string
	turns       int
	jsonOut     bool
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play one match between two program files and print the result",
		Long: `Play one match between a Maze Master program and an Adventurers program.

With --pacing stepped, each line read from standard input advances the
match by one transition; end of input stops the match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMatch(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.mazeMaster, "maze-master", "", "Maze Master program file")
	f.StringVar(&o.adventurers, "adventurers", "", "Adventurers program file")
	f.StringVar(&o.seed, "seed", "", "random seed (generated and reported when empty)")
	f.StringVar(&o.pacing, "pacing", "immediate", "immediate, stepped, or delay:<duration>")
	f.IntVar(&o.turns, "turns", 0, "override turns per round")
	f.BoolVar(&o.jsonOut, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("maze-master")
	_ = cmd.MarkFlagRequired("adventurers")
	return cmd
}

// readSource loads a program file; the display name is the file name
// without its extension.
func readSource(role scripting.Role, path string) (scripting.Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return scripting.Source{}, fmt.Errorf("read %s program: %w", role, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return scripting.Source{Role: role, Name: name, Code: string(b)}, nil
}

func (a *app) runMatch(cmd *cobra.Command, o *runOptions) error {
	mmSrc, err := readSource(scripting.RoleMazeMaster, o.mazeMaster)
	if err != nil {
		return err
	}
	advSrc, err := readSource(scripting.RoleAdventurers, o.adventurers)
	if err != nil {
		return err
	}
	pacing, err := match.ParsePacing(o.pacing)
	if err != nil {
		return err
	}
	cfg := a.cfg.Match
	if o.turns > 0 {
		cfg.TurnsPerRound = o.turns
	}

	m, seed, err := match.New(cfg, mmSrc, advSrc, o.seed, a.logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	h := match.Start(ctx, m, pacing)
	if st, ok := pacing.(*match.Stepper); ok {
		go feedSteps(ctx, cmd.InOrStdin(), st, h)
	}

	res, runErr := h.Wait(ctx)
	if errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err := printResult(cmd.OutOrStdout(), res, seed, o.jsonOut); err != nil {
		return err
	}

	var fault *match.InternalFault
	if errors.As(runErr, &fault) {
		return runErr
	}
	return nil
}

// feedSteps advances st once per input line and stops the match at EOF.
func feedSteps(ctx context.Context, in io.Reader, st *match.Stepper, h *match.Handle) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := st.Advance(ctx); err != nil {
			return
		}
	}
	h.Stop()
}

type runOutput struct {
	Seed   string       `json:"seed"`
	Result match.Result `json:"result"`
}

func printResult(w io.Writer, res match.Result, seed string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runOutput{Seed: seed, Result: res})
	}
	fmt.Fprintf(w, "seed:            %s\n", seed)
	fmt.Fprintf(w, "status:          %s\n", res.Status)
	fmt.Fprintf(w, "score:           %d\n", res.Score)
	fmt.Fprintf(w, "mazes completed: %d\n", res.MazesCompleted)
	fmt.Fprintf(w, "maze size:       %d\n", res.MazeSize)
	fmt.Fprintf(w, "turn:            %d\n", res.TurnNumber)
	if res.Reason != "" {
		fmt.Fprintf(w, "disqualified:    %s (%s)\n", res.Who, res.Reason)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "error:           %s\n", res.Error)
	}
	return nil
}
