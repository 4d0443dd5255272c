package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
	"github.com/lemonberrylabs/keypad-calc/pkg/tape"
)

func newPressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "press <key>...",
		Short: "Press keys on a fresh calculator and print the display",
		Long: `Press keys on a fresh calculator. Each argument is a key label
such as "7", "×", "+/-", "C" or "⌫", or a run of single-character keys
such as "12+3=".`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPress,
	}
	cmd.Flags().Bool("trace", false, "Print the display after every key")
	return cmd
}

// parseArgs maps each argument to events, trying it as one label first.
func parseArgs(args []string) ([]editor.Event, []string, error) {
	var events []editor.Event
	var labels []string
	for _, arg := range args {
		if ev, err := editor.ParseKey(arg); err == nil {
			events = append(events, ev)
			labels = append(labels, strings.TrimSpace(arg))
			continue
		}
		evs, err := editor.SplitKeys(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		for _, ev := range evs {
			events = append(events, ev)
			labels = append(labels, ev.String())
		}
	}
	return events, labels, nil
}

func runPress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	events, labels, err := parseArgs(args)
	if err != nil {
		return err
	}
	trace, _ := cmd.Flags().GetBool("trace")

	ed, f := cfg.Editor(), cfg.Formatter()
	out := cmd.OutOrStdout()
	var s editor.State
	for i, ev := range events {
		s = ed.Apply(s, ev)
		if trace {
			fmt.Fprintf(out, "%-4s %s\n", labels[i], f.Display(s))
		}
	}
	if !trace {
		fmt.Fprintln(out, f.Display(s))
	}
	return nil
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <dir>",
		Short: "Replay every tape in a directory and check its expected display",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
	cmd.Flags().BoolP("verbose", "v", false, "Print the display after every key")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tapes, err := tape.LoadDir(args[0])
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	out := cmd.OutOrStdout()
	failed := 0
	for _, t := range tapes {
		res := t.Run(cfg.Editor(), cfg.Formatter())
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
			failed++
		}
		if res.Expect != "" && !res.Passed {
			fmt.Fprintf(out, "%s %s: %q, want %q\n", status, res.Name, res.Display, res.Expect)
		} else {
			fmt.Fprintf(out, "%s %s: %q\n", status, res.Name, res.Display)
		}
		if verbose {
			for _, step := range res.Steps {
				fmt.Fprintf(out, "    %-4s %s\n", step.Key, step.Display)
			}
		}
	}

	fmt.Fprintf(out, "%d tape(s), %d failed\n", len(tapes), failed)
	if failed > 0 {
		return fmt.Errorf("%d tape(s) failed", failed)
	}
	return nil
}
