package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dusk-indust/stratum/internal/merger"
)

func runMergers(_ context.Context, a *app, args []string) error {
	fs := a.newFlagSet("mergers", "")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, _, err := a.load()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tPATTERN\tMERGER")
	for _, b := range reg.Describe() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Kind, b.Key, b.Merger)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, name := range merger.BuiltinNames() {
		m, err := merger.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "\n%s\n", name)
		prefs := m.Preferences()
		if len(prefs) == 0 {
			fmt.Fprintln(a.stdout, "  (no settings)")
			continue
		}
		for _, pref := range prefs {
			fmt.Fprintf(a.stdout, "  %s (%s, default %v): %s%s\n",
				pref.Name, pref.Type, pref.Default, pref.Description, constraint(pref))
		}
	}
	return nil
}

func constraint(p merger.Preference) string {
	switch {
	case p.Min != nil && p.Max != nil:
		return fmt.Sprintf(" [%d-%d]", *p.Min, *p.Max)
	case len(p.Choices) > 0:
		return fmt.Sprintf(" %v", p.Choices)
	}
	return ""
}
