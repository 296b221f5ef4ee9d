package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/mirrord/internal/config"
	"git.home.luguber.info/inful/mirrord/internal/schedule"
)

// ValidateCmd implements the 'validate' command: load the config and print
// the next occurrences of each schedule, so a rule that never fires again is
// visible before deployment instead of hiding behind the runtime fallback.
type ValidateCmd struct {
	Count int `short:"n" help:"Number of upcoming run times to show per schedule" default:"3"`
}

func (v *ValidateCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	files := 0
	for _, m := range cfg.Mirrors {
		files += len(m)
	}
	fmt.Printf("Configuration OK: %d schedule(s), %d categor(ies), %d file(s)\n",
		len(cfg.Schedules), len(cfg.Mirrors), files)

	now := time.Now()
	for _, expr := range cfg.Schedules {
		rule, err := schedule.Parse(expr)
		if err != nil {
			// Load already validated; unreachable in practice.
			return err
		}
		fmt.Printf("schedule %q:\n", expr)
		after := now
		for i := 0; i < v.Count; i++ {
			next := rule.Next(after)
			if next.IsZero() {
				fmt.Println("  (no future occurrence)")
				break
			}
			fmt.Printf("  %s\n", next.Format(time.RFC3339))
			after = next
		}
	}
	return nil
}
