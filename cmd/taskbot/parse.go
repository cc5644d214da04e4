package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskbot/internal/task/timeparse"
)

func parseCmd() *cobra.Command {
	var (
		tz      string
		asJSON  bool
		nowFlag string
	)
	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Resolve a time phrase the way the bot would",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := time.Local
			if tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("--tz: %w", err)
				}
				loc = l
			}
			now := time.Now().In(loc)
			if nowFlag != "" {
				t, err := time.ParseInLocation(time.RFC3339, nowFlag, loc)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				now = t
			}

			text := strings.Join(args, " ")
			res := timeparse.Parse(text, now)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Input       string     `json:"input"`
					Description string     `json:"description"`
					At          *time.Time `json:"at,omitempty"`
					Matcher     string     `json:"matcher,omitempty"`
				}{text, res.Description, res.At, res.Matcher})
			}
			if !res.Resolved() {
				fmt.Fprintf(out, "no time found in %q\n", text)
				return nil
			}
			fmt.Fprintf(out, "%s  (matcher %s)\n", res.At.Format(time.RFC1123), res.Matcher)
			fmt.Fprintf(out, "task text: %s\n", res.Description)
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "", "IANA timezone (default: local)")
	cmd.Flags().StringVar(&nowFlag, "now", "", "reference time, RFC3339")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
