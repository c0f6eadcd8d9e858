package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/mindatlas/internal/analytics"
	"github.com/pbaille/mindatlas/internal/domain"
)

func checkinsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkins",
		Short: "Look at what you checked in with",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count how often each concern was selected",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.analytics.ConcernStatistics(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range stats {
				label := s.Concern
				if c, ok := analytics.LookupConcern(s.Concern); ok {
					label = c.Label
				}
				fmt.Printf("%4d  %s\n", s.Count, label)
			}
			return nil
		},
	})

	var from, to string
	list := &cobra.Command{
		Use:   "list",
		Short: "List check-ins, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDay(from, false)
			if err != nil {
				return err
			}
			end, err := parseDay(to, true)
			if err != nil {
				return err
			}

			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var checkIns []domain.CheckIn
			if start == nil && end == nil {
				checkIns, err = a.analytics.AllCheckIns(cmd.Context())
			} else {
				lo, hi := time.UnixMilli(0).UTC(), domain.Now()
				if start != nil {
					lo = *start
				}
				if end != nil {
					hi = *end
				}
				checkIns, err = a.analytics.CheckInsBetween(cmd.Context(), lo, hi)
			}
			if err != nil {
				return err
			}

			if len(checkIns) == 0 {
				fmt.Println("No check-ins yet. They are recorded by 'mindatlas journey start'.")
				return nil
			}
			for _, c := range checkIns {
				line := strings.Join(c.Concerns, ", ")
				if c.OtherText != "" {
					line += " (" + truncate(c.OtherText, 40) + ")"
				}
				fmt.Printf("%s  %s\n", c.Timestamp.Local().Format("2006-01-02 15:04"), line)
			}
			return nil
		},
	}
	list.Flags().StringVar(&from, "from", "", "on or after YYYY-MM-DD")
	list.Flags().StringVar(&to, "to", "", "on or before YYYY-MM-DD")
	cmd.AddCommand(list)
	return cmd
}
