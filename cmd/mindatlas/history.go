package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/mindatlas/internal/domain"
)

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage saved drafts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List drafts, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			drafts, err := a.repo.GetDrafts(cmd.Context())
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Println("No drafts yet. Use 'mindatlas journey save' to keep one.")
				return nil
			}
			for _, d := range drafts {
				fmt.Printf("%s  %s  step %d  %s\n",
					shortID(d.ID), d.UpdatedAt.Local().Format("2006-01-02 15:04"), d.CurrentStep, truncate(d.ThoughtText, 50))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			drafts, err := a.repo.GetDrafts(cmd.Context())
			if err != nil {
				return err
			}
			var found *string
			for _, d := range drafts {
				if strings.HasPrefix(d.ID, args[0]) {
					found = &d.ID
					break
				}
			}
			if found == nil {
				return fmt.Errorf("draft not found: %s", args[0])
			}

			if err := a.repo.DeleteDraft(cmd.Context(), *found); err != nil {
				return err
			}
			fmt.Printf("Deleted draft: %s\n", shortID(*found))
			return nil
		},
	})
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse completed journeys",
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyDeleteCmd())
	cmd.AddCommand(historyClearCmd())
	return cmd
}

func historyListCmd() *cobra.Command {
	var (
		path, from, to, emotion string
		limit, offset           int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed journeys, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := buildFilters(path, from, to, emotion)
			if err != nil {
				return err
			}

			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			journeys, err := a.repo.GetCompletedJourneys(cmd.Context(), limit, offset, f)
			if err != nil {
				return err
			}
			if len(journeys) == 0 {
				fmt.Println("No journeys found.")
				return nil
			}
			for _, j := range journeys {
				fmt.Printf("%s  %s  %-9s  %s\n",
					shortID(j.ID), j.CompletedAt.Local().Format("2006-01-02 15:04"), j.PathType, truncate(j.ThoughtText, 50))
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&path, "path", "", "only this path: real, not-real or emotional")
	fl.StringVar(&from, "from", "", "completed on or after YYYY-MM-DD")
	fl.StringVar(&to, "to", "", "completed on or before YYYY-MM-DD")
	fl.StringVar(&emotion, "emotion", "", "only journeys with this emotion")
	fl.IntVarP(&limit, "limit", "n", domain.DefaultPageSize, "number of journeys to show")
	fl.IntVar(&offset, "offset", 0, "journeys to skip")
	return cmd
}

func buildFilters(path, from, to, emotion string) (domain.Filters, error) {
	var f domain.Filters
	var err error
	if path != "" {
		if f.PathType, err = parsePath(path); err != nil {
			return f, err
		}
	}
	if f.StartDate, err = parseDay(from, false); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDay(to, true); err != nil {
		return f, err
	}
	f.EmotionType = strings.ToLower(emotion)
	return f, nil
}

// findCompleted resolves an id prefix against the full history
func findCompleted(a *app, cmd *cobra.Command, prefix string) (*domain.Journey, error) {
	j, err := a.repo.GetJourneyByID(cmd.Context(), prefix)
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for offset := 0; ; offset += 100 {
		page, err := a.repo.GetCompletedJourneys(cmd.Context(), 100, offset, domain.Filters{})
		if err != nil {
			return nil, err
		}
		for _, j := range page {
			if strings.HasPrefix(j.ID, prefix) {
				return a.repo.GetJourneyByID(cmd.Context(), j.ID)
			}
		}
		if len(page) < 100 {
			return nil, fmt.Errorf("journey not found: %s", prefix)
		}
	}
}

func historyShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a completed journey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			j, err := findCompleted(a, cmd, args[0])
			if err != nil {
				return err
			}

			switch output {
			case "json", "yaml":
				out, err := encodeJourney(j, output)
				if err != nil {
					return err
				}
				fmt.Print(out)
				return nil
			case "text":
			default:
				return fmt.Errorf("unknown output %q: want text, json or yaml", output)
			}

			fmt.Printf("ID:        %s\n", j.ID)
			fmt.Printf("Path:      %s\n", j.PathType)
			fmt.Printf("Started:   %s\n", j.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Completed: %s\n", j.CompletedAt.Local().Format("2006-01-02 15:04:05"))
			printJourney(j)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "text, json or yaml")
	return cmd
}

// encodeJourney renders j with its json field names. YAML goes through a
// generic map so both formats share the same keys.
func encodeJourney(j *domain.Journey, format string) (string, error) {
	raw, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode journey: %w", err)
	}
	if format == "json" {
		return string(raw) + "\n", nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("encode journey: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode journey: %w", err)
	}
	return string(out), nil
}

func historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a completed journey and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			j, err := findCompleted(a, cmd, args[0])
			if err != nil {
				return err
			}
			if err := a.repo.DeleteJourney(cmd.Context(), j.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted journey: %s\n", shortID(j.ID))
			return nil
		},
	}
}

func historyClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every completed journey (drafts are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("this deletes your whole history; pass --yes to confirm")
			}

			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.repo.DeleteAllJourneys(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("History cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
