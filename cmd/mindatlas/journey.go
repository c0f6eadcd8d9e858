package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/mindatlas/internal/analytics"
	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/journey"
)

func journeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Walk through a thought journey",
	}

	cmd.AddCommand(journeyStartCmd())
	cmd.AddCommand(journeyUpdateCmd())
	cmd.AddCommand(journeyBackCmd())
	cmd.AddCommand(journeyStatusCmd())
	cmd.AddCommand(journeySaveCmd())
	cmd.AddCommand(journeyResumeCmd())
	cmd.AddCommand(journeyCompleteCmd())
	cmd.AddCommand(journeyCancelCmd())
	return cmd
}

// openJourney opens the app and restores the journey left by an earlier
// command, if any.
func openJourney(cmd *cobra.Command) (*app, error) {
	a, err := getApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	if _, err := a.machine.LoadRecoverable(cmd.Context()); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func requireActive(a *app) error {
	if !a.machine.Active() {
		return fmt.Errorf("%w: use 'mindatlas journey start' or 'mindatlas journey resume'", domain.ErrNoActiveJourney)
	}
	return nil
}

func printStep(a *app) {
	p, ok := a.machine.Progress()
	if !ok {
		return
	}
	path := string(p.PathType)
	if path == "" {
		path = "not chosen"
	}
	fmt.Printf("Step %d/%d (%d%%)  page: %s  path: %s\n",
		p.CurrentStep, p.TotalSteps, p.Percent, journey.PageAt(p.CurrentStep, p.PathType), path)
}

func journeyStartCmd() *cobra.Command {
	var concerns []string
	var other string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Check in and begin a new journey",
		Long: "Check in with what is on your mind and begin a new journey.\n\nConcerns: " +
			concernValues(),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			if a.machine.Active() {
				fmt.Printf("(discarding unfinished journey %s)\n", shortID(a.machine.Current().ID))
			}

			checkIn, err := a.analytics.TrackCheckIn(ctx, concerns, other, analytics.SourceJourney)
			if err != nil {
				return err
			}

			id := a.machine.Start()
			sentiment := analytics.DetermineSentiment(checkIn.Concerns)
			if err := a.machine.Update(journey.Patch{Sentiment: &sentiment}); err != nil {
				return err
			}
			if err := a.machine.Advance(ctx); err != nil {
				return err
			}

			fmt.Printf("Started journey: %s (%s)\n", shortID(id), sentiment)
			printStep(a)
			fmt.Println("Next: capture the thought with 'mindatlas journey update --thought ...'")
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&concerns, "concerns", "c", nil, "what is on your mind (comma separated)")
	cmd.Flags().StringVar(&other, "other", "", "free text for the 'other' concern")
	return cmd
}

func concernValues() string {
	values := make([]string, len(analytics.Concerns))
	for i, c := range analytics.Concerns {
		values[i] = c.Value
	}
	return strings.Join(values, ", ")
}

type updateFlags struct {
	path        string
	thought     string
	origin      string
	situation   string
	notes       string
	emotions    []string
	actions     []string
	transformed string
	kind        string
	habit       string
	frequency   string
	reminder    string
	before      int
	after       int
	insights    string
}

func journeyUpdateCmd() *cobra.Command {
	var f updateFlags

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fill in the current page and move to the next one",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireActive(a); err != nil {
				return err
			}

			patch, err := buildPatch(cmd.Flags().Changed, a.machine.Current(), f)
			if err != nil {
				return err
			}
			if err := a.machine.Update(patch); err != nil {
				return err
			}

			if err := a.machine.Advance(cmd.Context()); err != nil {
				return err
			}
			printStep(a)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.path, "path", "", "branch: real, not-real or emotional (set once)")
	fl.StringVar(&f.thought, "thought", "", "the thought you want to work on")
	fl.StringVar(&f.origin, "origin", "", "whose voice the thought is in")
	fl.StringVar(&f.situation, "situation", "", "the situation around the thought")
	fl.StringVar(&f.notes, "notes", "", "free notes")
	fl.StringArrayVarP(&f.emotions, "emotion", "e", nil, "emotion as type:intensity (1-5), repeatable")
	fl.StringArrayVarP(&f.actions, "action", "a", nil, "action item, optionally text@YYYY-MM-DD, repeatable")
	fl.StringVar(&f.transformed, "transformed", "", "the rewritten thought")
	fl.StringVar(&f.kind, "transformation-type", "", "how the thought was rewritten")
	fl.StringVar(&f.habit, "habit", "", "habit to reinforce the new thought")
	fl.StringVar(&f.frequency, "frequency", "daily", "habit frequency: daily, weekly or custom")
	fl.StringVar(&f.reminder, "reminder", "", "habit reminder time HH:MM")
	fl.IntVar(&f.before, "belief-before", 0, "belief in the thought before the plan (0-10)")
	fl.IntVar(&f.after, "belief-after", 0, "belief in the thought after the plan (0-10)")
	fl.StringVar(&f.insights, "insights", "", "what you noticed when reevaluating")
	return cmd
}

// buildPatch turns the flags that were set into a patch against cur
func buildPatch(changed func(name string) bool, cur *domain.Journey, f updateFlags) (journey.Patch, error) {
	var p journey.Patch

	if changed("path") {
		path, err := parsePath(f.path)
		if err != nil {
			return p, err
		}
		p.PathType = &path
	}
	if changed("thought") {
		p.ThoughtText = &f.thought
	}
	if changed("origin") {
		origin, err := parseOrigin(f.origin)
		if err != nil {
			return p, err
		}
		p.ThoughtOrigin = &origin
	}
	if changed("situation") {
		if n := len([]rune(strings.TrimSpace(f.situation))); n < journey.MinSituationLength {
			return p, fmt.Errorf("situation needs at least %d characters, got %d", journey.MinSituationLength, n)
		}
		p.SituationText = &f.situation
	}
	if changed("notes") {
		p.Notes = &f.notes
	}

	if len(f.emotions) > 0 {
		p.Emotions = append([]domain.Emotion{}, cur.Emotions...)
		for _, s := range f.emotions {
			e, err := parseEmotion(s, cur.CurrentStep)
			if err != nil {
				return p, err
			}
			p.Emotions = append(p.Emotions, e)
		}
	}
	if len(f.actions) > 0 {
		p.ActionItems = append([]domain.ActionItem{}, cur.ActionItems...)
		for _, s := range f.actions {
			item, err := parseAction(s, domain.Now())
			if err != nil {
				return p, err
			}
			p.ActionItems = append(p.ActionItems, item)
		}
	}

	if changed("transformed") {
		if n := len([]rune(strings.TrimSpace(f.transformed))); n < journey.MinTransformedThoughtLength {
			return p, fmt.Errorf("transformed thought needs at least %d characters, got %d", journey.MinTransformedThoughtLength, n)
		}
		original := cur.ThoughtText
		if p.ThoughtText != nil {
			original = *p.ThoughtText
		}
		p.Transformation = &domain.Transformation{
			OriginalThought:    original,
			TransformedThought: f.transformed,
			TransformationType: f.kind,
		}
	}

	if changed("habit") || changed("frequency") || changed("reminder") {
		h := domain.Habit{Frequency: domain.FrequencyDaily}
		if cur.Habit != nil {
			h = *cur.Habit
		}
		if changed("habit") {
			h.Description = f.habit
		}
		if changed("frequency") {
			freq, err := parseFrequency(f.frequency)
			if err != nil {
				return p, err
			}
			h.Frequency = freq
		}
		if changed("reminder") {
			at, err := parseReminder(f.reminder)
			if err != nil {
				return p, err
			}
			h.ReminderEnabled, h.ReminderTime = true, at
		}
		if h.Description == "" {
			return p, errors.New("habit description is empty")
		}
		p.Habit = &h
	}

	if changed("belief-before") || changed("belief-after") || changed("insights") {
		var r domain.Reevaluation
		if cur.Reevaluation != nil {
			r = *cur.Reevaluation
		}
		if changed("belief-before") {
			if err := parseRating("belief-before", f.before); err != nil {
				return p, err
			}
			r.OriginalBeliefRating = f.before
		}
		if changed("belief-after") {
			if err := parseRating("belief-after", f.after); err != nil {
				return p, err
			}
			r.ReevaluatedBeliefRating = f.after
		}
		if changed("insights") {
			r.Insights = f.insights
		}
		p.Reevaluation = &r
	}
	return p, nil
}

func journeyBackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Go back one page",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireActive(a); err != nil {
				return err
			}

			if err := a.machine.Retreat(cmd.Context()); err != nil {
				return err
			}
			printStep(a)
			return nil
		},
	}
}

func journeyStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the journey in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if !a.machine.Active() {
				fmt.Println("No journey in progress. Use 'mindatlas journey start' to begin one.")
				return nil
			}
			j := a.machine.Current()
			fmt.Printf("Journey: %s\n", j.ID)
			fmt.Printf("Started: %s\n", j.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			printStep(a)
			printJourney(j)
			return nil
		},
	}
}

func journeySaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the journey in progress as a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireActive(a); err != nil {
				return err
			}

			if err := a.machine.SaveDraft(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Saved draft: %s\n", shortID(a.machine.Current().ID))
			return nil
		},
	}
}

func journeyResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [id]",
		Short: "Continue a saved draft (the latest one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			var draft *domain.Journey
			if len(args) == 0 {
				draft, err = a.repo.GetLatestDraft(ctx)
				if errors.Is(err, domain.ErrNotFound) {
					fmt.Println("No drafts saved.")
					return nil
				}
				if err != nil {
					return err
				}
			} else {
				drafts, err := a.repo.GetDrafts(ctx)
				if err != nil {
					return err
				}
				for i := range drafts {
					if strings.HasPrefix(drafts[i].ID, args[0]) {
						draft = &drafts[i]
						break
					}
				}
				if draft == nil {
					return fmt.Errorf("draft not found: %s", args[0])
				}
			}

			if err := a.machine.ResumeDraft(ctx, *draft); err != nil {
				return err
			}
			fmt.Printf("Resumed draft: %s\n", shortID(draft.ID))
			printStep(a)
			return nil
		},
	}
}

func journeyCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Finish the journey and add it to your history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireActive(a); err != nil {
				return err
			}
			if a.machine.Current().PathType == "" {
				return errors.New("choose a path first with 'mindatlas journey update --path ...'")
			}

			j, err := a.machine.Complete(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Completed journey: %s\n", shortID(j.ID))
			if j.Reevaluation != nil && j.Reevaluation.FeelsBetter() {
				fmt.Println("Reevaluation: feeling better than when you started.")
			}
			return nil
		},
	}
}

func journeyCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abandon the journey in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJourney(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			active := a.machine.Active()
			a.machine.Cancel(cmd.Context())
			if active {
				fmt.Println("Journey cancelled.")
			} else {
				fmt.Println("No journey in progress.")
			}
			return nil
		},
	}
}

func printJourney(j *domain.Journey) {
	if j.Sentiment != "" {
		fmt.Printf("Sentiment: %s\n", j.Sentiment)
	}
	if j.ThoughtText != "" {
		fmt.Printf("Thought:   %s\n", j.ThoughtText)
	}
	if j.ThoughtOrigin != "" {
		fmt.Printf("Origin:    %s\n", j.ThoughtOrigin)
	}
	if j.SituationText != "" {
		fmt.Printf("Situation: %s\n", j.SituationText)
	}
	if j.Notes != "" {
		fmt.Printf("Notes:     %s\n", j.Notes)
	}
	if len(j.Emotions) > 0 {
		fmt.Printf("\nEmotions:\n")
		for _, e := range j.Emotions {
			fmt.Printf("  - %s (%d/5, step %d)\n", e.Type, e.Intensity, e.CapturedAtStep)
		}
	}
	if len(j.ActionItems) > 0 {
		fmt.Printf("\nPlan:\n")
		for _, item := range j.ActionItems {
			mark := " "
			if item.IsCompleted {
				mark = "x"
			}
			if item.TargetDate != nil {
				fmt.Printf("  [%s] %s (by %s)\n", mark, item.Text, item.TargetDate.Format(dateLayout))
			} else {
				fmt.Printf("  [%s] %s\n", mark, item.Text)
			}
		}
	}
	if r := j.Reevaluation; r != nil {
		fmt.Printf("\nBelief: %d -> %d\n", r.OriginalBeliefRating, r.ReevaluatedBeliefRating)
		if r.Insights != "" {
			fmt.Printf("Insights: %s\n", r.Insights)
		}
	}
	if t := j.Transformation; t != nil {
		fmt.Printf("\nTransformed: %s\n", t.TransformedThought)
		if t.TransformationType != "" {
			fmt.Printf("How:         %s\n", t.TransformationType)
		}
	}
	if h := j.Habit; h != nil {
		fmt.Printf("\nHabit: %s (%s)\n", h.Description, strings.ToLower(string(h.Frequency)))
		if h.ReminderEnabled {
			fmt.Printf("Reminder: %s\n", h.ReminderTime)
		}
	}
}
