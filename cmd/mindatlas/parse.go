package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/mindatlas/internal/domain"
)

const dateLayout = "2006-01-02"

// parseEmotion reads "type:intensity", intensity 1 to 5
func parseEmotion(s string, step int) (domain.Emotion, error) {
	name, level, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return domain.Emotion{}, fmt.Errorf("emotion %q: want type:intensity", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(level))
	if err != nil || n < domain.MinIntensity || n > domain.MaxIntensity {
		return domain.Emotion{}, fmt.Errorf("emotion %q: intensity must be %d to %d", s, domain.MinIntensity, domain.MaxIntensity)
	}
	return domain.Emotion{Type: strings.ToLower(name), Intensity: n, CapturedAtStep: step}, nil
}

// parseAction reads "text" or "text@YYYY-MM-DD"
func parseAction(s string, now time.Time) (domain.ActionItem, error) {
	item := domain.ActionItem{CreatedAt: now}
	text, date, ok := strings.Cut(s, "@")
	if ok {
		t, err := time.Parse(dateLayout, strings.TrimSpace(date))
		if err != nil {
			return domain.ActionItem{}, fmt.Errorf("action %q: target date must be %s", s, dateLayout)
		}
		item.TargetDate = &t
	}
	item.Text = strings.TrimSpace(text)
	if item.Text == "" {
		return domain.ActionItem{}, fmt.Errorf("action text is empty")
	}
	return item, nil
}

func parseRating(name string, v int) error {
	if v < domain.MinBeliefRating || v > domain.MaxBeliefRating {
		return fmt.Errorf("%s must be between %d and %d", name, domain.MinBeliefRating, domain.MaxBeliefRating)
	}
	return nil
}

var reminderTime = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func parseReminder(s string) (string, error) {
	if !reminderTime.MatchString(s) {
		return "", fmt.Errorf("reminder %q: want HH:MM", s)
	}
	return s, nil
}

// parseDay reads a date flag. end moves the bound to the last
// millisecond of the day so the range is inclusive.
func parseDay(s string, end bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("date %q: want %s", s, dateLayout)
	}
	if end {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	t = t.UTC()
	return &t, nil
}

func parsePath(s string) (domain.PathType, error) {
	p := domain.PathType(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	if !p.Valid() {
		return "", fmt.Errorf("path %q: want real, not-real or emotional", s)
	}
	return p, nil
}

func parseOrigin(s string) (domain.ThoughtOrigin, error) {
	o := domain.ThoughtOrigin(strings.ToUpper(s))
	switch o {
	case domain.OriginMe, domain.OriginParent, domain.OriginFamily, domain.OriginSchool,
		domain.OriginAuthority, domain.OriginRelationships, domain.OriginOther:
		return o, nil
	}
	return "", fmt.Errorf("origin %q: want me, parent, family, school, authority, relationships or other", s)
}

func parseFrequency(s string) (domain.HabitFrequency, error) {
	f := domain.HabitFrequency(strings.ToUpper(s))
	if !f.Valid() {
		return "", fmt.Errorf("frequency %q: want daily, weekly or custom", s)
	}
	return f, nil
}
