package main

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/mindatlas/internal/domain"
)

func setupCLI(t *testing.T) func(args ...string) error {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MINDATLAS_CONFIG", "")
	t.Setenv("MINDATLAS_PLATFORM", "web")
	t.Setenv("MINDATLAS_PREFS_BACKEND", "file")
	t.Setenv("MINDATLAS_LOG_LEVEL", "error")

	return func(args ...string) error {
		root := newRootCmd()
		root.SetArgs(append(args, "--data-dir", dir))
		return root.Execute()
	}
}

func TestRealJourneyAcrossCommands(t *testing.T) {
	run := setupCLI(t)

	require.NoError(t, run("journey", "start", "--concerns", "anxiety,work"))
	require.NoError(t, run("journey", "update", "--thought", "I will fail the exam"))
	require.NoError(t, run("journey", "update", "-e", "anxious:4"))
	require.NoError(t, run("journey", "update", "--path", "real",
		"--situation", "The exam is next week and I have not started"))
	require.NoError(t, run("journey", "update", "--origin", "me"))
	require.NoError(t, run("journey", "update", "-a", "Study two hours a day@2026-11-01"))
	require.NoError(t, run("journey", "update", "--belief-before", "4", "--belief-after", "7"))
	require.NoError(t, run("journey", "complete"))

	a, err := getApp(context.Background())
	require.NoError(t, err)
	defer a.close()
	ctx := context.Background()

	journeys, err := a.repo.GetCompletedJourneys(ctx, 0, 0, domain.Filters{})
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	j := journeys[0]
	assert.Equal(t, domain.PathReal, j.PathType)
	assert.Equal(t, "I will fail the exam", j.ThoughtText)
	assert.Equal(t, domain.SentimentNeutral, j.Sentiment)
	require.Len(t, j.Emotions, 1)
	assert.Equal(t, "anxious", j.Emotions[0].Type)
	assert.Equal(t, 3, j.Emotions[0].CapturedAtStep)
	require.Len(t, j.ActionItems, 1)
	assert.Equal(t, "Study two hours a day", j.ActionItems[0].Text)
	require.NotNil(t, j.Reevaluation)
	assert.True(t, j.Reevaluation.FeelsBetter())

	checkIns, err := a.analytics.AllCheckIns(ctx)
	require.NoError(t, err)
	require.Len(t, checkIns, 1)
	assert.Equal(t, []string{"anxiety", "work"}, checkIns[0].Concerns)

	recovered, err := a.machine.LoadRecoverable(ctx)
	require.NoError(t, err)
	assert.False(t, recovered)
}

func TestDraftSaveAndResume(t *testing.T) {
	run := setupCLI(t)

	require.NoError(t, run("journey", "start", "-c", "personal_growth"))
	require.NoError(t, run("journey", "update", "--thought", "I never finish anything"))
	require.NoError(t, run("journey", "save"))
	require.NoError(t, run("journey", "cancel"))

	assert.ErrorIs(t, run("journey", "update", "--notes", "x"), domain.ErrNoActiveJourney)

	require.NoError(t, run("journey", "resume"))
	require.NoError(t, run("journey", "update", "--path", "emotional"))

	a, err := getApp(context.Background())
	require.NoError(t, err)
	defer a.close()

	_, err = a.machine.LoadRecoverable(context.Background())
	require.NoError(t, err)
	cur := a.machine.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "I never finish anything", cur.ThoughtText)
	assert.Equal(t, domain.PathEmotional, cur.PathType)
	assert.Equal(t, 4, cur.CurrentStep)
	assert.Equal(t, domain.SentimentPositive, cur.Sentiment)
}

func TestUpdateRejectsShortText(t *testing.T) {
	run := setupCLI(t)

	require.NoError(t, run("journey", "start", "-c", "stress"))
	assert.Error(t, run("journey", "update", "--situation", "too short"))
	assert.Error(t, run("journey", "update", "--transformed", "meh"))
	assert.Error(t, run("journey", "update", "-e", "sad:9"))
	assert.Error(t, run("journey", "start"))
}

func TestParseEmotion(t *testing.T) {
	e, err := parseEmotion("Fear: 3", 4)
	require.NoError(t, err)
	assert.Equal(t, domain.Emotion{Type: "fear", Intensity: 3, CapturedAtStep: 4}, e)

	for _, bad := range []string{"fear", ":3", "fear:0", "fear:6", "fear:x"} {
		_, err := parseEmotion(bad, 1)
		assert.Error(t, err, bad)
	}
}

func TestParseAction(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	item, err := parseAction("Call the bank", now)
	require.NoError(t, err)
	assert.Equal(t, "Call the bank", item.Text)
	assert.Nil(t, item.TargetDate)
	assert.Equal(t, now, item.CreatedAt)

	item, err = parseAction("Call the bank @ 2026-03-05", now)
	require.NoError(t, err)
	assert.Equal(t, "Call the bank", item.Text)
	require.NotNil(t, item.TargetDate)
	assert.Equal(t, "2026-03-05", item.TargetDate.Format(dateLayout))

	_, err = parseAction("Call@tomorrow", now)
	assert.Error(t, err)
	_, err = parseAction(" ", now)
	assert.Error(t, err)
}

func TestBuildFilters(t *testing.T) {
	f, err := buildFilters("not-real", "2026-01-01", "2026-01-31", "Sad")
	require.NoError(t, err)
	assert.Equal(t, domain.PathNotReal, f.PathType)
	assert.Equal(t, "sad", f.EmotionType)
	require.NotNil(t, f.StartDate)
	require.NotNil(t, f.EndDate)
	assert.Equal(t, 24*31*time.Hour-time.Millisecond, f.EndDate.Sub(*f.StartDate))

	f, err = buildFilters("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.Filters{}, f)

	_, err = buildFilters("maybe", "", "", "")
	assert.Error(t, err)
	_, err = buildFilters("", "01/02/2026", "", "")
	assert.Error(t, err)
}

func TestBuildPatchMergesHabit(t *testing.T) {
	cur := &domain.Journey{
		ThoughtText: "Nobody likes me",
		Habit:       &domain.Habit{Description: "Journal", Frequency: domain.FrequencyWeekly},
	}
	set := map[string]bool{"reminder": true}
	p, err := buildPatch(func(name string) bool { return set[name] }, cur, updateFlags{reminder: "07:30"})
	require.NoError(t, err)
	require.NotNil(t, p.Habit)
	assert.Equal(t, "Journal", p.Habit.Description)
	assert.Equal(t, domain.FrequencyWeekly, p.Habit.Frequency)
	assert.True(t, p.Habit.ReminderEnabled)
	assert.Equal(t, "07:30", p.Habit.ReminderTime)

	set = map[string]bool{"transformed": true}
	p, err = buildPatch(func(name string) bool { return set[name] }, cur, updateFlags{transformed: "Some people enjoy my company"})
	require.NoError(t, err)
	require.NotNil(t, p.Transformation)
	assert.Equal(t, "Nobody likes me", p.Transformation.OriginalThought)

	set = map[string]bool{"reminder": true}
	_, err = buildPatch(func(name string) bool { return set[name] }, cur, updateFlags{reminder: "25:00"})
	assert.Error(t, err)
}

func TestEncodeJourney(t *testing.T) {
	completed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	j := &domain.Journey{
		ID:          "j-1",
		CompletedAt: &completed,
		PathType:    domain.PathEmotional,
		ThoughtText: "I am not enough",
		Emotions:    []domain.Emotion{{Type: "sad", Intensity: 2, CapturedAtStep: 3}},
	}

	out, err := encodeJourney(j, "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"thought_text": "I am not enough"`)

	out, err = encodeJourney(j, "yaml")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "EMOTIONAL", doc["path_type"])
	assert.Equal(t, "I am not enough", doc["thought_text"])
	require.Len(t, doc["emotions"], 1)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "two lines", truncate("two\nlines", 10))

	out := truncate("J'ai peur d'échouer à l'examen", 12)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "J'ai peur...", out)

	out = truncate("ééééééééééé", 8)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "ééééé...", out)
}
