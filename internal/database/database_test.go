package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bigredeye/essaycheck/internal/models"
)

var istanbul = time.FixedZone("UTC+03:00", 3*60*60)

func openTestDataBase(t *testing.T) *DataBase {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedbacks.db")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal("Failed to open sqlite:", err)
	}
	db, err := newDataBase(gdb, istanbul)
	if err != nil {
		t.Fatal("Failed to init database:", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ticker(start time.Time, step time.Duration) func() time.Time {
	cur := start
	return func() time.Time {
		now := cur
		cur = cur.Add(step)
		return now
	}
}

func band(v float64) *float64 {
	return &v
}

func TestListUnknownUserIsEmpty(t *testing.T) {
	db := openTestDataBase(t)

	feedbacks, err := db.ListUserFeedback(context.Background(), "nobody")
	if err != nil {
		t.Fatal("Failed to list feedback:", err)
	}
	if feedbacks == nil || len(feedbacks) != 0 {
		t.Fatalf("Expected empty non-nil slice, got %#v", feedbacks)
	}
}

func TestAddFeedbackAssignsIDAndTime(t *testing.T) {
	db := openTestDataBase(t)
	db.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	feedback := &models.Feedback{
		ID:             42,
		Username:       "ayse",
		EssayText:      "I has a apple.",
		TaskType:       "Task 2",
		BandOverall:    band(5.0),
		EvaluationText: "Overall Band Score (Band 5.0)",
	}
	if err := db.AddFeedback(context.Background(), feedback); err != nil {
		t.Fatal("Failed to add feedback:", err)
	}
	if feedback.ID == 0 || feedback.ID == 42 {
		t.Fatalf("Expected store-assigned id, got %d", feedback.ID)
	}
	if feedback.CreatedAt.Location() != istanbul || feedback.CreatedAt.Hour() != 12 {
		t.Fatalf("Expected created_at in UTC+3, got %v", feedback.CreatedAt)
	}

	feedbacks, err := db.ListUserFeedback(context.Background(), "ayse")
	if err != nil {
		t.Fatal("Failed to list feedback:", err)
	}
	if len(feedbacks) != 1 {
		t.Fatalf("Expected one record, got %d", len(feedbacks))
	}
	got := feedbacks[0]
	if got.BandOverall == nil || *got.BandOverall != 5.0 {
		t.Fatalf("Invalid overall band: %v", got.BandOverall)
	}
	if got.BandTask != nil || got.BandCoherence != nil || got.BandLexical != nil || got.BandGrammar != nil {
		t.Fatalf("Expected missing bands to stay null: %+v", got)
	}
	if !got.CreatedAt.Equal(feedback.CreatedAt) {
		t.Fatalf("Invalid created_at: %v, expected: %v", got.CreatedAt, feedback.CreatedAt)
	}
}

func TestListUserFeedbackOrderAndFilter(t *testing.T) {
	db := openTestDataBase(t)
	db.now = ticker(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), time.Minute)

	ctx := context.Background()
	for _, row := range []struct {
		user string
		text string
	}{
		{"ayse", "first"},
		{"mehmet", "other"},
		{"ayse", "second"},
		{"ayse", "third"},
	} {
		if err := db.AddFeedback(ctx, &models.Feedback{Username: row.user, EssayText: row.text}); err != nil {
			t.Fatal("Failed to add feedback:", err)
		}
	}

	feedbacks, err := db.ListUserFeedback(ctx, "ayse")
	if err != nil {
		t.Fatal("Failed to list feedback:", err)
	}
	texts := make([]string, 0, len(feedbacks))
	for _, f := range feedbacks {
		texts = append(texts, f.EssayText)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, texts); diff != "" {
		t.Fatalf("Invalid history order (-want +got):\n%s", diff)
	}
}
