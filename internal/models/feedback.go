package models

import (
	"time"
)

// Feedback is one evaluation of an essay. Rows are only ever inserted.
type Feedback struct {
	ID       uint   `gorm:"primaryKey"`
	Username string `gorm:"index"`

	EssayText string
	TaskType  string

	BandTask      *float64
	BandCoherence *float64
	BandLexical   *float64
	BandGrammar   *float64
	BandOverall   *float64

	EvaluationText string
	CreatedAt      time.Time `gorm:"index"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}
