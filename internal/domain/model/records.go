package model

import "time"

// LogRecord is one star award from the activity log.
type LogRecord struct {
	EntityID  string    // student id
	Amount    float64   // stars awarded by this entry
	ReasonTag string    // optional reason, e.g. "teamwork"
	Date      time.Time // when the stars were awarded
}

// QualitativeExcellent is the only qualitative trial tier that counts toward
// the academic average; it maps to a fixed 100.
const QualitativeExcellent = "excellent"

// TrialRecord is one assessed trial (test, quiz, ...) for a student.
type TrialRecord struct {
	EntityID        string
	Date            time.Time
	NumericScore    *float64
	MaxScore        *float64
	QualitativeTier string
}

// Class is a competing group of students.
type Class struct {
	ID        string
	Name      string
	AvatarRef string
	League    string
}

// Student is an individual competitor belonging to a class.
type Student struct {
	ID        string
	Name      string
	AvatarRef string
	ClassID   string
	League    string
}
