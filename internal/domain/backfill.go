package domain

// Outcome is the terminal state of a record after one backfill pass.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeAlreadyOK   Outcome = "already_ok"
	OutcomeMigrated    Outcome = "migrated"
	OutcomeRetriggered Outcome = "retriggered"
	OutcomeErrored     Outcome = "errored"

	// Simulation outcomes: the action that a committed run would have taken.
	OutcomePlannedMigration Outcome = "planned_migration"
	OutcomePlannedRetrigger Outcome = "planned_retrigger"
)

// BackfillSummary aggregates outcomes over a sweep. Retriggered is a subset of Success,
// so Processed == Success + Skipped + Errors + AlreadyOK + Planned.
type BackfillSummary struct {
	Processed   int `json:"processed"`
	Success     int `json:"success"`
	Skipped     int `json:"skipped"`
	Errors      int `json:"errors"`
	Retriggered int `json:"retriggered"`
	AlreadyOK   int `json:"already_ok"`
	Planned     int `json:"planned"`
}

// Record counts a single record's outcome.
func (s *BackfillSummary) Record(outcome Outcome) {
	s.Processed++
	switch outcome {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeAlreadyOK:
		s.AlreadyOK++
	case OutcomeMigrated:
		s.Success++
	case OutcomeRetriggered:
		s.Success++
		s.Retriggered++
	case OutcomeErrored:
		s.Errors++
	case OutcomePlannedMigration, OutcomePlannedRetrigger:
		s.Planned++
	}
}
