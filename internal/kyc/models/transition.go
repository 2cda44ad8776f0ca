package models

// Transition is the outcome of applying one workflow rule to an application
// snapshot: the next application state plus everything the store must append
// in the same transaction. Events are dispatched only after commit.
type Transition struct {
	Application Application
	Assessment  *RiskAssessment
	Records     []ReviewRecord
	Events      []Event
}
