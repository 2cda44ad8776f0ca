package models

import (
	"time"

	id "kycflow/pkg/domain"
)

// TotalSteps is fixed: every pass runs the same four stages.
const TotalSteps = 4

// StepIndex identifies one of the four workflow stages (1-based).
type StepIndex int

const (
	StepPreReview    StepIndex = 1
	StepJuniorReview StepIndex = 2
	StepSeniorReview StepIndex = 3
	StepFinalSignOff StepIndex = 4
)

var stepNames = [TotalSteps]string{
	"automated pre-review",
	"junior review",
	"senior review",
	"final sign-off",
}

func (i StepIndex) Valid() bool { return i >= StepPreReview && i <= StepFinalSignOff }

// IsManual reports whether the stage needs a human verdict.
func (i StepIndex) IsManual() bool { return i > StepPreReview && i.Valid() }

func (i StepIndex) IsLast() bool { return i == StepFinalSignOff }

func (i StepIndex) Name() string {
	if !i.Valid() {
		return "unknown"
	}
	return stepNames[i-1]
}

// StepStatus is the state of one workflow step.
type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepInProgress StepStatus = "IN_PROGRESS"
	StepCompleted  StepStatus = "COMPLETED"
	StepRejected   StepStatus = "REJECTED"
	StepSkipped    StepStatus = "SKIPPED"
)

// IsFinished reports whether the step has stopped accepting work.
func (s StepStatus) IsFinished() bool {
	return s == StepCompleted || s == StepRejected || s == StepSkipped
}

// WorkflowStep is one stage of a pass. Methods return modified copies.
type WorkflowStep struct {
	Number             StepIndex
	Status             StepStatus
	AssignedReviewerID *id.ReviewerID
	ActualReviewerID   *id.ReviewerID
	Result             ReviewResult
	Comment            string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	EscalatedAt        *time.Time
	ProcessingMinutes  int
	NeedsAttention     bool
	AttentionReason    string
}

// RequiresManualIntervention reports whether the stage is human-reviewed.
func (s WorkflowStep) RequiresManualIntervention() bool { return s.Number.IsManual() }

// Begin moves the step to IN_PROGRESS.
func (s WorkflowStep) Begin(now time.Time) WorkflowStep {
	s.Status = StepInProgress
	s.StartedAt = &now
	return s
}

// Complete finishes the step successfully.
func (s WorkflowStep) Complete(result ReviewResult, reviewer *id.ReviewerID, comment string, now time.Time) WorkflowStep {
	return s.finish(StepCompleted, result, reviewer, comment, now)
}

// Reject finishes the step with a rejection.
func (s WorkflowStep) Reject(result ReviewResult, reviewer *id.ReviewerID, comment string, now time.Time) WorkflowStep {
	return s.finish(StepRejected, result, reviewer, comment, now)
}

// Skip closes a step that the pass no longer needs.
func (s WorkflowStep) Skip(result ReviewResult, comment string, now time.Time) WorkflowStep {
	return s.finish(StepSkipped, result, nil, comment, now)
}

// Flag marks the step as needing operator attention without changing status.
func (s WorkflowStep) Flag(reason string) WorkflowStep {
	s.NeedsAttention = true
	s.AttentionReason = reason
	return s
}

// Escalate flags an overdue step and restarts its timeout clock.
func (s WorkflowStep) Escalate(reason string, now time.Time) WorkflowStep {
	s = s.Flag(reason)
	s.EscalatedAt = &now
	return s
}

// TimerStart is when the current review timeout began: the last escalation,
// or the start of the step.
func (s WorkflowStep) TimerStart() *time.Time {
	if s.EscalatedAt != nil {
		return s.EscalatedAt
	}
	return s.StartedAt
}

func (s WorkflowStep) finish(status StepStatus, result ReviewResult, reviewer *id.ReviewerID, comment string, now time.Time) WorkflowStep {
	s.Status = status
	s.Result = result
	s.ActualReviewerID = reviewer
	s.Comment = comment
	s.CompletedAt = &now
	if s.StartedAt != nil {
		s.ProcessingMinutes = int(now.Sub(*s.StartedAt).Minutes())
	}
	return s
}

// Steps is the fixed four-slot step array of one pass.
type Steps [TotalSteps]WorkflowStep

// NewSteps returns the four PENDING steps that open a pass.
func NewSteps() Steps {
	var steps Steps
	for i := range steps {
		steps[i] = WorkflowStep{Number: StepIndex(i + 1), Status: StepPending}
	}
	return steps
}

// At returns step i. Invalid indexes yield the zero step.
func (s Steps) At(i StepIndex) WorkflowStep {
	if !i.Valid() {
		return WorkflowStep{}
	}
	return s[i-1]
}

// With returns a copy with step i replaced.
func (s Steps) With(i StepIndex, step WorkflowStep) Steps {
	if i.Valid() {
		step.Number = i
		s[i-1] = step
	}
	return s
}

// SkipFrom closes every PENDING step from i onwards.
func (s Steps) SkipFrom(i StepIndex, now time.Time) Steps {
	for ; i.Valid(); i++ {
		if s[i-1].Status == StepPending {
			s[i-1] = s[i-1].Skip("", "", now)
		}
	}
	return s
}

// Created reports whether the pass has step rows yet.
func (s Steps) Created() bool {
	return s[0].Number == StepPreReview
}
