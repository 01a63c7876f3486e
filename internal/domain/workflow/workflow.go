package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepeatEvery is the cadence unit of a workflow schedule.
type RepeatEvery string

const (
	RepeatHourly RepeatEvery = "hour"
	RepeatDaily  RepeatEvery = "day"
	RepeatWeekly RepeatEvery = "week"
)

// RunVariant separates workflows the scheduler fires from those that only
// run on explicit request.
type RunVariant string

const (
	VariantAuto   RunVariant = "auto"
	VariantManual RunVariant = "manual"
)

// RunOptions describes when a workflow fires, in the owner's terms: a
// 12-hour clock with meridiem and an optional weekday for weekly cadence.
// Manual-variant workflows carry no cadence and never fire on their own.
type RunOptions struct {
	RunVariant  RunVariant  `json:"run_variant,omitempty"`
	RepeatEvery RepeatEvery `json:"repeat_every,omitempty"`
	Hour        int         `json:"hour"`
	Minute      int         `json:"minute"`
	Meridiem    string      `json:"meridiem,omitempty"`
	WeekDay     string      `json:"week_day,omitempty"`
}

// Workflow is a stored automation: a prompt the scheduler replays on a
// cadence. Soft-deleted workflows never run and never list.
type Workflow struct {
	ID         uuid.UUID
	UserID     uint
	Name       string
	Prompt     string
	Active     bool
	RunOptions RunOptions
	LastRunAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WorkflowPatch carries the mutable fields of an explicit update.
type WorkflowPatch struct {
	Name       *string
	Prompt     *string
	Active     *bool
	RunOptions *RunOptions
}

// RunStatus tracks one execution of a workflow.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
)

// Run is the audit record of one workflow execution. ConversationID points
// at the conversation the turn produced and is set on completion.
type Run struct {
	ID             uuid.UUID
	WorkflowID     uuid.UUID
	UserID         uint
	Prompt         string
	ConversationID *uuid.UUID
	Status         RunStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RunRepository persists workflow run records.
type RunRepository interface {
	Create(ctx context.Context, r *Run) error
	Complete(ctx context.Context, id uuid.UUID, conversationID uuid.UUID) error
	ListByWorkflow(ctx context.Context, userID uint, workflowID uuid.UUID) ([]Run, error)
}

// Repository persists workflows. Find returns NOT_FOUND for missing,
// soft-deleted and foreign-owned rows alike. ListActive spans all users and
// feeds the scheduler.
type Repository interface {
	Create(ctx context.Context, w *Workflow) error
	Find(ctx context.Context, userID uint, id uuid.UUID) (*Workflow, error)
	ListByUser(ctx context.Context, userID uint) ([]Workflow, error)
	ListActive(ctx context.Context) ([]Workflow, error)
	Update(ctx context.Context, userID uint, id uuid.UUID, patch WorkflowPatch) (*Workflow, error)
	MarkRun(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDelete(ctx context.Context, userID uint, id uuid.UUID) error
}
