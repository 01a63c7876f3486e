package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/harmix/assistant-api/internal/domain/workflow"
)

// Workflow represents the database schema for scheduled automations.
type Workflow struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	UserID     uint           `gorm:"index;not null"`
	Name       string         `gorm:"type:varchar(256);not null"`
	Prompt     string         `gorm:"type:text;not null"`
	Active     bool           `gorm:"index;not null;default:true"`
	RunOptions datatypes.JSON `gorm:"type:jsonb;not null"`
	LastRunAt  *time.Time
}

// TableName specifies the table name for Workflow.
func (Workflow) TableName() string {
	return "workflows"
}

// BeforeCreate assigns the primary key when the domain left it blank.
func (w *Workflow) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// EtoD converts database entity to domain model
func (w *Workflow) EtoD() (*workflow.Workflow, error) {
	var opts workflow.RunOptions
	if len(w.RunOptions) > 0 {
		if err := json.Unmarshal(w.RunOptions, &opts); err != nil {
			return nil, fmt.Errorf("decode run options for workflow %s: %w", w.ID, err)
		}
	}

	return &workflow.Workflow{
		ID:         w.ID,
		UserID:     w.UserID,
		Name:       w.Name,
		Prompt:     w.Prompt,
		Active:     w.Active,
		RunOptions: opts,
		LastRunAt:  w.LastRunAt,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}, nil
}

// NewSchemaWorkflow creates a database entity from domain model
func NewSchemaWorkflow(w *workflow.Workflow) (*Workflow, error) {
	opts, err := json.Marshal(w.RunOptions)
	if err != nil {
		return nil, fmt.Errorf("encode run options: %w", err)
	}

	return &Workflow{
		ID:         w.ID,
		UserID:     w.UserID,
		Name:       w.Name,
		Prompt:     w.Prompt,
		Active:     w.Active,
		RunOptions: datatypes.JSON(opts),
		LastRunAt:  w.LastRunAt,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}, nil
}

// WorkflowRun represents the database schema for workflow execution records.
type WorkflowRun struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	WorkflowID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	UserID         uint       `gorm:"index;not null"`
	Prompt         string     `gorm:"type:text;not null"`
	ConversationID *uuid.UUID `gorm:"type:uuid"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'"`
}

// TableName specifies the table name for WorkflowRun.
func (WorkflowRun) TableName() string {
	return "workflow_runs"
}

// BeforeCreate assigns the primary key when the domain left it blank.
func (r *WorkflowRun) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// EtoD converts database entity to domain model
func (r *WorkflowRun) EtoD() *workflow.Run {
	return &workflow.Run{
		ID:             r.ID,
		WorkflowID:     r.WorkflowID,
		UserID:         r.UserID,
		Prompt:         r.Prompt,
		ConversationID: r.ConversationID,
		Status:         workflow.RunStatus(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// NewSchemaWorkflowRun creates a database entity from domain model
func NewSchemaWorkflowRun(r *workflow.Run) *WorkflowRun {
	return &WorkflowRun{
		ID:             r.ID,
		WorkflowID:     r.WorkflowID,
		UserID:         r.UserID,
		Prompt:         r.Prompt,
		ConversationID: r.ConversationID,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
