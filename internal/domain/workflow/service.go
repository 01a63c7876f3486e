package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// TurnSender runs one assistant turn and reports the conversation it landed
// in. Satisfied by the conversation service.
type TurnSender interface {
	Send(ctx context.Context, userID uint, conversationID *uuid.UUID, prompt string, w conversation.FrameWriter) (uuid.UUID, error)
}

// Service implements workflow CRUD and execution.
type Service struct {
	workflows Repository
	runs      RunRepository
	sender    TurnSender
	log       zerolog.Logger
}

func NewService(workflows Repository, runs RunRepository, sender TurnSender, log zerolog.Logger) *Service {
	return &Service{
		workflows: workflows,
		runs:      runs,
		sender:    sender,
		log:       log.With().Str("component", "workflow_service").Logger(),
	}
}

// Create stores a new workflow, active by default.
func (s *Service) Create(ctx context.Context, userID uint, name, prompt string, opts RunOptions) (*Workflow, error) {
	name = strings.TrimSpace(name)
	prompt = strings.TrimSpace(prompt)
	if name == "" {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "name must not be blank", nil)
	}
	if prompt == "" {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "prompt must not be blank", nil)
	}
	if err := opts.Validate(ctx); err != nil {
		return nil, err
	}

	w := &Workflow{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Prompt:     prompt,
		Active:     true,
		RunOptions: opts,
	}
	if err := s.workflows.Create(ctx, w); err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to create workflow")
	}
	s.log.Info().Str("workflow_id", w.ID.String()).Uint("user_id", userID).Str("cron", opts.CronSpec()).Msg("workflow created")
	return w, nil
}

// List returns the user's visible workflows.
func (s *Service) List(ctx context.Context, userID uint) ([]Workflow, error) {
	items, err := s.workflows.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list workflows")
	}
	return items, nil
}

// Get resolves one workflow owned by the user.
func (s *Service) Get(ctx context.Context, userID uint, id uuid.UUID) (*Workflow, error) {
	w, err := s.workflows.Find(ctx, userID, id)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load workflow")
	}
	return w, nil
}

// Update patches name, prompt, active flag or schedule.
func (s *Service) Update(ctx context.Context, userID uint, id uuid.UUID, patch WorkflowPatch) (*Workflow, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "name must not be blank", nil)
	}
	if patch.Prompt != nil && strings.TrimSpace(*patch.Prompt) == "" {
		return nil, apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, "prompt must not be blank", nil)
	}
	if patch.RunOptions != nil {
		if err := patch.RunOptions.Validate(ctx); err != nil {
			return nil, err
		}
	}
	w, err := s.workflows.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to update workflow")
	}
	return w, nil
}

// Delete soft-deletes the workflow so the scheduler stops picking it up.
func (s *Service) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	if err := s.workflows.SoftDelete(ctx, userID, id); err != nil {
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to delete workflow")
	}
	return nil
}

// Run executes a workflow on demand, regardless of its schedule.
func (s *Service) Run(ctx context.Context, userID uint, id uuid.UUID) error {
	w, err := s.workflows.Find(ctx, userID, id)
	if err != nil {
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load workflow")
	}
	return s.Execute(ctx, w)
}

// Execute runs the workflow prompt as a fresh assistant turn, recording a
// Run row before the turn starts and completing it with the conversation id
// afterwards. The stream is discarded; the produced messages are what the
// user later reads.
func (s *Service) Execute(ctx context.Context, w *Workflow) error {
	run := &Run{
		ID:         uuid.New(),
		WorkflowID: w.ID,
		UserID:     w.UserID,
		Prompt:     w.Prompt,
		Status:     RunPending,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to record workflow run")
	}
	s.log.Info().Str("workflow_id", w.ID.String()).Str("run_id", run.ID.String()).Uint("user_id", w.UserID).Msg("workflow run started")

	conversationID, err := s.sender.Send(ctx, w.UserID, nil, w.Prompt, discardWriter{})
	if err != nil {
		s.log.Error().Err(err).Str("workflow_id", w.ID.String()).Msg("workflow run failed")
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "workflow run failed")
	}

	if err := s.runs.Complete(ctx, run.ID, conversationID); err != nil {
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to complete workflow run")
	}
	if err := s.workflows.MarkRun(ctx, w.ID, time.Now().UTC()); err != nil {
		return apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to record workflow run time")
	}
	return nil
}

// Runs lists the execution history of one workflow.
func (s *Service) Runs(ctx context.Context, userID uint, workflowID uuid.UUID) ([]Run, error) {
	if _, err := s.workflows.Find(ctx, userID, workflowID); err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to load workflow")
	}
	items, err := s.runs.ListByWorkflow(ctx, userID, workflowID)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list workflow runs")
	}
	return items, nil
}

// ListActive feeds the scheduler with every runnable workflow.
func (s *Service) ListActive(ctx context.Context) ([]Workflow, error) {
	items, err := s.workflows.ListActive(ctx)
	if err != nil {
		return nil, apperrors.AsError(ctx, apperrors.LayerDomain, err, "failed to list active workflows")
	}
	return items, nil
}

// discardWriter drops frames: scheduled runs have no live client attached.
type discardWriter struct{}

func (discardWriter) WriteFrame(conversation.Frame) error { return nil }
func (discardWriter) WriteError(string) error             { return nil }
