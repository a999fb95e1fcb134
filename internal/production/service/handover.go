package service

import (
	"context"
	"time"

	"github.com/bartarleather/erp-backend/internal/production/events"
	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/bartarleather/erp-backend/pkg/logger"
	"github.com/google/uuid"
)

// StageTaskStore persists stage tasks and their handover history.
type StageTaskStore interface {
	Create(ctx context.Context, t *repository.StageTask) error
	GetByID(ctx context.Context, id string) (*repository.StageTask, error)
	ListByOrder(ctx context.Context, orderID string) ([]*repository.StageTask, error)
	FirstForOrder(ctx context.Context, orderID string) (*repository.StageTask, error)
	SaveHandoverState(ctx context.Context, id string, state repository.HandoverState) error
	SetCompleted(ctx context.Context, id string, completed bool) error
}

// HandoverService runs the two-party handover protocol on the forms
// attached to stage tasks. Forms are permanent history: the list only
// grows, and a side's confirmation is write-once.
type HandoverService struct {
	stages    StageTaskStore
	publisher *events.ProductionEventPublisher
	logger    *logger.Logger
}

// NewHandoverService creates a new handover service
func NewHandoverService(stages StageTaskStore, publisher *events.ProductionEventPublisher, log *logger.Logger) *HandoverService {
	return &HandoverService{
		stages:    stages,
		publisher: publisher,
		logger:    log.WithComponent("handover"),
	}
}

// AppendForm drafts a new form onto the stage task's handover history.
func (s *HandoverService) AppendForm(ctx context.Context, stageTaskID string, form *repository.HandoverForm) (*repository.HandoverForm, error) {
	if form.Direction != repository.DirectionIncoming && form.Direction != repository.DirectionOutgoing {
		return nil, errors.BadRequest("direction must be incoming or outgoing")
	}

	task, err := s.stages.GetByID(ctx, stageTaskID)
	if err != nil {
		return nil, err
	}

	if form.ID == "" {
		form.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now

	state := task.HandoverState
	state.Forms = append(state.Forms, form)
	if err := s.stages.SaveHandoverState(ctx, stageTaskID, state); err != nil {
		return nil, err
	}

	s.publisher.PublishHandoverCreated(ctx, stageTaskID, form)
	s.logger.Info().
		Str("stage_task_id", stageTaskID).
		Str("form_id", form.ID).
		Str("direction", form.Direction).
		Msg("handover form drafted")
	return form, nil
}

// Confirm records one side's sign-off on a form. A side that already
// confirmed is left untouched, so re-invoking is an idempotent no-op.
// Returns the updated form and whether both sides have now confirmed.
func (s *HandoverService) Confirm(ctx context.Context, stageTaskID, formID, side, actor string) (*repository.HandoverForm, bool, error) {
	if side != repository.SideGiver && side != repository.SideReceiver {
		return nil, false, errors.BadRequest("side must be giver or receiver")
	}

	task, err := s.stages.GetByID(ctx, stageTaskID)
	if err != nil {
		return nil, false, err
	}

	form := findForm(task.HandoverState.Forms, formID)
	if form == nil {
		return nil, false, errors.NotFound("handover form")
	}

	conf := &form.GiverConfirmation
	if side == repository.SideReceiver {
		conf = &form.ReceiverConfirmation
	}
	if conf.Confirmed {
		return form, form.Settled(), nil
	}

	now := time.Now().UTC()
	conf.Confirmed = true
	conf.Actor = actor
	conf.At = &now
	form.UpdatedAt = now

	if err := s.stages.SaveHandoverState(ctx, stageTaskID, task.HandoverState); err != nil {
		return nil, false, err
	}

	s.publisher.PublishHandoverConfirmed(ctx, stageTaskID, formID, side, actor)
	settled := form.Settled()
	if settled {
		s.publisher.PublishHandoverSettled(ctx, stageTaskID, form)
	}
	s.logger.Info().
		Str("stage_task_id", stageTaskID).
		Str("form_id", formID).
		Str("side", side).
		Bool("settled", settled).
		Msg("handover confirmed")
	return form, settled, nil
}

// ListForms returns a stage task's handover history, optionally filtered by
// direction. An empty direction returns every form.
func (s *HandoverService) ListForms(ctx context.Context, stageTaskID, direction string) ([]*repository.HandoverForm, error) {
	task, err := s.stages.GetByID(ctx, stageTaskID)
	if err != nil {
		return nil, err
	}
	if direction == "" {
		return task.HandoverState.Forms, nil
	}

	var forms []*repository.HandoverForm
	for _, f := range task.HandoverState.Forms {
		if f.Direction == direction {
			forms = append(forms, f)
		}
	}
	return forms, nil
}

func findForm(forms []*repository.HandoverForm, id string) *repository.HandoverForm {
	for _, f := range forms {
		if f.ID == id {
			return f
		}
	}
	return nil
}
