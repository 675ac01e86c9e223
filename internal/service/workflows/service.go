// Package workflows runs customers through the slide workflows of the library.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/scoring"
	"github.com/renubu/renubu/internal/slides"
	"github.com/renubu/renubu/internal/util"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("execution not found")
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrInvalidTransition = errors.New("execution is no longer in progress")
)

// Pricer supplies the pricing block of the slide context.
type Pricer interface {
	PriceRecommendation(ctx context.Context, customerID string) (*scoring.PriceRecommendation, error)
}

type Service struct {
	executions repository.ExecutionsRepository
	customers  repository.CustomersRepository
	users      repository.UsersRepository
	contracts  repository.ContractsRepository
	library    *slides.Library
	pricer     Pricer

	Now func() time.Time
}

func New(
	executionsRepo repository.ExecutionsRepository,
	customersRepo repository.CustomersRepository,
	usersRepo repository.UsersRepository,
	contractsRepo repository.ContractsRepository,
	library *slides.Library,
	pricer Pricer,
) *Service {
	return &Service{
		executions: executionsRepo,
		customers:  customersRepo,
		users:      usersRepo,
		contracts:  contractsRepo,
		library:    library,
		pricer:     pricer,
		Now:        time.Now,
	}
}

func (s *Service) now() time.Time { return model.Timestamp(s.Now()) }

func (s *Service) Workflows() []slides.Workflow { return s.library.List() }

func (s *Service) workflow(id string) (slides.Workflow, error) {
	w, err := s.library.Get(id)
	if errors.Is(err, slides.ErrUnknownWorkflow) {
		return slides.Workflow{}, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return w, err
}

func (s *Service) Start(ctx context.Context, customerID, workflowID, ownerID string) (*model.WorkflowExecution, error) {
	if _, err := s.workflow(workflowID); err != nil {
		return nil, err
	}
	c, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCustomerNotFound
	}
	if ownerID == "" {
		ownerID = c.OwnerID
	}

	now := s.now()
	e := model.WorkflowExecution{
		ID:         util.NewID(),
		CustomerID: customerID,
		WorkflowID: workflowID,
		OwnerID:    ownerID,
		Status:     model.ExecutionInProgress,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.executions.Insert(ctx, nil, e); err != nil {
		return nil, fmt.Errorf("insert execution: %w", err)
	}
	return &e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.WorkflowExecution, error) {
	e, err := s.executions.Get(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// Advance moves to the next slide; stepping past the last slide completes the execution.
func (s *Service) Advance(ctx context.Context, id string) (*model.WorkflowExecution, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.ExecutionInProgress {
		return nil, ErrInvalidTransition
	}
	w, err := s.workflow(e.WorkflowID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if e.CurrentSlide+1 >= len(w.Slides) {
		e.Status = model.ExecutionCompleted
		e.CompletedAt = &now
	} else {
		e.CurrentSlide++
	}
	e.UpdatedAt = now

	if err := s.executions.Update(ctx, nil, *e); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}
	return e, nil
}

func (s *Service) Abandon(ctx context.Context, id string) (*model.WorkflowExecution, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.ExecutionInProgress {
		return nil, ErrInvalidTransition
	}
	e.Status = model.ExecutionAbandoned
	e.UpdatedAt = s.now()
	if err := s.executions.Update(ctx, nil, *e); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}
	return e, nil
}

// RenderedSlide is the current slide of an execution with placeholders filled in.
type RenderedSlide struct {
	ExecutionID string                `json:"execution_id"`
	WorkflowID  string                `json:"workflow_id"`
	Status      model.ExecutionStatus `json:"status"`
	Index       int                   `json:"index"`
	Total       int                   `json:"total"`
	Slide       slides.Slide          `json:"slide"`
}

func (s *Service) RenderCurrent(ctx context.Context, id string) (*RenderedSlide, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	w, err := s.workflow(e.WorkflowID)
	if err != nil {
		return nil, err
	}
	idx := e.CurrentSlide
	if idx >= len(w.Slides) {
		idx = len(w.Slides) - 1
	}

	sctx, err := s.contextFor(ctx, e)
	if err != nil {
		return nil, err
	}
	return &RenderedSlide{
		ExecutionID: e.ID,
		WorkflowID:  w.ID,
		Status:      e.Status,
		Index:       idx,
		Total:       len(w.Slides),
		Slide:       slides.RenderSlide(w.Slides[idx], sctx),
	}, nil
}

func (s *Service) contextFor(ctx context.Context, e *model.WorkflowExecution) (slides.Context, error) {
	c, err := s.customers.Get(ctx, e.CustomerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCustomerNotFound
	}
	renewal, err := s.contracts.NextOpenRenewal(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load renewal: %w", err)
	}
	var csm *model.User
	if e.OwnerID != "" {
		if csm, err = s.users.Get(ctx, e.OwnerID); err != nil {
			return nil, fmt.Errorf("load owner: %w", err)
		}
	}

	sctx := slides.ContextAt(s.Now(), *c, renewal, csm)
	if s.pricer != nil {
		rec, err := s.pricer.PriceRecommendation(ctx, c.ID)
		if err != nil {
			logger.Named("workflows").Warn("pricing unavailable", zap.String("customer_id", c.ID), zap.Error(err))
		} else {
			sctx["pricing"] = map[string]any{
				"current_arr":      rec.CurrentARR,
				"recommended_arr":  rec.RecommendedARR,
				"increase_percent": rec.IncreasePercent,
				"hold":             rec.Hold,
				"confidence":       string(rec.Confidence),
				"rationale":        rec.Rationale,
			}
		}
	}
	return sctx, nil
}
