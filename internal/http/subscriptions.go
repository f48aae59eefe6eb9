package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fyrsmithlabs/newsletter/internal/storage"
	"github.com/fyrsmithlabs/newsletter/internal/task"
	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SubscribeForm is the urlencoded body of POST /subscriptions.
type SubscribeForm struct {
	Email string `form:"email" validate:"required,email,max=320"`
	Name  string `form:"name" validate:"required,max=256"`
}

type formValidator struct {
	validate *validator.Validate
}

func (v *formValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// handleSubscribe stores a new subscriber. Persistence failures are logged
// in full inside the request span and answered with a bare 500.
func (s *Server) handleSubscribe(c echo.Context) error {
	var form SubscribeForm
	if err := (&echo.DefaultBinder{}).BindBody(c, &form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	if err := c.Validate(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	ctx := c.Request().Context()
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	span := tracing.OpenSpan(ctx, "Adding a new subscriber",
		tracing.WithFields(
			zap.String("request_id", requestID),
			zap.String("subscriber_email", form.Email),
			zap.String("subscriber_name", form.Name),
		),
	)

	sub := &subscribeTask{
		store:     s.store,
		sub:       storage.NewSubscription(form.Email, form.Name),
		requestID: requestID,
	}
	if err := s.runner.Run(ctx, task.Instrument(span, sub)); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}

// subscribeTask saves one subscriber. The insert runs under its own span,
// opened as a child of whichever span is current when the task first runs.
type subscribeTask struct {
	store     SubscriptionStore
	sub       *storage.Subscription
	requestID string
	insert    task.Task
}

func (t *subscribeTask) Resume(ctx context.Context) task.Step {
	if t.insert == nil {
		query := tracing.OpenSpan(ctx, "Saving new subscriber details in the database")
		t.insert = task.Instrument(query, t.store.InsertSubscriptionTask(t.sub))
	}
	step := t.insert.Resume(ctx)
	if !step.IsDone() {
		return step
	}
	if err := step.Err(); err != nil {
		tracing.Error(ctx, "Failed to execute query",
			zap.String("request_id", t.requestID),
			zap.Error(err))
		return task.Done(err)
	}
	tracing.Info(ctx, "New subscriber details have been saved",
		zap.String("request_id", t.requestID))
	return task.Done(nil)
}

func (t *subscribeTask) Cancel() {
	if t.insert != nil {
		task.Cancel(t.insert)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid form"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid address"
	default:
		return field + " is invalid"
	}
}
