package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/infra"
)

// Client starts & awaits workflows on a Temporal cluster.
type Client struct {
	client       client.Client
	oTelShutdown infra.ShutdownFunc
}

func NewClient(ctx context.Context, cfg TemporalConfig) (*Client, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	clOpts, shutdown, _, err := NewConnectionBuilder(cfg).Build(ctx)
	if err != nil {
		l.Error("error building temporal client options", "error", err.Error())
		if shutdown != nil {
			if sErr := shutdown(ctx); sErr != nil {
				l.Error("error shutting down OTel", "error", sErr.Error())
				err = errors.Join(err, sErr)
			}
		}
		return nil, fmt.Errorf("error building temporal client options: %w", err)
	}

	tClient, err := client.Dial(clOpts)
	if err != nil {
		l.Error("error connecting temporal server", "error", err.Error())
		err = fmt.Errorf("%w: %w", ErrTemporalClient, err)
		if shutdown != nil {
			if sErr := shutdown(ctx); sErr != nil {
				l.Error("error shutting down OTel", "error", sErr.Error())
				err = errors.Join(err, sErr)
			}
		}
		return nil, err
	}

	return &Client{
		client:       tClient,
		oTelShutdown: shutdown,
	}, nil
}

// Start starts a workflow, by function or registered alias.
func (tc *Client) Start(
	ctx context.Context,
	options client.StartWorkflowOptions,
	workflow any,
	args ...any,
) (client.WorkflowRun, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	we, err := tc.client.ExecuteWorkflow(ctx, options, workflow, args...)
	if err != nil {
		l.Error("failed to start workflow", "error", err.Error())
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}

	l.Info("started workflow", "workflow-id", we.GetID(), "run-id", we.GetRunID())
	return we, nil
}

// Execute starts a workflow & blocks until its result is decoded into valuePtr.
func (tc *Client) Execute(
	ctx context.Context,
	options client.StartWorkflowOptions,
	valuePtr any,
	workflow any,
	args ...any,
) error {
	we, err := tc.Start(ctx, options, workflow, args...)
	if err != nil {
		return err
	}
	if err := we.Get(ctx, valuePtr); err != nil {
		return fmt.Errorf("workflow %s failed: %w", we.GetID(), err)
	}
	return nil
}

func (tc *Client) Cancel(ctx context.Context, workflowID string) error {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if err := tc.client.CancelWorkflow(ctx, workflowID, ""); err != nil {
		l.Error("failed to cancel workflow", "workflow-id", workflowID, "error", err.Error())
		return fmt.Errorf("failed to cancel workflow: %w", err)
	}
	return nil
}

// Close closes the temporal service client
func (tc *Client) Close(ctx context.Context) error {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	tc.client.Close()

	if tc.oTelShutdown != nil {
		if err := tc.oTelShutdown(ctx); err != nil {
			l.Error("error shutting down OTel", "error", err.Error())
			return fmt.Errorf("error shutting down OTel: %w", err)
		}
	}
	return nil
}
