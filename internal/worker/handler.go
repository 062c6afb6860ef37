package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/dto"
	"github.com/joshu-sajeev/hrqueue/internal/registry"
)

// The HR handlers below stand in for the personnel service calls; they log
// the effect and simulate the latency of the downstream call.

// RegisterHandlers binds every known job kind to its handler.
func RegisterHandlers(r *registry.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &hrHandlers{logger: logger.With("component", "handlers")}

	registry.Register(r, h.ping)
	registry.Register(r, h.deactivateUser)
	registry.Register(r, h.createProfileFromRequest)
	registry.Register(r, h.applyTransfer)
	registry.Register(r, h.publishDecree)
}

type hrHandlers struct {
	logger *slog.Logger
}

func (h *hrHandlers) ping(ctx context.Context, p dto.PingPayload) error {
	h.logger.InfoContext(ctx, "ping", "message", p.Message)
	return nil
}

func (h *hrHandlers) deactivateUser(ctx context.Context, p dto.DeactivateUserPayload) error {
	if err := simulate(ctx, 50*time.Millisecond); err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "user deactivated", "user_id", p.UserID, "reason", p.Reason)
	return nil
}

func (h *hrHandlers) createProfileFromRequest(ctx context.Context, p dto.CreateProfileFromRequestPayload) error {
	if err := simulate(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "profile created", "request_id", p.RequestID, "email", p.Email)
	return nil
}

func (h *hrHandlers) applyTransfer(ctx context.Context, p dto.ApplyTransferPayload) error {
	if err := simulate(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "transfer applied",
		"transfer_id", p.TransferID, "user_id", p.UserID, "department_id", p.DepartmentID)
	return nil
}

func (h *hrHandlers) publishDecree(ctx context.Context, p dto.PublishDecreePayload) error {
	if err := simulate(ctx, 50*time.Millisecond); err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "decree published", "decree_id", p.DecreeID, "number", p.Number)
	return nil
}

func simulate(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
