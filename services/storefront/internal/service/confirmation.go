package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httpclient"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/client"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
)

const clearTimeout = 5 * time.Second

// OrderLookup fetches the order recorded for a payment intent. It returns
// client.ErrOrderNotReady while the order does not exist yet.
type OrderLookup interface {
	OrderByPaymentIntent(ctx context.Context, token, paymentIntentID string) (*domain.ConfirmedOrder, error)
}

// CartClearer empties a session's cart.
type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// PollerConfig controls the confirmation loop.
type PollerConfig struct {
	// Interval is the pause between a handled response and the next request.
	Interval time.Duration
	// Timeout bounds the whole run, independent of Interval.
	Timeout time.Duration
	// RetryServerErrors keeps polling on 5xx and transport errors instead of
	// failing the run.
	RetryServerErrors bool
}

// DefaultPollerConfig returns a 2s interval and a 30s deadline.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: 2 * time.Second,
		Timeout:  30 * time.Second,
	}
}

// ConfirmationPoller waits for the backend to record the order of a
// completed payment and clears the cart once it has.
type ConfirmationPoller struct {
	orders OrderLookup
	carts  CartClearer
	cfg    PollerConfig
	logger *slog.Logger
}

// NewConfirmationPoller creates a new poller.
func NewConfirmationPoller(orders OrderLookup, carts CartClearer, cfg PollerConfig, logger *slog.Logger) *ConfirmationPoller {
	return &ConfirmationPoller{
		orders: orders,
		carts:  carts,
		cfg:    cfg,
		logger: logger,
	}
}

// confirmationRun holds the state of one Confirm call. Only the loop in
// Confirm reads or writes it.
type confirmationRun struct {
	state    domain.ConfirmationState
	attempts int
	cleared  bool
}

// Confirm runs the confirmation state machine to a terminal outcome. At most
// one lookup is outstanding at a time and the next one is scheduled only
// after the previous response was handled.
func (p *ConfirmationPoller) Confirm(ctx context.Context, sessionID, token, paymentIntentID string) domain.ConfirmationOutcome {
	run := &confirmationRun{state: domain.StateStart}

	if paymentIntentID == "" {
		return p.finish(ctx, run, domain.ConfirmationOutcome{
			State:    domain.StateError,
			Redirect: domain.RedirectProfile,
			Message:  domain.MessageMissingPayment,
		})
	}
	if token == "" {
		return p.finish(ctx, run, domain.ConfirmationOutcome{
			State:    domain.StateError,
			Redirect: domain.RedirectLogin,
			Message:  domain.MessageLoginRequired,
		})
	}

	deadline, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()

	run.state = domain.StatePolling
	log := p.logger.With(
		slog.String("session_id", sessionID),
		slog.String("payment_intent_id", paymentIntentID),
	)

	for {
		select {
		case <-deadline.Done():
			return p.finish(ctx, run, p.expired(ctx))
		case <-timer.C:
		}

		run.attempts++
		order, err := p.orders.OrderByPaymentIntent(deadline, token, paymentIntentID)

		if deadline.Err() != nil {
			confirmationPolls.WithLabelValues(pollResultDiscarded).Inc()
			return p.finish(ctx, run, p.expired(ctx))
		}

		switch {
		case err == nil:
			confirmationPolls.WithLabelValues(pollResultFound).Inc()
			p.clearOnce(ctx, run, sessionID, log)
			return p.finish(ctx, run, domain.ConfirmationOutcome{
				State: domain.StateConfirmed,
				Order: order,
			})

		case errors.Is(err, client.ErrOrderNotReady):
			confirmationPolls.WithLabelValues(pollResultNotReady).Inc()
			log.DebugContext(ctx, "order not recorded yet", slog.Int("attempt", run.attempts))

		case errors.Is(err, apperrors.ErrUnauthorized):
			confirmationPolls.WithLabelValues(pollResultFailed).Inc()
			return p.finish(ctx, run, domain.ConfirmationOutcome{
				State:    domain.StateError,
				Redirect: domain.RedirectLogin,
				Message:  domain.MessageLoginRequired,
			})

		case p.cfg.RetryServerErrors && isTransient(err):
			confirmationPolls.WithLabelValues(pollResultServerError).Inc()
			log.WarnContext(ctx, "order lookup failed, retrying",
				slog.Int("attempt", run.attempts),
				slog.String("error", err.Error()),
			)

		default:
			confirmationPolls.WithLabelValues(pollResultFailed).Inc()
			log.ErrorContext(ctx, "order lookup failed",
				slog.Int("attempt", run.attempts),
				slog.String("error", err.Error()),
			)
			return p.finish(ctx, run, domain.ConfirmationOutcome{
				State:   domain.StateError,
				Message: domain.MessageContactSupport,
			})
		}

		timer.Reset(p.cfg.Interval)
	}
}

// expired builds the outcome for a run whose context ended while polling.
func (p *ConfirmationPoller) expired(ctx context.Context) domain.ConfirmationOutcome {
	if ctx.Err() != nil {
		return domain.ConfirmationOutcome{State: domain.StateCancelled}
	}
	return domain.ConfirmationOutcome{
		State:   domain.StateTimedOut,
		Message: domain.MessageStillProcessing,
	}
}

// clearOnce clears the cart outside the request's cancellation so that a
// client disconnecting right after confirmation still empties it.
func (p *ConfirmationPoller) clearOnce(ctx context.Context, run *confirmationRun, sessionID string, log *slog.Logger) {
	if run.cleared {
		return
	}
	run.cleared = true

	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()
	if err := p.carts.Clear(clearCtx, sessionID); err != nil {
		log.ErrorContext(ctx, "failed to clear cart after confirmation", slog.String("error", err.Error()))
	}
}

func (p *ConfirmationPoller) finish(ctx context.Context, run *confirmationRun, outcome domain.ConfirmationOutcome) domain.ConfirmationOutcome {
	if run.state.Terminal() {
		return outcome
	}
	run.state = outcome.State
	outcome.Attempts = run.attempts
	confirmationOutcomes.WithLabelValues(string(outcome.State)).Inc()

	p.logger.InfoContext(ctx, "confirmation finished",
		slog.String("state", string(outcome.State)),
		slog.Int("attempts", run.attempts),
	)
	return outcome
}

// isTransient reports whether polling may continue after err when server
// errors are retried.
func isTransient(err error) bool {
	if httpclient.IsServerError(err) {
		return true
	}
	if errors.Is(err, httpclient.ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
