package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httpclient"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/client"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
)

func fastPoller(orders OrderLookup, carts CartClearer) *ConfirmationPoller {
	return NewConfirmationPoller(orders, carts, PollerConfig{
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	}, newTestLogger())
}

func processedOrder() *domain.ConfirmedOrder {
	return &domain.ConfirmedOrder{OrderNumber: "HEC-01JABC", Status: "processed", Total: 110_000}
}

func TestConfirm_NotReadyThenFound(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").Return(nil, client.ErrOrderNotReady).Twice()
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").Return(processedOrder(), nil).Once()
	carts.On("Clear", mock.Anything, "s1").Return(nil).Once()

	before := testutil.ToFloat64(confirmationOutcomes.WithLabelValues(string(domain.StateConfirmed)))

	out := fastPoller(orders, carts).Confirm(context.Background(), "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateConfirmed, out.State)
	assert.Equal(t, 3, out.Attempts)
	require.NotNil(t, out.Order)
	assert.Equal(t, "HEC-01JABC", out.Order.OrderNumber)

	orders.AssertNumberOfCalls(t, "OrderByPaymentIntent", 3)
	carts.AssertNumberOfCalls(t, "Clear", 1)
	assert.Equal(t, before+1, testutil.ToFloat64(confirmationOutcomes.WithLabelValues(string(domain.StateConfirmed))))
}

func TestConfirm_AlwaysNotReadyTimesOut(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").Return(nil, client.ErrOrderNotReady)

	poller := NewConfirmationPoller(orders, carts, PollerConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  80 * time.Millisecond,
	}, newTestLogger())

	start := time.Now()
	out := poller.Confirm(context.Background(), "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateTimedOut, out.State)
	assert.Equal(t, domain.MessageStillProcessing, out.Message)
	assert.GreaterOrEqual(t, out.Attempts, 2)
	assert.Less(t, time.Since(start), time.Second)
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestConfirm_DeadlineCancelsInFlightRequest(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(processedOrder(), nil)

	poller := NewConfirmationPoller(orders, carts, PollerConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  50 * time.Millisecond,
	}, newTestLogger())

	out := poller.Confirm(context.Background(), "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateTimedOut, out.State, "late response is discarded")
	assert.Nil(t, out.Order)
	orders.AssertNumberOfCalls(t, "OrderByPaymentIntent", 1)
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestConfirm_StartGuards(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		intent       string
		wantRedirect string
	}{
		{name: "missing payment intent", token: "tok", intent: "", wantRedirect: domain.RedirectProfile},
		{name: "missing token", token: "", intent: "pi_1", wantRedirect: domain.RedirectLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(mockOrders)
			carts := new(mockClearer)

			out := fastPoller(orders, carts).Confirm(context.Background(), "s1", tt.token, tt.intent)
			assert.Equal(t, domain.StateError, out.State)
			assert.Equal(t, tt.wantRedirect, out.Redirect)
			assert.Equal(t, 0, out.Attempts)
			orders.AssertNotCalled(t, "OrderByPaymentIntent", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestConfirm_ServerErrorIsHardByDefault(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").
		Return(nil, &httpclient.StatusError{StatusCode: 500, Body: "boom"})

	out := fastPoller(orders, carts).Confirm(context.Background(), "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateError, out.State)
	assert.Equal(t, domain.MessageContactSupport, out.Message)
	assert.Empty(t, out.Redirect)
	orders.AssertNumberOfCalls(t, "OrderByPaymentIntent", 1)
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestConfirm_RetryServerErrors(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").
		Return(nil, &httpclient.StatusError{StatusCode: 503}).Once()
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").
		Return(nil, httpclient.ErrCircuitOpen).Once()
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").
		Return(processedOrder(), nil).Once()
	carts.On("Clear", mock.Anything, "s1").Return(nil).Once()

	poller := NewConfirmationPoller(orders, carts, PollerConfig{
		Interval:          5 * time.Millisecond,
		Timeout:           time.Second,
		RetryServerErrors: true,
	}, newTestLogger())

	out := poller.Confirm(context.Background(), "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateConfirmed, out.State)
	assert.Equal(t, 3, out.Attempts)
	carts.AssertNumberOfCalls(t, "Clear", 1)
}

func TestConfirm_UnauthorizedRedirectsToLogin(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").
		Return(nil, apperrors.Unauthorized("jwt expired"))

	out := fastPoller(orders, carts).Confirm(context.Background(), "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateError, out.State)
	assert.Equal(t, domain.RedirectLogin, out.Redirect)
}

func TestConfirm_CallerCancels(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").Return(nil, client.ErrOrderNotReady)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	poller := NewConfirmationPoller(orders, carts, PollerConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  5 * time.Second,
	}, newTestLogger())

	out := poller.Confirm(ctx, "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateCancelled, out.State)
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestConfirm_ClearFailureStillConfirms(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").Return(processedOrder(), nil)
	carts.On("Clear", mock.Anything, "s1").Return(errors.New("redis down"))

	out := fastPoller(orders, carts).Confirm(context.Background(), "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateConfirmed, out.State)
	carts.AssertNumberOfCalls(t, "Clear", 1)
}

func TestConfirm_ClearSurvivesCallerCancellation(t *testing.T) {
	orders := new(mockOrders)
	carts := new(mockClearer)
	ctx, cancel := context.WithCancel(context.Background())
	orders.On("OrderByPaymentIntent", mock.Anything, "tok", "pi_1").Return(processedOrder(), nil)
	carts.On("Clear", mock.MatchedBy(func(c context.Context) bool {
		cancel()
		return c.Err() == nil
	}), "s1").Return(nil)

	out := fastPoller(orders, carts).Confirm(ctx, "s1", "tok", "pi_1")
	assert.Equal(t, domain.StateConfirmed, out.State)
	carts.AssertNumberOfCalls(t, "Clear", 1)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&httpclient.StatusError{StatusCode: 502}))
	assert.True(t, isTransient(httpclient.ErrCircuitOpen))
	assert.False(t, isTransient(errors.New("decode order response: unexpected EOF")))
	assert.False(t, isTransient(apperrors.Unauthorized("x")))
}
