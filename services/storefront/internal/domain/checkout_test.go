package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/validator"
)

func validForm() ShippingForm {
	return ShippingForm{
		Name:    "Aiko Rojas",
		Email:   "aiko@example.com",
		Address: "Calle 85 #11-20",
		City:    "Bogotá",
		Zip:     "110221",
		Country: "Colombia",
	}
}

func TestShippingForm_Validation(t *testing.T) {
	require.NoError(t, validator.Validate(validForm()), "phone and state are optional")

	tests := []struct {
		name   string
		mutate func(*ShippingForm)
		field  string
	}{
		{"missing name", func(f *ShippingForm) { f.Name = "" }, "name"},
		{"missing email", func(f *ShippingForm) { f.Email = "" }, "email"},
		{"invalid email", func(f *ShippingForm) { f.Email = "not-an-email" }, "email"},
		{"missing address", func(f *ShippingForm) { f.Address = "" }, "address"},
		{"missing city", func(f *ShippingForm) { f.City = "" }, "city"},
		{"missing zip", func(f *ShippingForm) { f.Zip = "" }, "zip"},
		{"missing country", func(f *ShippingForm) { f.Country = "" }, "country"},
		{"blank name after trim", func(f *ShippingForm) { f.Name = "   " }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := validator.Validate(f.Trimmed())

			var valErr *validator.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Contains(t, valErr.Fields(), tt.field)
		})
	}
}

func TestShippingForm_ShippingAddress(t *testing.T) {
	f := validForm()
	f.State = "Cundinamarca"
	assert.Equal(t, ShippingAddress{
		Address: "Calle 85 #11-20",
		City:    "Bogotá",
		State:   "Cundinamarca",
		ZipCode: "110221",
		Country: "Colombia",
	}, f.ShippingAddress())
}

func TestNewOrderDraft_FreezesPrices(t *testing.T) {
	c := NewCart("s1")
	c.Add(Product{ID: "peluche", Name: "Peluche", Price: 50_000}, 2)

	d := NewOrderDraft(c, validForm().ShippingAddress())
	c.Add(Product{ID: "peluche", Price: 1}, 5)

	require.Len(t, d.Items, 1)
	assert.Equal(t, int64(50_000), d.Items[0].UnitPrice)
	assert.Equal(t, 2, d.Items[0].Quantity)
	assert.Equal(t, Quote{Subtotal: 100_000, Shipping: 10_000, Total: 110_000}, d.Quote())
}

func TestPaymentIntentHandle_ID(t *testing.T) {
	tests := []struct {
		name   string
		handle PaymentIntentHandle
		want   string
	}{
		{"from secret", PaymentIntentHandle{ClientSecret: "pi_3Abc_secret_xyz"}, "pi_3Abc"},
		{"explicit wins", PaymentIntentHandle{ClientSecret: "pi_1_secret_a", PaymentIntentID: "pi_2"}, "pi_2"},
		{"malformed secret", PaymentIntentHandle{ClientSecret: "garbage"}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.handle.ID(), tt.name)
	}
}

func TestConfirmationState_Terminal(t *testing.T) {
	assert.False(t, StateStart.Terminal())
	assert.False(t, StatePolling.Terminal())
	for _, s := range []ConfirmationState{StateConfirmed, StateError, StateTimedOut, StateCancelled} {
		assert.True(t, s.Terminal(), s)
	}
}
