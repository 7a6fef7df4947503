package domain

// ConfirmationState is a state of the order confirmation workflow.
type ConfirmationState string

const (
	StateStart     ConfirmationState = "start"
	StatePolling   ConfirmationState = "polling"
	StateConfirmed ConfirmationState = "confirmed"
	StateError     ConfirmationState = "error"
	StateTimedOut  ConfirmationState = "timed_out"
	StateCancelled ConfirmationState = "cancelled"
)

// Terminal reports whether no further transition can happen.
func (s ConfirmationState) Terminal() bool {
	switch s {
	case StateConfirmed, StateError, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// Customer-facing messages for the non-success outcomes.
const (
	MessageStillProcessing = "Tu pedido aún se está procesando. Revisa tu perfil en unos minutos."
	MessageContactSupport  = "No pudimos confirmar tu pedido. Escríbenos a soporte con tu referencia de pago."
	MessageMissingPayment  = "No encontramos la referencia de pago."
	MessageLoginRequired   = "Inicia sesión para ver tu pedido."
)

// ConfirmationOutcome is the terminal result of a confirmation run.
type ConfirmationOutcome struct {
	State    ConfirmationState `json:"state"`
	Order    *ConfirmedOrder   `json:"order,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Message  string            `json:"message,omitempty"`
	Attempts int               `json:"attempts"`
}
