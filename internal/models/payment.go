package models

// PaymentIntent is the processor's view of a payment, in minor units.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ClientSecret string            `json:"-"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

const PaymentIntentSucceeded = "succeeded"

type CreateIntentRequest struct {
	EventID    string  `json:"event_id"`
	TicketType string  `json:"ticket_type"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
}

type CreateIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}
