package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentStatusPending is the stored value of an unsettled game's payment field.
const PaymentStatusPending = "pending"

// Payment is either PaymentPending or PaymentSettled.
type Payment interface {
	isPayment()
}

// PaymentPending marks a game that has not been paid for yet.
type PaymentPending struct{}

// PaymentSettled records who paid for a game and how much.
type PaymentSettled struct {
	Member string
	Amount float64
}

func (PaymentPending) isPayment() {}
func (PaymentSettled) isPayment() {}

// EncodePayment returns the stored form: the bare string "pending" or a
// {member, amount} map.
func EncodePayment(p Payment) interface{} {
	if s, ok := p.(PaymentSettled); ok {
		return map[string]interface{}{
			"member": s.Member,
			"amount": s.Amount,
		}
	}
	return PaymentStatusPending
}

// DecodePayment parses the stored form of a payment.
func DecodePayment(v interface{}) (Payment, error) {
	switch p := v.(type) {
	case string:
		if p == PaymentStatusPending {
			return PaymentPending{}, nil
		}
		return nil, fmt.Errorf("unknown payment status %q", p)
	case map[string]interface{}:
		member, _ := p["member"].(string)
		amount, ok := ToFloat(p["amount"])
		if !ok || amount <= 0 || member == "" {
			return nil, fmt.Errorf("malformed settlement record %v", p)
		}
		return PaymentSettled{Member: member, Amount: amount}, nil
	}
	return nil, fmt.Errorf("unsupported payment value of type %T", v)
}

// Game represents a scheduled club event.
type Game struct {
	ID      string
	Date    time.Time
	Venue   string
	Payment Payment
}

// NewGame returns an unsettled game.
func NewGame(date time.Time, venue string) *Game {
	return &Game{Date: date, Venue: venue, Payment: PaymentPending{}}
}

// Settled reports whether a settlement has been recorded for the game.
func (g *Game) Settled() bool {
	_, ok := g.Payment.(PaymentSettled)
	return ok
}

// Fields returns the stored representation of the game.
func (g *Game) Fields() map[string]interface{} {
	return map[string]interface{}{
		"date":    g.Date,
		"venue":   g.Venue,
		"payment": EncodePayment(g.Payment),
	}
}

// DecodeGame builds a Game from raw document fields.
func DecodeGame(id string, data map[string]interface{}) (*Game, error) {
	payment, err := DecodePayment(data["payment"])
	if err != nil {
		return nil, fmt.Errorf("game '%s': %w", id, err)
	}
	date, _ := data["date"].(time.Time)
	venue, _ := data["venue"].(string)
	return &Game{ID: id, Date: date, Venue: venue, Payment: payment}, nil
}

type paymentJSON struct {
	Status string  `json:"status"`
	Member string  `json:"member,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

type gameJSON struct {
	ID      string      `json:"id"`
	Date    time.Time   `json:"date"`
	Venue   string      `json:"venue"`
	Payment paymentJSON `json:"payment"`
}

// MarshalJSON renders the payment as {"status":"pending"} or
// {"status":"settled","member":...,"amount":...}.
func (g Game) MarshalJSON() ([]byte, error) {
	out := gameJSON{ID: g.ID, Date: g.Date, Venue: g.Venue, Payment: paymentJSON{Status: PaymentStatusPending}}
	if s, ok := g.Payment.(PaymentSettled); ok {
		out.Payment = paymentJSON{Status: "settled", Member: s.Member, Amount: s.Amount}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the form written by MarshalJSON.
func (g *Game) UnmarshalJSON(data []byte) error {
	var in gameJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var payment Payment
	switch in.Payment.Status {
	case PaymentStatusPending:
		payment = PaymentPending{}
	case "settled":
		if in.Payment.Member == "" || in.Payment.Amount <= 0 {
			return fmt.Errorf("game '%s': malformed settlement %+v", in.ID, in.Payment)
		}
		payment = PaymentSettled{Member: in.Payment.Member, Amount: in.Payment.Amount}
	default:
		return fmt.Errorf("game '%s': unknown payment status %q", in.ID, in.Payment.Status)
	}
	*g = Game{ID: in.ID, Date: in.Date, Venue: in.Venue, Payment: payment}
	return nil
}
