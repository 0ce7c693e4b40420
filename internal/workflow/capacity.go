package workflow

import (
	"fmt"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
)

const (
	LabelRegister = "Register"
	LabelSoldOut  = "Sold Out"
)

// Gate is the rendered state of an event's registration control.
type Gate struct {
	SoldOut     bool   `json:"soldOut"`
	Disabled    bool   `json:"disabled"`
	Label       string `json:"label"`
	TicketsLeft string `json:"ticketsLeft"`
}

// IsSoldOut reports whether e has no registration slots left.
func IsSoldOut(e model.Event) bool {
	return e.ParticipantNbr == 0
}

// GateFor derives the registration control for e.
func GateFor(e model.Event) Gate {
	if IsSoldOut(e) {
		return Gate{SoldOut: true, Disabled: true, Label: LabelSoldOut, TicketsLeft: TicketsLeft(e)}
	}
	return Gate{Label: LabelRegister, TicketsLeft: TicketsLeft(e)}
}

// TicketsLeft renders the remaining slots of e.
func TicketsLeft(e model.Event) string {
	switch {
	case IsSoldOut(e):
		return LabelSoldOut
	case e.ParticipantNbr == 1:
		return "1 ticket left"
	default:
		return fmt.Sprintf("%d tickets left", e.ParticipantNbr)
	}
}
