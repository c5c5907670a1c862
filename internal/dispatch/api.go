package dispatch

import (
	"github.com/neuroplastio/neio-remote/internal/deck"
)

type AuthRequest struct {
	PIN string `json:"pin"`
}

type ActionRequest struct {
	ButtonID string `json:"button_id"`
	PIN      string `json:"pin"`
}

// Result is the body of every auth and action response, and of failed config requests.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ConfigResponse struct {
	Grid    deck.Grid     `json:"grid"`
	Buttons []deck.Button `json:"buttons"`
}

const (
	MessageAuthenticated  = "authenticated"
	MessageInvalidPIN     = "invalid PIN"
	MessageActionExecuted = "action executed"
)
