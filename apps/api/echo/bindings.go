package echoapi

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"` // or email
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type SuccessResponse struct {
	Success string `json:"success"`
}

type TransitionRequest struct {
	Target string `json:"target" validate:"required,paper_status"`
	// PrintingDueAt is required when Target is approved_for_printing.
	PrintingDueAt time.Time `json:"printing_due_at"`
}

func (tr *TransitionRequest) Validate(validate *validator.Validate) error {
	tr.Target = core.CleanString(tr.Target, true /* lower */)
	return validate.Struct(tr)
}

type UnlockRequest struct {
	Credential string `json:"credential" validate:"required"`
	// WindowMinutes overrides the configured unlock window when > 0.
	WindowMinutes int `json:"window_minutes" validate:"omitempty,gte=0"`
}

func (ur *UnlockRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(ur)
}
