package resolve

import (
	"net/http"

	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/clover/pkg/conversation"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Register registers routing routes
func Register(g *echo.Group) {
	g.POST("/resolve", ResolveMessage)
	g.GET("/customers/:customer_id/state", CustomerState)
}

type ResolveRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

type ResolveResponse struct {
	Decision   string                 `json:"decision"`
	TenantID   string                 `json:"tenant_id,omitempty"`
	Candidates []models.TenantSummary `json:"candidates,omitempty"`
}

// ResolveMessage runs one inbound message through the conversation machine
// and returns the routing decision.
func ResolveMessage(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "resolve.ResolveMessage")
	defer span.End()

	req, err := utils.BindRequest[ResolveRequest](c)
	if err != nil {
		return err
	}

	ctx, machine, err := ectoinject.GetContext[*conversation.Machine](ctx)
	if err != nil {
		return err
	}

	decision := machine.HandleMessage(ctx, req.CustomerID, req.Text)
	if decision.Kind == models.DecisionError {
		return decision.Err
	}

	return c.JSON(http.StatusOK, ResolveResponse{
		Decision:   string(decision.Kind),
		TenantID:   decision.TenantID,
		Candidates: decision.Candidates,
	})
}

type StateResponse struct {
	CustomerID string `json:"customer_id"`
	State      string `json:"state"`
}

// CustomerState reports the customer's current conversation state.
func CustomerState(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "resolve.CustomerState")
	defer span.End()

	customerID := c.Param("customer_id")
	if customerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "customer_id is required")
	}

	ctx, machine, err := ectoinject.GetContext[*conversation.Machine](ctx)
	if err != nil {
		return err
	}

	state, err := machine.StateOf(ctx, customerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, StateResponse{
		CustomerID: customerID,
		State:      string(state),
	})
}
