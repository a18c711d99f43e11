package stripe

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	stripesdk "github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/domain/gateway"
)

func TestItemParams(t *testing.T) {
	t.Run("quantity-only update addressed by item id omits the plan", func(t *testing.T) {
		p := itemParams(gateway.ItemParams{ID: "si_1", Quantity: 4})

		assert.Equal(t, "si_1", *p.ID)
		assert.Equal(t, int64(4), *p.Quantity)
		assert.Nil(t, p.Plan)
		assert.Nil(t, p.Deleted)
	})

	t.Run("tombstone carries only the id and the deleted flag", func(t *testing.T) {
		p := itemParams(gateway.ItemParams{ID: "si_1", Plan: "plan_a", Quantity: 2, Deleted: true})

		assert.Equal(t, "si_1", *p.ID)
		assert.True(t, *p.Deleted)
		assert.Nil(t, p.Plan)
		assert.Nil(t, p.Quantity)
	})

	t.Run("full item params", func(t *testing.T) {
		p := itemParams(gateway.ItemParams{Plan: "plan_a", Quantity: 2, TaxRates: []string{"txr_1"}})

		assert.Nil(t, p.ID)
		assert.Equal(t, "plan_a", *p.Plan)
		assert.Equal(t, int64(2), *p.Quantity)
		assert.Equal(t, []*string{stripesdk.String("txr_1")}, p.TaxRates)
	})
}

func TestWrap(t *testing.T) {
	g := &Gateway{logger: zap.NewNop()}

	t.Run("invalid request", func(t *testing.T) {
		err := g.wrap("get invoice", &stripesdk.Error{
			Type: stripesdk.ErrorTypeInvalidRequest,
			Code: stripesdk.ErrorCodeResourceMissing,
			Msg:  "No such invoice",
		})

		assert.True(t, gateway.IsInvalidRequest(err))
	})

	t.Run("card declined", func(t *testing.T) {
		err := g.wrap("pay invoice", &stripesdk.Error{
			Type: stripesdk.ErrorTypeCard,
			Code: stripesdk.ErrorCodeCardDeclined,
			Msg:  "Your card was declined",
		})

		assert.True(t, gateway.IsCardError(err))
	})

	t.Run("rejected api key classifies as authentication", func(t *testing.T) {
		err := g.wrap("create subscription", &stripesdk.Error{
			Type:           stripesdk.ErrorTypeAPI,
			HTTPStatusCode: http.StatusUnauthorized,
			Msg:            "Invalid API Key provided",
		})

		var ge *gateway.Error
		assert.True(t, errors.As(err, &ge))
		assert.Equal(t, gateway.ErrTypeAuthentication, ge.Type)
	})

	t.Run("everything else classifies as api", func(t *testing.T) {
		err := g.wrap("create subscription", &stripesdk.Error{
			Type:           stripesdk.ErrorTypeAPI,
			HTTPStatusCode: http.StatusInternalServerError,
			Msg:            "Something went wrong",
		})

		var ge *gateway.Error
		assert.True(t, errors.As(err, &ge))
		assert.Equal(t, gateway.ErrTypeAPI, ge.Type)
	})

	t.Run("non-sdk error is wrapped with the operation", func(t *testing.T) {
		cause := fmt.Errorf("connection reset")
		err := g.wrap("get customer", cause)

		assert.ErrorContains(t, err, "get customer")
		assert.ErrorIs(t, err, cause)
	})
}

func TestProjectSubscription(t *testing.T) {
	t.Run("missing item list projects to nil", func(t *testing.T) {
		out := ProjectSubscription(&stripesdk.Subscription{
			ID:       "sub_1",
			Status:   stripesdk.SubscriptionStatusActive,
			Customer: &stripesdk.Customer{ID: "cus_1"},
		})

		assert.Nil(t, out.Items)
		assert.Empty(t, out.PlanID)
		assert.Zero(t, out.Quantity)
	})

	t.Run("empty item list projects to empty non-nil slice", func(t *testing.T) {
		out := ProjectSubscription(&stripesdk.Subscription{
			ID:     "sub_1",
			Status: stripesdk.SubscriptionStatusActive,
			Items:  &stripesdk.SubscriptionItemList{},
		})

		assert.NotNil(t, out.Items)
		assert.Len(t, out.Items, 0)
	})

	t.Run("single item derives the top-level plan shortcut", func(t *testing.T) {
		out := ProjectSubscription(&stripesdk.Subscription{
			ID:     "sub_1",
			Status: stripesdk.SubscriptionStatusActive,
			Items: &stripesdk.SubscriptionItemList{
				Data: []*stripesdk.SubscriptionItem{
					{ID: "si_1", Plan: &stripesdk.Plan{ID: "plan_a"}, Quantity: 3},
				},
			},
		})

		assert.Equal(t, "plan_a", out.PlanID)
		assert.Equal(t, int64(3), out.Quantity)
		assert.Len(t, out.Items, 1)
	})
}
