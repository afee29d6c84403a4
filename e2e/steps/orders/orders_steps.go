package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

const (
	eventualTimeout = 5 * time.Second
	pollInterval    = 50 * time.Millisecond
	orderKey        = "order_id"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PATCH(path string, body any) error
	DELETE(path string) error
	GET(path string) error
	GetLastStatusCode() int
	GetResponseField(field string) (any, error)
	Set(key, value string)
	Get(key string) string
}

// RegisterSteps registers order lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &orderSteps{tc: tc}

	// Commands
	ctx.Step(`^I start a "([^"]*)" order for customer (\d+) at location (\d+)$`, steps.startOrder)
	ctx.Step(`^I add (\d+) of item (\d+) "([^"]*)" at (\d+) cents$`, steps.addItem)
	ctx.Step(`^I change the quantity of item (\d+) to (\d+)$`, steps.changeQuantity)
	ctx.Step(`^I remove item (\d+)$`, steps.removeItem)
	ctx.Step(`^I confirm the order$`, steps.transition("confirm"))
	ctx.Step(`^I start preparing the order$`, steps.transition("preparing"))
	ctx.Step(`^I complete the order$`, steps.transition("complete"))
	ctx.Step(`^I cancel the order because "([^"]*)"$`, steps.cancel)

	// Eventually consistent reads
	ctx.Step(`^the order should eventually have status "([^"]*)"$`, steps.eventuallyStatus)
	ctx.Step(`^the order should eventually hold (\d+) items totalling (\d+) cents$`, steps.eventuallyTotals)
	ctx.Step(`^the kitchen queue for location (\d+) should eventually include the order$`, steps.kitchenIncludes)
	ctx.Step(`^the kitchen queue for location (\d+) should eventually exclude the order$`, steps.kitchenExcludes)
	ctx.Step(`^the status history should eventually read "([^"]*)"$`, steps.eventuallyHistory)
}

type orderSteps struct {
	tc TestContext
}

func (s *orderSteps) orderPath() string {
	return "/orders/" + s.tc.Get(orderKey)
}

func (s *orderSteps) startOrder(ctx context.Context, orderType string, customerID, locationID int) error {
	if err := s.tc.POST("/orders", map[string]any{
		"customer_id": customerID,
		"location_id": locationID,
		"order_type":  orderType,
		"channel":     "e2e",
	}); err != nil {
		return err
	}
	if s.tc.GetLastStatusCode() != 201 {
		return fmt.Errorf("start order returned %d", s.tc.GetLastStatusCode())
	}
	v, err := s.tc.GetResponseField("order_id")
	if err != nil {
		return err
	}
	s.tc.Set(orderKey, fmt.Sprint(v))
	return nil
}

func (s *orderSteps) addItem(ctx context.Context, quantity, itemID int, name string, priceCents int) error {
	return s.tc.POST(s.orderPath()+"/items", map[string]any{
		"item_id":          itemID,
		"name":             name,
		"quantity":         quantity,
		"unit_price_cents": priceCents,
	})
}

func (s *orderSteps) changeQuantity(ctx context.Context, itemID, quantity int) error {
	return s.tc.PATCH(fmt.Sprintf("%s/items/%d", s.orderPath(), itemID), map[string]any{"quantity": quantity})
}

func (s *orderSteps) removeItem(ctx context.Context, itemID int) error {
	return s.tc.DELETE(fmt.Sprintf("%s/items/%d", s.orderPath(), itemID))
}

func (s *orderSteps) transition(action string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return s.tc.POST(s.orderPath()+"/"+action, nil)
	}
}

func (s *orderSteps) cancel(ctx context.Context, reason string) error {
	return s.tc.POST(s.orderPath()+"/cancel", map[string]any{
		"reason":       reason,
		"cancelled_by": "e2e",
	})
}

func (s *orderSteps) eventuallyStatus(ctx context.Context, status string) error {
	return s.eventually(ctx, func() error {
		if err := s.tc.GET(s.orderPath()); err != nil {
			return err
		}
		v, err := s.tc.GetResponseField("status")
		if err != nil {
			return err
		}
		if fmt.Sprint(v) != status {
			return fmt.Errorf("status is %v, want %s", v, status)
		}
		return nil
	})
}

func (s *orderSteps) eventuallyTotals(ctx context.Context, count, cents int) error {
	return s.eventually(ctx, func() error {
		if err := s.tc.GET(s.orderPath()); err != nil {
			return err
		}
		gotCount, err := s.tc.GetResponseField("item_count")
		if err != nil {
			return err
		}
		gotCents, err := s.tc.GetResponseField("subtotal_cents")
		if err != nil {
			return err
		}
		if gotCount != float64(count) || gotCents != float64(cents) {
			return fmt.Errorf("order holds %v items at %v cents, want %d at %d", gotCount, gotCents, count, cents)
		}
		return nil
	})
}

func (s *orderSteps) kitchenIncludes(ctx context.Context, locationID int) error {
	return s.eventually(ctx, func() error {
		found, err := s.inKitchen(locationID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("order %s not in kitchen queue", s.tc.Get(orderKey))
		}
		return nil
	})
}

func (s *orderSteps) kitchenExcludes(ctx context.Context, locationID int) error {
	return s.eventually(ctx, func() error {
		found, err := s.inKitchen(locationID)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("order %s still in kitchen queue", s.tc.Get(orderKey))
		}
		return nil
	})
}

func (s *orderSteps) inKitchen(locationID int) (bool, error) {
	if err := s.tc.GET(fmt.Sprintf("/locations/%d/kitchen", locationID)); err != nil {
		return false, err
	}
	v, err := s.tc.GetResponseField("orders")
	if err != nil {
		return false, err
	}
	list, _ := v.([]any)
	for _, entry := range list {
		if o, ok := entry.(map[string]any); ok && o["order_id"] == s.tc.Get(orderKey) {
			return true, nil
		}
	}
	return false, nil
}

func (s *orderSteps) eventuallyHistory(ctx context.Context, expected string) error {
	want := strings.Split(expected, ",")
	for i := range want {
		want[i] = strings.TrimSpace(want[i])
	}
	return s.eventually(ctx, func() error {
		if err := s.tc.GET(s.orderPath() + "/insights"); err != nil {
			return err
		}
		v, err := s.tc.GetResponseField("history")
		if err != nil {
			return err
		}
		list, _ := v.([]any)
		got := make([]string, 0, len(list))
		for _, entry := range list {
			if t, ok := entry.(map[string]any); ok {
				got = append(got, fmt.Sprint(t["to"]))
			}
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			return fmt.Errorf("history is %v, want %v", got, want)
		}
		return nil
	})
}

func (s *orderSteps) eventually(ctx context.Context, check func() error) error {
	deadline := time.Now().Add(eventualTimeout)
	for {
		err := check()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
