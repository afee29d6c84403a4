package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SetBusiness(businessID string)
	GetLastStatusCode() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers scope and response assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am working for business "([^"]*)"$`, steps.workingForBusiness)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, steps.responseFieldShouldBeNumber)
	ctx.Step(`^the request should be rejected with (\d+) and reason "([^"]*)"$`, steps.rejectedWithReason)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) workingForBusiness(ctx context.Context, businessID string) error {
	s.tc.SetBusiness(businessID)
	return nil
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastStatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeNumber(ctx context.Context, field string, expected int) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok || int(n) != expected {
		return fmt.Errorf("expected %s to be %d, got %v", field, expected, v)
	}
	return nil
}

func (s *commonSteps) rejectedWithReason(ctx context.Context, status int, reason string) error {
	if err := s.responseStatusShouldBe(ctx, status); err != nil {
		return err
	}
	return s.responseFieldShouldEqual(ctx, "reason", reason)
}
