package e2e

import (
	"github.com/cucumber/godog"

	"tavola/e2e/steps/common"
	"tavola/e2e/steps/orders"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (business scope, status and field assertions)
	common.RegisterSteps(ctx, tc)

	// Register order lifecycle steps
	orders.RegisterSteps(ctx, tc)
}
