package e2e

import (
	"github.com/cucumber/godog"

	"escuela/e2e/steps/admin"
	"escuela/e2e/steps/common"
	"escuela/e2e/steps/registration"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext, creds admin.Credentials) {
	common.RegisterSteps(ctx, tc)
	registration.RegisterSteps(ctx, tc)
	admin.RegisterSteps(ctx, tc, creds)
}
