package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"

	"escuela/e2e/steps/admin"
)

// TestFeatures runs the Gherkin scenarios against a live server. Start the
// server first and point E2E_BASE_URL at it.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("E2E_BASE_URL not set")
	}
	creds := admin.Credentials{
		Username: envOr("E2E_ADMIN_USER", "admin"),
		Password: envOr("E2E_ADMIN_PASSWORD", "admin"),
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			tc := NewTestContext(baseURL)
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc, creds)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Tags:     os.Getenv("E2E_TAGS"),
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
