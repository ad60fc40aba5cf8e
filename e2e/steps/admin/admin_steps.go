package admin

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GETAuthorized(path string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	GetAccessToken() string
	SetAccessToken(token string)
}

// Credentials are the admin login configured on the server under test.
type Credentials struct {
	Username string
	Password string
}

// RegisterSteps registers admin login and dashboard step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext, creds Credentials) {
	steps := &adminSteps{tc: tc, creds: creds}

	ctx.Step(`^I log in as the admin$`, steps.loginAsAdmin)
	ctx.Step(`^I log in as the admin with password "([^"]*)"$`, steps.loginWithPassword)
	ctx.Step(`^I save the access token$`, steps.saveAccessToken)
	ctx.Step(`^I GET "([^"]*)" with the access token$`, steps.getWithToken)
	ctx.Step(`^I GET "([^"]*)" with token "([^"]*)"$`, steps.getWithRawToken)
	ctx.Step(`^the response should not contain a token$`, steps.responseHasNoToken)
	ctx.Step(`^the verified user should be the admin$`, steps.verifiedUserIsAdmin)
	ctx.Step(`^the response should be a spreadsheet named "([^"]*)"$`, steps.responseIsSpreadsheet)
}

type adminSteps struct {
	tc    TestContext
	creds Credentials
}

func (s *adminSteps) loginAsAdmin(ctx context.Context) error {
	return s.loginWithPassword(ctx, s.creds.Password)
}

func (s *adminSteps) loginWithPassword(ctx context.Context, password string) error {
	return s.tc.POST("/api/admin/login", map[string]string{
		"username": s.creds.Username,
		"password": password,
	})
}

func (s *adminSteps) saveAccessToken(ctx context.Context) error {
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	str, ok := token.(string)
	if !ok || str == "" {
		return fmt.Errorf("token is empty")
	}
	s.tc.SetAccessToken(str)
	return nil
}

func (s *adminSteps) getWithToken(ctx context.Context, path string) error {
	if s.tc.GetAccessToken() == "" {
		return fmt.Errorf("no access token saved in this scenario")
	}
	return s.tc.GETAuthorized(path)
}

func (s *adminSteps) getWithRawToken(ctx context.Context, path, token string) error {
	return s.tc.GET(path, map[string]string{"Authorization": "Bearer " + token})
}

func (s *adminSteps) responseHasNoToken(ctx context.Context) error {
	if token, err := s.tc.GetResponseField("token"); err == nil && token != "" {
		return fmt.Errorf("unexpected token in response")
	}
	return nil
}

func (s *adminSteps) verifiedUserIsAdmin(ctx context.Context) error {
	user, err := s.tc.GetResponseField("user")
	if err != nil {
		return err
	}
	fields, ok := user.(map[string]interface{})
	if !ok {
		return fmt.Errorf("user is not an object: %T", user)
	}
	if fields["username"] != s.creds.Username || fields["role"] != "admin" {
		return fmt.Errorf("unexpected user %v", fields)
	}
	return nil
}

func (s *adminSteps) responseIsSpreadsheet(ctx context.Context, filename string) error {
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("expected status 200, got %d", status)
	}
	contentType := s.tc.GetLastResponseHeader("Content-Type")
	if !strings.HasPrefix(contentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") {
		return fmt.Errorf("unexpected content type %q", contentType)
	}
	disposition := s.tc.GetLastResponseHeader("Content-Disposition")
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] != filename {
		return fmt.Errorf("unexpected content disposition %q", disposition)
	}
	return nil
}
