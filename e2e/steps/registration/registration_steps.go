package registration

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers registration form step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	ctx.Step(`^I register a new participant in department "([^"]*)"$`, steps.registerNew)
	ctx.Step(`^I register the same participant again$`, steps.registerAgain)
	ctx.Step(`^I register a participant without a phone number$`, steps.registerWithoutPhone)
	ctx.Step(`^I register a participant with profession "Otro" and no alternative$`, steps.registerOtherWithoutAlternative)
	ctx.Step(`^the public list for that department should include the participant$`, steps.publicListIncludesParticipant)
}

type registrationSteps struct {
	tc TestContext
	// State for tracking across steps
	idNumber   string
	department string
}

// uniqueIDNumber keeps repeated runs against the same store from colliding.
// Id numbers are at most 12 digits.
func uniqueIDNumber() string {
	return fmt.Sprintf("%012d", time.Now().UnixNano()%1_000_000_000_000)
}

func (s *registrationSteps) form(idNumber, department string) map[string]string {
	return map[string]string{
		"nombre":               "Participante " + idNumber,
		"cedula":               idNumber,
		"telefono":             "3001234567",
		"ciudad":               "Pasto",
		"departamento":         department,
		"profesion":            "Docente",
		"nombreEmprendimiento": "Tejidos del Sur",
		"redesSociales":        "@tejidos",
		"retosEmprendimiento":  "Ventas en linea",
	}
}

func (s *registrationSteps) registerNew(ctx context.Context, department string) error {
	s.idNumber = uniqueIDNumber()
	s.department = department
	return s.tc.POST("/api/inscripcion", s.form(s.idNumber, department))
}

func (s *registrationSteps) registerAgain(ctx context.Context) error {
	if s.idNumber == "" {
		return fmt.Errorf("no participant registered in this scenario")
	}
	return s.tc.POST("/api/inscripcion", s.form(s.idNumber, s.department))
}

func (s *registrationSteps) registerWithoutPhone(ctx context.Context) error {
	body := s.form(uniqueIDNumber(), "Narino")
	delete(body, "telefono")
	return s.tc.POST("/api/inscripcion", body)
}

func (s *registrationSteps) registerOtherWithoutAlternative(ctx context.Context) error {
	body := s.form(uniqueIDNumber(), "Narino")
	body["profesion"] = "Otro"
	return s.tc.POST("/api/inscripcion", body)
}

func (s *registrationSteps) publicListIncludesParticipant(ctx context.Context) error {
	if err := s.tc.GET("/api/inscripciones/"+url.PathEscape(s.department), nil); err != nil {
		return err
	}
	data, err := s.tc.GetResponseField("data")
	if err != nil {
		return err
	}
	records, ok := data.([]interface{})
	if !ok {
		return fmt.Errorf("data is not a list: %T", data)
	}
	for _, r := range records {
		if rec, ok := r.(map[string]interface{}); ok && rec["cedula"] == s.idNumber {
			return nil
		}
	}
	return fmt.Errorf("participant %s not listed under %s", s.idNumber, s.department)
}
