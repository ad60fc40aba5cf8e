package models

import (
	"strings"
	"time"
	"unicode"

	dErrors "escuela/pkg/domain-errors"
)

const (
	// AllDepartments selects every record in list and export operations.
	AllDepartments = "todos"
	// ProfessionOther is replaced by the submitter's free-text profession.
	ProfessionOther = "Otro"

	maxIDNumberLen = 12
	maxPhoneLen    = 10
)

// Status of a registration. Only StatusActive exists; there are no transitions.
type Status string

const StatusActive Status = "activo"

// Registration is a stored campaign registration.
//
// Invariants:
//   - IDNumber is unique across the store (enforced by the store itself)
//   - Every text field is trimmed and non-empty
//   - Profession never holds the ProfessionOther sentinel
//   - RegisteredAt and Status are set by the service, never by the client
//   - Records are immutable once stored
type Registration struct {
	ID                string    `json:"_id" bson:"_id"`
	FullName          string    `json:"nombre" bson:"nombre"`
	IDNumber          string    `json:"cedula" bson:"cedula"`
	Phone             string    `json:"telefono" bson:"telefono"`
	City              string    `json:"ciudad" bson:"ciudad"`
	Department        string    `json:"departamento" bson:"departamento"`
	Profession        string    `json:"profesion" bson:"profesion"`
	VentureName       string    `json:"nombreEmprendimiento" bson:"nombreEmprendimiento"`
	SocialMedia       string    `json:"redesSociales" bson:"redesSociales"`
	VentureChallenges string    `json:"retosEmprendimiento" bson:"retosEmprendimiento"`
	RegisteredAt      time.Time `json:"fechaRegistro" bson:"fechaRegistro"`
	Status            Status    `json:"estado" bson:"estado"`
}

// SubmitRequest is the public form payload.
type SubmitRequest struct {
	FullName          string `json:"nombre"`
	IDNumber          string `json:"cedula"`
	Phone             string `json:"telefono"`
	City              string `json:"ciudad"`
	Department        string `json:"departamento"`
	Profession        string `json:"profesion"`
	OtherProfession   string `json:"profesionOtra"`
	VentureName       string `json:"nombreEmprendimiento"`
	SocialMedia       string `json:"redesSociales"`
	VentureChallenges string `json:"retosEmprendimiento"`
}

// Normalize trims every field in place.
func (r *SubmitRequest) Normalize() {
	for _, f := range []*string{
		&r.FullName, &r.IDNumber, &r.Phone, &r.City, &r.Department,
		&r.Profession, &r.OtherProfession, &r.VentureName, &r.SocialMedia,
		&r.VentureChallenges,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// Validate checks completeness and field formats. Call Normalize first.
func (r *SubmitRequest) Validate() error {
	required := []string{
		r.FullName, r.IDNumber, r.Phone, r.City, r.Department,
		r.Profession, r.VentureName, r.SocialMedia, r.VentureChallenges,
	}
	for _, v := range required {
		if v == "" {
			return dErrors.New(dErrors.CodeValidation, "Todos los campos son requeridos")
		}
	}
	if r.Profession == ProfessionOther && r.OtherProfession == "" {
		return dErrors.New(dErrors.CodeValidation, "Debe especificar su profesion")
	}
	if !isDigits(r.IDNumber) || len(r.IDNumber) > maxIDNumberLen {
		return dErrors.New(dErrors.CodeValidation, "La cedula debe contener solo numeros (maximo 12 digitos)")
	}
	if !isDigits(r.Phone) || len(r.Phone) > maxPhoneLen {
		return dErrors.New(dErrors.CodeValidation, "El telefono debe contener solo numeros (maximo 10 digitos)")
	}
	return nil
}

// ResolvedProfession returns the value to persist: the free-text
// alternative when the sentinel was chosen.
func (r *SubmitRequest) ResolvedProfession() string {
	if r.Profession == ProfessionOther {
		return r.OtherProfession
	}
	return r.Profession
}

// NewRegistration builds the record to store from a validated request.
func NewRegistration(id string, req *SubmitRequest, now time.Time) *Registration {
	return &Registration{
		ID:                id,
		FullName:          req.FullName,
		IDNumber:          req.IDNumber,
		Phone:             req.Phone,
		City:              req.City,
		Department:        req.Department,
		Profession:        req.ResolvedProfession(),
		VentureName:       req.VentureName,
		SocialMedia:       req.SocialMedia,
		VentureChallenges: req.VentureChallenges,
		RegisteredAt:      now,
		Status:            StatusActive,
	}
}

func isDigits(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) || c > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}

// GroupCount is one bucket of a grouped count. The JSON keys match the
// aggregation output the dashboard consumes.
type GroupCount struct {
	Key   string `json:"_id" bson:"_id"`
	Total int    `json:"total" bson:"total"`
}

// DepartmentSummary is the per-department aggregation plus its grand total.
type DepartmentSummary struct {
	Departments []GroupCount
	Total       int
}

// Statistics backs the dashboard overview.
type Statistics struct {
	TotalRegistered int             `json:"totalInscritos"`
	ByProfession    []GroupCount    `json:"porProfesion"`
	Latest          []*Registration `json:"ultimosRegistros"`
}
