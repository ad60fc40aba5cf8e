package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsCreated   *prometheus.CounterVec
	DuplicateRegistrations prometheus.Counter
	LoginAttempts          *prometheus.CounterVec
	ExportsGenerated       prometheus.Counter
	ExportDuration         prometheus.Histogram
	RequestLatency         *prometheus.HistogramVec
}

// New creates the metrics and registers them on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escuela_registrations_total",
			Help: "Total number of registrations stored, by department (unknown names count as otro)",
		}, []string{"department"}),
		DuplicateRegistrations: f.NewCounter(prometheus.CounterOpts{
			Name: "escuela_registrations_duplicate_total",
			Help: "Registrations rejected because the ID number already exists",
		}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escuela_admin_login_attempts_total",
			Help: "Admin login attempts by result (success, failure, locked)",
		}, []string{"result"}),
		ExportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "escuela_exports_total",
			Help: "Spreadsheet exports generated",
		}),
		ExportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "escuela_export_duration_seconds",
			Help:    "Duration of spreadsheet generation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escuela_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "status"}),
	}
}

// IncrementRegistrations records a stored registration. The department is
// free text from the form, so it is mapped onto a fixed label set.
func (m *Metrics) IncrementRegistrations(department string) {
	m.RegistrationsCreated.WithLabelValues(DepartmentLabel(department)).Inc()
}

// OtherDepartment is the label for department names outside the known list.
const OtherDepartment = "otro"

var departments = []string{
	"Amazonas", "Antioquia", "Arauca", "Atlántico", "Bogotá D.C.", "Bolívar",
	"Boyacá", "Caldas", "Caquetá", "Casanare", "Cauca", "Cesar", "Chocó",
	"Córdoba", "Cundinamarca", "Guainía", "Guaviare", "Huila", "La Guajira",
	"Magdalena", "Meta", "Nariño", "Norte de Santander", "Putumayo",
	"Quindío", "Risaralda", "San Andrés y Providencia", "Santander", "Sucre",
	"Tolima", "Valle del Cauca", "Vaupés", "Vichada",
}

var foldAccents = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n", ".", "",
)

func foldDepartment(name string) string {
	return strings.Join(strings.Fields(foldAccents.Replace(strings.ToLower(name))), " ")
}

var departmentLabels = func() map[string]string {
	labels := make(map[string]string, len(departments)+2)
	for _, d := range departments {
		labels[foldDepartment(d)] = d
	}
	labels["bogota"] = "Bogotá D.C."
	labels["san andres"] = "San Andrés y Providencia"
	return labels
}()

// DepartmentLabel returns the canonical department name for name, ignoring
// case, accents and spacing, or OtherDepartment when it is not a Colombian
// department.
func DepartmentLabel(name string) string {
	if label, ok := departmentLabels[foldDepartment(name)]; ok {
		return label
	}
	return OtherDepartment
}

// IncrementDuplicates records a rejected duplicate.
func (m *Metrics) IncrementDuplicates() {
	m.DuplicateRegistrations.Inc()
}

// IncrementLogin records a login outcome.
func (m *Metrics) IncrementLogin(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveExport records a generated export.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveExport(start time.Time) {
	m.ExportsGenerated.Inc()
	m.ExportDuration.Observe(time.Since(start).Seconds())
}

// ObserveRequest records the latency of an HTTP request.
func (m *Metrics) ObserveRequest(method, status string, start time.Time) {
	m.RequestLatency.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}
