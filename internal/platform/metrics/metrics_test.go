package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDepartmentLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Meta", "Meta"},
		{"narino", "Nariño"},
		{"NARIÑO", "Nariño"},
		{"  valle   del cauca ", "Valle del Cauca"},
		{"Bogota DC", "Bogotá D.C."},
		{"Bogotá", "Bogotá D.C."},
		{"cordoba", "Córdoba"},
		{"San Andres", "San Andrés y Providencia"},
		{"junk-1", OtherDepartment},
		{"", OtherDepartment},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DepartmentLabel(tt.in))
		})
	}
}

func TestRegistrationSeriesAreBounded(t *testing.T) {
	m := New(prometheus.NewRegistry())

	for i := 0; i < 300; i++ {
		m.IncrementRegistrations(fmt.Sprintf("junk-%d", i))
	}
	m.IncrementRegistrations("Huila")

	assert.Equal(t, 2, testutil.CollectAndCount(m.RegistrationsCreated))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.RegistrationsCreated.WithLabelValues(OtherDepartment)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationsCreated.WithLabelValues("Huila")))
}
