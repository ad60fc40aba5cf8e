package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"escuela/internal/registration/models"
	"escuela/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	base  time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newRegistration(idNumber, department, profession string, offset time.Duration) *models.Registration {
	return &models.Registration{
		ID:                uuid.NewString(),
		FullName:          "Persona " + idNumber,
		IDNumber:          idNumber,
		Phone:             "3000000000",
		City:              "Ciudad",
		Department:        department,
		Profession:        profession,
		VentureName:       "Emprendimiento",
		SocialMedia:       "@red",
		VentureChallenges: "Retos",
		RegisteredAt:      s.base.Add(offset),
		Status:            models.StatusActive,
	}
}

func (s *InMemoryStoreSuite) TestCreateAndExists() {
	reg := s.newRegistration("100", "Antioquia", "Docente", 0)
	s.Require().NoError(s.store.Create(s.ctx, reg))

	exists, err := s.store.ExistsByIDNumber(s.ctx, "100")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.ExistsByIDNumber(s.ctx, "999")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *InMemoryStoreSuite) TestDuplicateIDNumberConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newRegistration("100", "Antioquia", "Docente", 0)))

	err := s.store.Create(s.ctx, s.newRegistration("100", "Caldas", "Chef", time.Minute))
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrConflict)

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

// TestConcurrentDuplicateSubmissions verifies exactly one insert wins.
func (s *InMemoryStoreSuite) TestConcurrentDuplicateSubmissions() {
	const goroutines = 50
	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.Create(s.ctx, s.newRegistration("777", "Antioquia", "Docente", time.Duration(i)*time.Second))
			if err == nil {
				successes.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *InMemoryStoreSuite) TestListOrdersNewestFirst() {
	s.Require().NoError(s.store.Create(s.ctx, s.newRegistration("1", "Antioquia", "A", 1*time.Minute)))
	s.Require().NoError(s.store.Create(s.ctx, s.newRegistration("2", "Caldas", "A", 3*time.Minute)))
	s.Require().NoError(s.store.Create(s.ctx, s.newRegistration("3", "Antioquia", "B", 2*time.Minute)))

	s.Run("department filter", func() {
		got, err := s.store.List(s.ctx, "Antioquia")
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal("3", got[0].IDNumber)
		s.Equal("1", got[1].IDNumber)
	})

	s.Run("empty department returns everything", func() {
		got, err := s.store.List(s.ctx, "")
		s.Require().NoError(err)
		s.Require().Len(got, 3)
		s.Equal([]string{"2", "3", "1"}, idNumbers(got))
	})

	s.Run("unknown department is empty, not nil", func() {
		got, err := s.store.List(s.ctx, "Narino")
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})

	s.Run("returned records are copies", func() {
		got, err := s.store.List(s.ctx, "Caldas")
		s.Require().NoError(err)
		got[0].FullName = "mutated"
		again, err := s.store.List(s.ctx, "Caldas")
		s.Require().NoError(err)
		s.NotEqual("mutated", again[0].FullName)
	})
}

func (s *InMemoryStoreSuite) TestCountByDepartment() {
	s.Run("empty store", func() {
		groups, err := s.store.CountByDepartment(s.ctx)
		s.Require().NoError(err)
		s.Empty(groups)
	})

	departments := []string{"Valle", "Antioquia", "Valle", "Boyaca", "Valle", "Antioquia"}
	for i, d := range departments {
		s.Require().NoError(s.store.Create(s.ctx, s.newRegistration(fmt.Sprint(i), d, "X", 0)))
	}

	groups, err := s.store.CountByDepartment(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.GroupCount{
		{Key: "Antioquia", Total: 2},
		{Key: "Boyaca", Total: 1},
		{Key: "Valle", Total: 3},
	}, groups)
}

func (s *InMemoryStoreSuite) TestCountByProfessionAndLatest() {
	professions := []string{"Chef", "Docente", "Chef", "Abogada", "Docente", "Chef"}
	for i, p := range professions {
		s.Require().NoError(s.store.Create(s.ctx, s.newRegistration(fmt.Sprint(i), "Valle", p, time.Duration(i)*time.Minute)))
	}

	groups, err := s.store.CountByProfession(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal([]models.GroupCount{{Key: "Chef", Total: 3}, {Key: "Docente", Total: 2}}, groups)

	latest, err := s.store.Latest(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal([]string{"5", "4"}, idNumbers(latest))
}

func idNumbers(regs []*models.Registration) []string {
	out := make([]string, len(regs))
	for i, r := range regs {
		out[i] = r.IDNumber
	}
	return out
}
