//go:build integration

package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/workflow/models"
	personstore "rollcall/internal/workflow/store/person"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil/containers"
)

type AssignmentPostgresSuite struct {
	suite.Suite

	pg     *containers.PostgresContainer
	store  *Postgres
	people *personstore.Postgres

	ctx context.Context
	now time.Time
}

func TestAssignmentPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AssignmentPostgresSuite))
}

func (s *AssignmentPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.people = personstore.NewPostgres(s.pg.DB)
}

func (s *AssignmentPostgresSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "assignments", "social_media_accounts", "people"))
}

func (s *AssignmentPostgresSuite) seedPerson() id.PersonID {
	person, err := models.NewPerson(id.NewPersonID(), "Jordan", "Smith", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.people.Create(s.ctx, person))
	return person.ID
}

func (s *AssignmentPostgresSuite) newAssignment(userID id.UserID, personID id.PersonID, taskType models.TaskType, createdAt time.Time) *models.Assignment {
	a, err := models.NewAssignment(id.NewAssignmentID(), userID, id.NewUserID(), personID, taskType, createdAt)
	s.Require().NoError(err)
	return a
}

func (s *AssignmentPostgresSuite) TestCreateAndFind() {
	personID := s.seedPerson()
	a := s.newAssignment(id.NewUserID(), personID, models.TaskDataCollection, s.now)
	a.Notes = "first batch"
	s.Require().NoError(s.store.Create(s.ctx, a))

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.ID, found.ID)
	s.Equal(a.UserID, found.UserID)
	s.Equal(a.AssignedByID, found.AssignedByID)
	s.Equal(models.TaskDataCollection, found.TaskType)
	s.Equal(models.AssignmentPending, found.Status)
	s.Equal("first batch", found.Notes)
	s.Nil(found.CompletedAt)
	s.True(found.CreatedAt.Equal(s.now))

	s.Run("unknown id is ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.NewAssignmentID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AssignmentPostgresSuite) TestUniqueTriple() {
	personID := s.seedPerson()
	userID := id.NewUserID()

	s.Require().NoError(s.store.Create(s.ctx, s.newAssignment(userID, personID, models.TaskDataCollection, s.now)))

	s.Run("duplicate triple hits the unique index", func() {
		dup := s.newAssignment(userID, personID, models.TaskDataCollection, s.now)
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("other task type is free", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newAssignment(userID, personID, models.TaskDataValidation, s.now)))
	})
}

func (s *AssignmentPostgresSuite) TestExecute() {
	personID := s.seedPerson()
	a := s.newAssignment(id.NewUserID(), personID, models.TaskDataCollection, s.now)
	s.Require().NoError(s.store.Create(s.ctx, a))

	s.Run("validate failure rolls back", func() {
		_, err := s.store.Execute(s.ctx, a.ID,
			func(*models.Assignment) error { return sentinel.ErrInvalidState },
			func(a *models.Assignment) { a.Status = models.AssignmentCompleted },
		)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(models.AssignmentPending, found.Status)
	})

	s.Run("mutation persists including completed_at", func() {
		completedAt := s.now.Add(time.Hour)
		updated, err := s.store.Execute(s.ctx, a.ID,
			func(*models.Assignment) error { return nil },
			func(a *models.Assignment) { a.ApplyComplete(completedAt) },
		)
		s.Require().NoError(err)
		s.Equal(models.AssignmentCompleted, updated.Status)

		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.CompletedAt)
		s.True(found.CompletedAt.Equal(completedAt))
	})
}

func (s *AssignmentPostgresSuite) TestDelete() {
	personID := s.seedPerson()
	a := s.newAssignment(id.NewUserID(), personID, models.TaskDataCollection, s.now)
	s.Require().NoError(s.store.Create(s.ctx, a))

	s.Require().NoError(s.store.Delete(s.ctx, a.ID))
	_, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Run("second delete is ErrNotFound", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, a.ID), sentinel.ErrNotFound)
	})

	s.Run("the triple is reusable", func() {
		again := s.newAssignment(a.UserID, a.PersonID, a.TaskType, s.now)
		s.Require().NoError(s.store.Create(s.ctx, again))
	})
}

func (s *AssignmentPostgresSuite) TestQueues() {
	userID := id.NewUserID()
	var created []*models.Assignment
	for i := 0; i < 3; i++ {
		a := s.newAssignment(userID, s.seedPerson(), models.TaskDataCollection, s.now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.Create(s.ctx, a))
		created = append(created, a)
	}

	s.Run("active queue is FIFO by created_at", func() {
		queue, err := s.store.ActiveForUser(s.ctx, userID, models.TaskDataCollection)
		s.Require().NoError(err)
		s.Require().Len(queue, 3)
		s.Equal(created[0].ID, queue[0].ID)
		s.Equal(created[2].ID, queue[2].ID)
	})

	s.Run("status filter narrows the queue", func() {
		_, err := s.store.Execute(s.ctx, created[1].ID,
			func(*models.Assignment) error { return nil },
			func(a *models.Assignment) { a.ApplyStart(s.now) },
		)
		s.Require().NoError(err)

		inProgress, err := s.store.ActiveForUser(s.ctx, userID, models.TaskDataCollection, models.AssignmentInProgress)
		s.Require().NoError(err)
		s.Require().Len(inProgress, 1)
		s.Equal(created[1].ID, inProgress[0].ID)
	})

	s.Run("completed queue is newest completion first and capped", func() {
		for i, a := range created {
			completedAt := s.now.Add(time.Duration(i) * time.Hour)
			_, err := s.store.Execute(s.ctx, a.ID,
				func(*models.Assignment) error { return nil },
				func(a *models.Assignment) { a.ApplyComplete(completedAt) },
			)
			s.Require().NoError(err)
		}

		completed, err := s.store.CompletedForUser(s.ctx, userID, models.TaskDataCollection, 2)
		s.Require().NoError(err)
		s.Require().Len(completed, 2)
		s.Equal(created[2].ID, completed[0].ID)
		s.Equal(created[1].ID, completed[1].ID)
	})
}

func (s *AssignmentPostgresSuite) TestCountsAndPersonScan() {
	userID := id.NewUserID()
	personID := s.seedPerson()
	a := s.newAssignment(userID, personID, models.TaskDataValidation, s.now)
	s.Require().NoError(s.store.Create(s.ctx, a))

	count, err := s.store.CountByStatus(s.ctx, userID, models.TaskDataValidation, models.AssignmentPending)
	s.Require().NoError(err)
	s.Equal(1, count)

	active, err := s.store.HasActiveForPerson(s.ctx, personID, models.TaskDataValidation)
	s.Require().NoError(err)
	s.True(active)

	_, err = s.store.Execute(s.ctx, a.ID,
		func(*models.Assignment) error { return nil },
		func(a *models.Assignment) { a.ApplyComplete(s.now) },
	)
	s.Require().NoError(err)

	active, err = s.store.HasActiveForPerson(s.ctx, personID, models.TaskDataValidation)
	s.Require().NoError(err)
	s.False(active)
}
