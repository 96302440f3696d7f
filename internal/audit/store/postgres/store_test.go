//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/audit"
	id "rollcall/pkg/domain"
	"rollcall/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite

	pg    *containers.PostgresContainer
	store *Store

	ctx context.Context
	now time.Time
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.pg.DB)
}

func (s *AuditPostgresSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "audit_events"))
}

func (s *AuditPostgresSuite) TestAppendAndList() {
	personID := id.NewPersonID()
	actorID := id.NewUserID()

	for i, action := range []audit.Action{audit.ActionAssignmentCreated, audit.ActionAssignmentStarted} {
		event := audit.Event{
			Timestamp:   s.now.Add(time.Duration(i) * time.Minute),
			Action:      action,
			ActorID:     actorID,
			PersonID:    personID,
			SubjectType: "assignment",
			SubjectID:   id.NewAssignmentID().String(),
			Detail:      "task_type=data_collection",
			RequestID:   "req-123",
		}
		s.Require().NoError(s.store.Append(s.ctx, event))
	}

	events, err := s.store.ListByPerson(s.ctx, personID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	// Oldest first.
	s.Equal(audit.ActionAssignmentCreated, events[0].Action)
	s.Equal(audit.ActionAssignmentStarted, events[1].Action)
	s.Equal(actorID, events[0].ActorID)
	s.Equal("req-123", events[0].RequestID)
	s.True(events[0].Timestamp.Equal(s.now))
}

func (s *AuditPostgresSuite) TestListIsScopedToPerson() {
	personID := id.NewPersonID()
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: s.now,
		Action:    audit.ActionAccountEntered,
		ActorID:   id.NewUserID(),
		PersonID:  personID,
	}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: s.now,
		Action:    audit.ActionAccountEntered,
		ActorID:   id.NewUserID(),
		PersonID:  id.NewPersonID(),
	}))

	events, err := s.store.ListByPerson(s.ctx, personID)
	s.Require().NoError(err)
	s.Len(events, 1)
}
