package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/audit"
	auditmemory "rollcall/internal/audit/store/memory"
	"rollcall/internal/workflow/models"
	accountstore "rollcall/internal/workflow/store/account"
	assignmentstore "rollcall/internal/workflow/store/assignment"
	personstore "rollcall/internal/workflow/store/person"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/requestcontext"
)

type WorkflowServiceSuite struct {
	suite.Suite

	service     *Service
	assignments *assignmentstore.InMemory
	accounts    *accountstore.InMemory
	people      *personstore.InMemory
	trail       *auditmemory.InMemoryStore

	ctx      context.Context
	now      time.Time
	admin    id.UserID
	personID id.PersonID
}

func TestWorkflowServiceSuite(t *testing.T) {
	suite.Run(t, new(WorkflowServiceSuite))
}

func (s *WorkflowServiceSuite) SetupTest() {
	s.assignments = assignmentstore.NewInMemory()
	s.accounts = accountstore.NewInMemory()
	s.people = personstore.NewInMemory()
	s.trail = auditmemory.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.service = New(s.assignments, s.accounts, s.people,
		WithLogger(logger),
		WithAuditPublisher(audit.NewStorePublisher(s.trail)),
	)

	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.admin = id.NewUserID()
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithUserID(s.ctx, s.admin)

	s.personID = s.seedPerson("Jordan", "Smith")
}

func (s *WorkflowServiceSuite) seedPerson(first, last string) id.PersonID {
	person, err := models.NewPerson(id.NewPersonID(), first, last, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.people.Create(s.ctx, person))
	return person.ID
}

// enterAndSelfCheck drives every campaign core record through entry and the
// researcher self-check so the collection gate passes.
func (s *WorkflowServiceSuite) enterAndSelfCheck(personID id.PersonID) {
	accounts, err := s.service.ListAccounts(s.ctx, personID, models.CampaignCore())
	s.Require().NoError(err)
	for _, a := range accounts {
		_, err := s.service.MarkEntered(s.ctx, a.ID, "https://example.com/"+string(a.Platform), "")
		s.Require().NoError(err)
		_, err = s.service.ToggleResearcherVerified(s.ctx, a.ID)
		s.Require().NoError(err)
	}
}

func (s *WorkflowServiceSuite) verifyAll(personID id.PersonID) {
	accounts, err := s.service.ListAccounts(s.ctx, personID, models.CampaignCore())
	s.Require().NoError(err)
	for _, a := range accounts {
		if a.NeedsVerification() {
			_, err := s.service.VerifyAccount(s.ctx, a.ID, "", "")
			s.Require().NoError(err)
		}
	}
}

func (s *WorkflowServiceSuite) TestCreateAssignmentPrepopulates() {
	researcher := id.NewUserID()

	assignment, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "first batch")
	s.Require().NoError(err)
	s.Equal(models.AssignmentPending, assignment.Status)
	s.Equal(s.admin, assignment.AssignedByID)

	accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
	s.Require().NoError(err)
	s.Require().Len(accounts, 6)
	for _, a := range accounts {
		s.True(a.PrePopulated)
		s.True(a.NeedsResearch())
		s.Equal(models.ChannelCampaign, a.ChannelType)
	}

	s.Run("prepopulation is idempotent", func() {
		created, err := s.service.PrepopulateAccounts(s.ctx, s.personID)
		s.Require().NoError(err)
		s.Zero(created)
	})

	s.Run("duplicate assignment is a conflict", func() {
		_, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("validation assignment does not prepopulate", func() {
		other := s.seedPerson("Alex", "Doe")
		_, err := s.service.CreateAssignment(s.ctx, id.NewUserID(), other, models.TaskDataValidation, "")
		s.Require().NoError(err)

		accounts, err := s.service.ListAccounts(s.ctx, other, models.AccountFilter{})
		s.Require().NoError(err)
		s.Empty(accounts)
	})

	s.Run("unknown person is not found", func() {
		_, err := s.service.CreateAssignment(s.ctx, researcher, id.NewPersonID(), models.TaskDataCollection, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *WorkflowServiceSuite) TestBulkAssign() {
	researcher := id.NewUserID()
	second := s.seedPerson("Taylor", "Nguyen")
	third := s.seedPerson("Morgan", "Lee")

	// Pre-existing assignment for the first person gets skipped, not failed.
	_, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)

	result, err := s.service.BulkAssign(s.ctx, researcher,
		[]id.PersonID{s.personID, second, third}, models.TaskDataCollection, "bulk")
	s.Require().NoError(err)
	s.Equal(2, result.Created)
	s.Equal(1, result.Skipped)

	s.Run("empty person list is a validation error", func() {
		_, err := s.service.BulkAssign(s.ctx, researcher, nil, models.TaskDataCollection, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *WorkflowServiceSuite) TestCollectionGate() {
	researcher := id.NewUserID()
	assignment, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)

	s.Run("blocked while accounts need research", func() {
		_, err := s.service.CompleteAssignment(s.ctx, assignment.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeGateBlocked))

		var blocked *models.GateBlockedError
		s.Require().ErrorAs(err, &blocked)
		s.Equal(models.GateBlockNeedsResearch, blocked.Category)
		s.Equal(6, blocked.Count)
		s.Contains(blocked.Error(), "6 accounts still need research")
	})

	s.Run("blocked while self-checks are missing", func() {
		accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
		s.Require().NoError(err)
		for _, a := range accounts {
			_, err := s.service.MarkEntered(s.ctx, a.ID, "https://example.com/"+string(a.Platform), "")
			s.Require().NoError(err)
		}

		_, err = s.service.CompleteAssignment(s.ctx, assignment.ID)
		var blocked *models.GateBlockedError
		s.Require().ErrorAs(err, &blocked)
		s.Equal(models.GateBlockResearcherUnverified, blocked.Category)
		s.Equal(6, blocked.Count)
	})

	s.Run("not_found satisfies the research requirement", func() {
		accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
		s.Require().NoError(err)
		// Flip one record to not_found; it no longer needs research.
		_, err = s.service.MarkNotFound(s.ctx, accounts[0].ID)
		s.Require().NoError(err)

		verdict, err := s.service.EvaluateGate(s.ctx, s.personID, models.TaskDataCollection)
		s.Require().NoError(err)
		s.False(verdict.Allowed)
		s.Equal(models.GateBlockResearcherUnverified, verdict.Category)
	})

	s.Run("completes once every record is checked", func() {
		accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
		s.Require().NoError(err)
		for _, a := range accounts {
			if !a.ResearcherVerified {
				_, err := s.service.ToggleResearcherVerified(s.ctx, a.ID)
				s.Require().NoError(err)
			}
		}

		completed, err := s.service.CompleteAssignment(s.ctx, assignment.ID)
		s.Require().NoError(err)
		s.True(completed.Completed())
		s.Require().NotNil(completed.CompletedAt)
		s.Equal(s.now, *completed.CompletedAt)
	})
}

func (s *WorkflowServiceSuite) TestInactiveAccountsLeaveTheGate() {
	researcher := id.NewUserID()
	assignment, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)

	s.enterAndSelfCheck(s.personID)

	// Undo one self-check, then retire that account entirely.
	accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
	s.Require().NoError(err)
	_, err = s.service.ToggleResearcherVerified(s.ctx, accounts[0].ID)
	s.Require().NoError(err)

	verdict, err := s.service.EvaluateGate(s.ctx, s.personID, models.TaskDataCollection)
	s.Require().NoError(err)
	s.False(verdict.Allowed)

	_, err = s.service.SetAccountInactive(s.ctx, accounts[0].ID, true)
	s.Require().NoError(err)

	_, err = s.service.CompleteAssignment(s.ctx, assignment.ID)
	s.Require().NoError(err)
}

func (s *WorkflowServiceSuite) TestValidationGateAndSecondaryTrigger() {
	collector, validator := id.NewUserID(), id.NewUserID()

	collection, err := s.service.CreateAssignment(s.ctx, collector, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)
	s.enterAndSelfCheck(s.personID)
	_, err = s.service.CompleteAssignment(s.ctx, collection.ID)
	s.Require().NoError(err)

	validation, err := s.service.CreateAssignment(s.ctx, validator, s.personID, models.TaskDataValidation, "")
	s.Require().NoError(err)

	s.Run("blocked while records await a ruling", func() {
		_, err := s.service.CompleteAssignment(s.ctx, validation.ID)
		var blocked *models.GateBlockedError
		s.Require().ErrorAs(err, &blocked)
		s.Equal(models.GateBlockNeedsVerification, blocked.Category)
		s.Equal(6, blocked.Count)
	})

	s.Run("revise marks modification and re-queues the record", func() {
		accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
		s.Require().NoError(err)

		revised, err := s.service.ReviseAccount(s.ctx, accounts[0].ID, "", "corrected-handle", "collector had a typo")
		s.Require().NoError(err)
		s.Equal(models.StatusRevised, revised.ResearchStatus)
		s.True(revised.ModifiedDuringValidation)
		s.False(revised.Verified)
	})

	s.Run("completion flags person and records for secondary verification", func() {
		s.verifyAll(s.personID)

		completed, err := s.service.CompleteAssignment(s.ctx, validation.ID)
		s.Require().NoError(err)
		s.True(completed.Completed())

		person, err := s.people.FindByID(s.ctx, s.personID)
		s.Require().NoError(err)
		s.True(person.NeedsSecondaryVerification)

		flagged, err := s.service.ListFlaggedAccounts(s.ctx, s.personID)
		s.Require().NoError(err)
		s.Require().Len(flagged, 1)
		s.True(flagged[0].ModifiedDuringValidation)

		queue, err := s.service.ListPeopleNeedingSecondaryVerification(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(queue, 1)
		s.Equal(s.personID, queue[0].ID)
	})

	s.Run("clear drops every flag atomically", func() {
		person, err := s.service.ClearSecondaryVerification(s.ctx, s.personID)
		s.Require().NoError(err)
		s.False(person.NeedsSecondaryVerification)

		flagged, err := s.service.ListFlaggedAccounts(s.ctx, s.personID)
		s.Require().NoError(err)
		s.Empty(flagged)

		modified := true
		stillModified, err := s.service.ListAccounts(s.ctx, s.personID, models.AccountFilter{ModifiedDuringValidation: &modified})
		s.Require().NoError(err)
		s.Empty(stillModified)

		queue, err := s.service.ListPeopleNeedingSecondaryVerification(s.ctx)
		s.Require().NoError(err)
		s.Empty(queue)
	})

	s.Run("clearing an unflagged person is a conflict", func() {
		_, err := s.service.ClearSecondaryVerification(s.ctx, s.personID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *WorkflowServiceSuite) TestValidationGateCoversAllCoreChannels() {
	collector, validator := id.NewUserID(), id.NewUserID()

	collection, err := s.service.CreateAssignment(s.ctx, collector, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)
	s.enterAndSelfCheck(s.personID)
	_, err = s.service.CompleteAssignment(s.ctx, collection.ID)
	s.Require().NoError(err)

	validation, err := s.service.CreateAssignment(s.ctx, validator, s.personID, models.TaskDataValidation, "")
	s.Require().NoError(err)
	s.verifyAll(s.personID)

	// Accounts discovered outside the pre-populated Campaign slots.
	personal, err := s.service.CreateAccount(s.ctx, s.personID,
		models.PlatformTwitter, models.ChannelPersonal, "https://twitter.com/jsmith", "jsmith")
	s.Require().NoError(err)
	s.Equal(models.StatusEntered, personal.ResearchStatus)

	_, err = s.service.CreateAccount(s.ctx, s.personID,
		models.PlatformRumble, models.ChannelPersonal, "https://rumble.com/jsmith", "")
	s.Require().NoError(err)

	s.Run("personal-channel core account blocks completion", func() {
		_, err := s.service.CompleteAssignment(s.ctx, validation.ID)
		var blocked *models.GateBlockedError
		s.Require().ErrorAs(err, &blocked)
		s.Equal(models.GateBlockNeedsVerification, blocked.Category)
		s.Equal(1, blocked.Count)
	})

	s.Run("collection gate stays scoped to campaign records", func() {
		verdict, err := s.service.EvaluateGate(s.ctx, s.personID, models.TaskDataCollection)
		s.Require().NoError(err)
		s.True(verdict.Allowed)
	})

	s.Run("fringe accounts never gate completion", func() {
		_, err := s.service.VerifyAccount(s.ctx, personal.ID, "", "")
		s.Require().NoError(err)

		// The Rumble record is still entered; completion goes through anyway.
		completed, err := s.service.CompleteAssignment(s.ctx, validation.ID)
		s.Require().NoError(err)
		s.True(completed.Completed())
	})
}

func (s *WorkflowServiceSuite) TestValidationCompletionWithoutModificationsDoesNotFlag() {
	collector, validator := id.NewUserID(), id.NewUserID()

	collection, err := s.service.CreateAssignment(s.ctx, collector, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)
	s.enterAndSelfCheck(s.personID)
	_, err = s.service.CompleteAssignment(s.ctx, collection.ID)
	s.Require().NoError(err)

	validation, err := s.service.CreateAssignment(s.ctx, validator, s.personID, models.TaskDataValidation, "")
	s.Require().NoError(err)
	s.verifyAll(s.personID)

	_, err = s.service.CompleteAssignment(s.ctx, validation.ID)
	s.Require().NoError(err)

	person, err := s.people.FindByID(s.ctx, s.personID)
	s.Require().NoError(err)
	s.False(person.NeedsSecondaryVerification)
}

func (s *WorkflowServiceSuite) TestReopenPolicy() {
	collector, validator := id.NewUserID(), id.NewUserID()

	collection, err := s.service.CreateAssignment(s.ctx, collector, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)
	s.enterAndSelfCheck(s.personID)
	_, err = s.service.CompleteAssignment(s.ctx, collection.ID)
	s.Require().NoError(err)

	validation, err := s.service.CreateAssignment(s.ctx, validator, s.personID, models.TaskDataValidation, "")
	s.Require().NoError(err)

	s.Run("collection cannot reopen while validation is active", func() {
		_, err := s.service.ReopenAssignment(s.ctx, collection.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePolicyViolation))
	})

	s.Run("reopen allowed after validation completes", func() {
		s.verifyAll(s.personID)
		_, err := s.service.CompleteAssignment(s.ctx, validation.ID)
		s.Require().NoError(err)

		reopened, err := s.service.ReopenAssignment(s.ctx, collection.ID)
		s.Require().NoError(err)
		s.True(reopened.InProgress())
		s.Nil(reopened.CompletedAt)
	})

	s.Run("validation reopen has no policy guard", func() {
		reopened, err := s.service.ReopenAssignment(s.ctx, validation.ID)
		s.Require().NoError(err)
		s.True(reopened.InProgress())
	})
}

func (s *WorkflowServiceSuite) TestAdminEscapeHatches() {
	researcher := id.NewUserID()
	assignment, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)

	s.Run("force complete bypasses the gate", func() {
		forced, err := s.service.ForceCompleteAssignment(s.ctx, assignment.ID)
		s.Require().NoError(err)
		s.True(forced.Completed())
	})

	s.Run("mark incomplete resets to pending", func() {
		reset, err := s.service.MarkAssignmentIncomplete(s.ctx, assignment.ID)
		s.Require().NoError(err)
		s.True(reset.Pending())
		s.Nil(reset.CompletedAt)
	})

	s.Run("mark incomplete on a non-completed assignment is a conflict", func() {
		_, err := s.service.MarkAssignmentIncomplete(s.ctx, assignment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("delete removes the assignment but keeps accounts", func() {
		s.Require().NoError(s.service.DeleteAssignment(s.ctx, assignment.ID))

		_, err := s.service.GetAssignment(s.ctx, assignment.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
		s.Require().NoError(err)
		s.Len(accounts, 6)
	})
}

func (s *WorkflowServiceSuite) TestQueues() {
	researcher := id.NewUserID()
	people := []id.PersonID{
		s.personID,
		s.seedPerson("Alex", "One"),
		s.seedPerson("Blair", "Two"),
	}

	for i, personID := range people {
		ctx := requestcontext.WithTime(s.ctx, s.now.Add(time.Duration(i)*time.Minute))
		_, err := s.service.CreateAssignment(ctx, researcher, personID, models.TaskDataCollection, "")
		s.Require().NoError(err)
	}

	s.Run("active queue is oldest first", func() {
		queue, err := s.service.ActiveQueue(s.ctx, researcher, models.TaskDataCollection)
		s.Require().NoError(err)
		s.Require().Len(queue, 3)
		s.Equal(people[0], queue[0].PersonID)
		s.Equal(people[2], queue[2].PersonID)
	})

	s.Run("next returns the queue head", func() {
		next, err := s.service.NextAssignment(s.ctx, researcher, models.TaskDataCollection)
		s.Require().NoError(err)
		s.Equal(people[0], next.PersonID)
	})

	s.Run("stats count per status", func() {
		next, err := s.service.NextAssignment(s.ctx, researcher, models.TaskDataCollection)
		s.Require().NoError(err)
		_, err = s.service.StartAssignment(s.ctx, next.ID)
		s.Require().NoError(err)

		stats, err := s.service.Stats(s.ctx, researcher, models.TaskDataCollection)
		s.Require().NoError(err)
		s.Equal(QueueStats{Pending: 2, InProgress: 1, CompletedTotal: 0}, stats)
	})

	s.Run("status filter narrows the queue", func() {
		inProgress, err := s.service.ActiveQueue(s.ctx, researcher, models.TaskDataCollection, models.AssignmentInProgress)
		s.Require().NoError(err)
		s.Require().Len(inProgress, 1)
		s.Equal(people[0], inProgress[0].PersonID)

		pending, err := s.service.ActiveQueue(s.ctx, researcher, models.TaskDataCollection, models.AssignmentPending)
		s.Require().NoError(err)
		s.Len(pending, 2)

		_, err = s.service.ActiveQueue(s.ctx, researcher, models.TaskDataCollection, models.AssignmentCompleted)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("completed queue is newest completion first", func() {
		queue, err := s.service.ActiveQueue(s.ctx, researcher, models.TaskDataCollection)
		s.Require().NoError(err)
		for i, a := range queue {
			s.enterAndSelfCheck(a.PersonID)
			ctx := requestcontext.WithTime(s.ctx, s.now.Add(time.Duration(i)*time.Hour))
			_, err := s.service.CompleteAssignment(ctx, a.ID)
			s.Require().NoError(err)
		}

		completed, err := s.service.CompletedQueue(s.ctx, researcher, models.TaskDataCollection, 2)
		s.Require().NoError(err)
		s.Require().Len(completed, 2)
		s.Equal(people[2], completed[0].PersonID)

		empty, err := s.service.NextAssignment(s.ctx, researcher, models.TaskDataCollection)
		s.Nil(empty)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *WorkflowServiceSuite) TestAccountTransitionsRequireValidState() {
	researcher := id.NewUserID()
	_, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)

	accounts, err := s.service.ListAccounts(s.ctx, s.personID, models.CampaignCore())
	s.Require().NoError(err)
	accountID := accounts[0].ID

	s.Run("entry without url or handle fails validation", func() {
		_, err := s.service.MarkEntered(s.ctx, accountID, "", "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejection without notes fails validation", func() {
		_, err := s.service.MarkEntered(s.ctx, accountID, "https://example.com/a", "")
		s.Require().NoError(err)
		_, err = s.service.RejectAccount(s.ctx, accountID, " ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unverify restores the verification queue", func() {
		verified, err := s.service.VerifyAccount(s.ctx, accountID, "", "ads library")
		s.Require().NoError(err)
		s.Equal("ads library", verified.ValidationSource)

		unverified, err := s.service.UnverifyAccount(s.ctx, accountID)
		s.Require().NoError(err)
		s.Equal(models.StatusEntered, unverified.ResearchStatus)
		s.True(unverified.NeedsVerification())
	})

	s.Run("unknown account is not found", func() {
		_, err := s.service.MarkNotFound(s.ctx, id.NewAccountID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("research notes update without a transition", func() {
		account, err := s.service.UpdateResearchNotes(s.ctx, accountID, "checked FEC filings")
		s.Require().NoError(err)
		s.Equal("checked FEC filings", account.ResearchNotes)
		s.Equal(models.StatusEntered, account.ResearchStatus)
	})
}

func (s *WorkflowServiceSuite) TestAuditTrail() {
	researcher := id.NewUserID()
	assignment, err := s.service.CreateAssignment(s.ctx, researcher, s.personID, models.TaskDataCollection, "")
	s.Require().NoError(err)
	_, err = s.service.StartAssignment(s.ctx, assignment.ID)
	s.Require().NoError(err)

	events, err := s.trail.ListByPerson(s.ctx, s.personID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionAssignmentCreated, events[0].Action)
	s.Equal(audit.ActionAssignmentStarted, events[1].Action)
	s.Equal(s.admin, events[0].ActorID)
	s.Equal(s.now, events[0].Timestamp)
}
