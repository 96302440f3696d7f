//go:build integration

package account

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

type AccountPostgresSuite struct {
	suite.Suite

	pg     *containers.PostgresContainer
	store  *Postgres
	people *personstore.Postgres

	ctx context.Context
	now time.Time
}

func TestAccountPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AccountPostgresSuite))
}

func (s *AccountPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.people = personstore.NewPostgres(s.pg.DB)
}

func (s *AccountPostgresSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "social_media_accounts", "assignments", "people"))
}

func (s *AccountPostgresSuite) seedPerson() id.PersonID {
	person, err := models.NewPerson(id.NewPersonID(), "Jordan", "Smith", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.people.Create(s.ctx, person))
	return person.ID
}

func (s *AccountPostgresSuite) newAccount(personID id.PersonID, platform models.Platform, channel models.ChannelType) *models.SocialMediaAccount {
	account, err := models.NewAccount(id.NewAccountID(), personID, platform, channel, s.now)
	s.Require().NoError(err)
	return account
}

func (s *AccountPostgresSuite) TestRoundTrip() {
	personID := s.seedPerson()
	actor := id.NewUserID()

	account := s.newAccount(personID, models.PlatformTwitter, models.ChannelCampaign)
	account.ApplyMarkEntered(actor, "https://twitter.com/example", "example", s.now)
	s.Require().NoError(s.store.Create(s.ctx, account))

	found, err := s.store.FindByID(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(models.PlatformTwitter, found.Platform)
	s.Equal(models.ChannelCampaign, found.ChannelType)
	s.Equal("https://twitter.com/example", found.URL)
	s.Equal("example", found.Handle)
	s.Equal(models.StatusEntered, found.ResearchStatus)
	s.Require().NotNil(found.EnteredByID)
	s.Equal(actor, *found.EnteredByID)
	s.Require().NotNil(found.EnteredAt)
	s.True(found.EnteredAt.Equal(s.now))
	s.Nil(found.VerifiedByID)

	s.Run("unknown id is ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.NewAccountID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AccountPostgresSuite) TestUniqueIndexes() {
	personID := s.seedPerson()

	s.Run("handle uniqueness is case-insensitive within the tuple", func() {
		first := s.newAccount(personID, models.PlatformTwitter, models.ChannelCampaign)
		first.Handle = "SenSmith"
		s.Require().NoError(s.store.Create(s.ctx, first))

		dup := s.newAccount(personID, models.PlatformTwitter, models.ChannelCampaign)
		dup.Handle = "sensmith"
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("same handle on another channel is allowed", func() {
		other := s.newAccount(personID, models.PlatformTwitter, models.ChannelPersonal)
		other.Handle = "SenSmith"
		s.Require().NoError(s.store.Create(s.ctx, other))
	})

	s.Run("one pre-populated slot per tuple", func() {
		prepop, err := models.NewPrePopulatedAccount(id.NewAccountID(), personID, models.PlatformFacebook, models.ChannelCampaign, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(s.ctx, prepop))

		again, err := models.NewPrePopulatedAccount(id.NewAccountID(), personID, models.PlatformFacebook, models.ChannelCampaign, s.now)
		s.Require().NoError(err)
		s.Require().ErrorIs(s.store.Create(s.ctx, again), sentinel.ErrAlreadyUsed)
	})

	s.Run("blank handles never collide", func() {
		a := s.newAccount(personID, models.PlatformRumble, models.ChannelCampaign)
		b := s.newAccount(personID, models.PlatformRumble, models.ChannelCampaign)
		s.Require().NoError(s.store.Create(s.ctx, a))
		s.Require().NoError(s.store.Create(s.ctx, b))
	})
}

func (s *AccountPostgresSuite) TestExecute() {
	personID := s.seedPerson()
	actor := id.NewUserID()
	account := s.newAccount(personID, models.PlatformInstagram, models.ChannelCampaign)
	s.Require().NoError(s.store.Create(s.ctx, account))

	s.Run("validate failure rolls back", func() {
		_, err := s.store.Execute(s.ctx, account.ID,
			func(*models.SocialMediaAccount) error { return sentinel.ErrInvalidState },
			func(a *models.SocialMediaAccount) { a.Handle = "should-not-land" },
		)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.FindByID(s.ctx, account.ID)
		s.Require().NoError(err)
		s.Empty(found.Handle)
	})

	s.Run("transition persists nullable columns", func() {
		_, err := s.store.Execute(s.ctx, account.ID,
			func(*models.SocialMediaAccount) error { return nil },
			func(a *models.SocialMediaAccount) {
				a.ApplyMarkEntered(actor, "https://instagram.com/x", "x", s.now)
				a.ApplyVerify(actor, "looks right", s.now)
			},
		)
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, account.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, found.ResearchStatus)
		s.True(found.Verified)
		s.Require().NotNil(found.VerifiedByID)
		s.Equal(actor, *found.VerifiedByID)
		s.Equal("looks right", found.VerificationNotes)
	})
}

func (s *AccountPostgresSuite) TestListByPersonFilters() {
	personID := s.seedPerson()
	other := s.seedPerson()

	core := s.newAccount(personID, models.PlatformTwitter, models.ChannelCampaign)
	fringe := s.newAccount(personID, models.PlatformGettr, models.ChannelCampaign)
	personal := s.newAccount(personID, models.PlatformInstagram, models.ChannelPersonal)
	foreign := s.newAccount(other, models.PlatformTwitter, models.ChannelCampaign)
	for _, a := range []*models.SocialMediaAccount{core, fringe, personal, foreign} {
		s.Require().NoError(s.store.Create(s.ctx, a))
	}

	s.Run("zero filter returns the person's accounts only", func() {
		accounts, err := s.store.ListByPerson(s.ctx, personID, models.AccountFilter{})
		s.Require().NoError(err)
		s.Len(accounts, 3)
	})

	s.Run("campaign core filter excludes fringe and personal", func() {
		accounts, err := s.store.ListByPerson(s.ctx, personID, models.CampaignCore())
		s.Require().NoError(err)
		s.Require().Len(accounts, 1)
		s.Equal(core.ID, accounts[0].ID)
	})

	s.Run("flag filter matches the modified column", func() {
		_, err := s.store.Execute(s.ctx, fringe.ID,
			func(*models.SocialMediaAccount) error { return nil },
			func(a *models.SocialMediaAccount) { a.ModifiedDuringValidation = true },
		)
		s.Require().NoError(err)

		modified := true
		accounts, err := s.store.ListByPerson(s.ctx, personID, models.AccountFilter{ModifiedDuringValidation: &modified})
		s.Require().NoError(err)
		s.Require().Len(accounts, 1)
		s.Equal(fringe.ID, accounts[0].ID)
	})
}

func (s *AccountPostgresSuite) TestClearSecondaryFlags() {
	personID := s.seedPerson()

	flagged := s.newAccount(personID, models.PlatformTwitter, models.ChannelCampaign)
	flagged.ModifiedDuringValidation = true
	flagged.NeedsSecondaryVerification = true
	clean := s.newAccount(personID, models.PlatformFacebook, models.ChannelCampaign)
	s.Require().NoError(s.store.Create(s.ctx, flagged))
	s.Require().NoError(s.store.Create(s.ctx, clean))

	s.Require().NoError(s.store.ClearSecondaryFlags(s.ctx, personID))

	accounts, err := s.store.ListByPerson(s.ctx, personID, models.AccountFilter{})
	s.Require().NoError(err)
	s.Require().Len(accounts, 2)
	for _, a := range accounts {
		s.False(a.ModifiedDuringValidation)
		s.False(a.NeedsSecondaryVerification)
	}
}
