package service

import (
	"context"
	"fmt"
	"strings"

	"rollcall/internal/audit"
	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/requestcontext"
)

// PrepopulateAccounts creates the person's research surface: one not_started
// Campaign record per core platform. Idempotent; platforms that already have
// a pre-populated Campaign record are left alone, so calling it for a person
// mid-research never disturbs entered data.
func (s *Service) PrepopulateAccounts(ctx context.Context, personID id.PersonID) (int, error) {
	if _, err := s.people.FindByID(ctx, personID); err != nil {
		return 0, wrapPersonErr(err)
	}
	count, err := s.prepopulate(ctx, personID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) prepopulate(ctx context.Context, personID id.PersonID) (int, error) {
	existing, err := s.accounts.ListByPerson(ctx, personID, models.AccountFilter{ChannelType: models.ChannelCampaign, CoreOnly: true})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	populated := make(map[models.Platform]bool, len(existing))
	for _, a := range existing {
		if a.PrePopulated {
			populated[a.Platform] = true
		}
	}

	now := requestcontext.Now(ctx)
	created := 0
	for _, platform := range models.CorePlatforms() {
		if populated[platform] {
			continue
		}
		account, err := models.NewPrePopulatedAccount(id.NewAccountID(), personID, platform, models.ChannelCampaign, now)
		if err != nil {
			return created, err
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return created, wrapAccountErr(err)
		}
		created++
	}
	return created, nil
}

// CreateAccount records a manually discovered account (fringe platform, extra
// channel). Pre-population covers the core surface; this covers everything
// found beyond it.
func (s *Service) CreateAccount(ctx context.Context, personID id.PersonID, platform models.Platform, channel models.ChannelType, url, handle string) (*models.SocialMediaAccount, error) {
	if _, err := s.people.FindByID(ctx, personID); err != nil {
		return nil, wrapPersonErr(err)
	}

	now := requestcontext.Now(ctx)
	account, err := models.NewAccount(id.NewAccountID(), personID, platform, channel, now)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, err.Error())
	}
	if strings.TrimSpace(url) != "" || strings.TrimSpace(handle) != "" {
		account.ApplyMarkEntered(requestcontext.UserID(ctx), url, handle, now)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, wrapAccountErr(err)
	}
	return account, nil
}

// GetAccount returns one account record by id.
func (s *Service) GetAccount(ctx context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, wrapAccountErr(err)
	}
	return account, nil
}

// ListAccounts returns the person's account records matching the filter.
func (s *Service) ListAccounts(ctx context.Context, personID id.PersonID, filter models.AccountFilter) ([]*models.SocialMediaAccount, error) {
	if _, err := s.people.FindByID(ctx, personID); err != nil {
		return nil, wrapPersonErr(err)
	}
	accounts, err := s.accounts.ListByPerson(ctx, personID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	return accounts, nil
}

// MarkEntered records found account data. At least one of url or handle is
// required.
func (s *Service) MarkEntered(ctx context.Context, accountID id.AccountID, url, handle string) (*models.SocialMediaAccount, error) {
	actor := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.SocialMediaAccount) error { return a.CanMarkEntered(url, handle) },
		func(a *models.SocialMediaAccount) { a.ApplyMarkEntered(actor, url, handle, now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.ActionAccountEntered, account.PersonID, "account", account.ID.String(),
		fmt.Sprintf("platform=%s %s", account.Platform, account.DisplayName()))
	return account, nil
}

// MarkNotFound records that the researcher looked and found no account on the
// platform. That claim still goes to validation.
func (s *Service) MarkNotFound(ctx context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error) {
	actor := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(*models.SocialMediaAccount) error { return nil },
		func(a *models.SocialMediaAccount) { a.ApplyMarkNotFound(actor, now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.ActionAccountNotFound, account.PersonID, "account", account.ID.String(),
		fmt.Sprintf("platform=%s", account.Platform))
	return account, nil
}

// ResetStatus wipes a record back to not_started so it can be researched
// again. Available to both lanes; the reset itself is audited.
func (s *Service) ResetStatus(ctx context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error) {
	actor := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(*models.SocialMediaAccount) error { return nil },
		func(a *models.SocialMediaAccount) { a.ApplyReset(actor, now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.ActionAccountReset, account.PersonID, "account", account.ID.String(),
		fmt.Sprintf("platform=%s", account.Platform))
	return account, nil
}

// VerifyAccount records a validator confirming the entered data.
func (s *Service) VerifyAccount(ctx context.Context, accountID id.AccountID, notes, source string) (*models.SocialMediaAccount, error) {
	actor := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.SocialMediaAccount) error { return a.CanVerify() },
		func(a *models.SocialMediaAccount) {
			a.ApplyVerify(actor, notes, now)
			if source != "" {
				a.ValidationSource = source
			}
		},
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.ActionAccountVerified, account.PersonID, "account", account.ID.String(),
		fmt.Sprintf("platform=%s", account.Platform))
	return account, nil
}

// RejectAccount records a validator refusing the entered data. Notes are
// mandatory: a rejection without a reason gives the researcher nothing to fix.
func (s *Service) RejectAccount(ctx context.Context, accountID id.AccountID, notes string) (*models.SocialMediaAccount, error) {
	actor := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.SocialMediaAccount) error { return a.CanReject(notes) },
		func(a *models.SocialMediaAccount) { a.ApplyReject(actor, notes, now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.ActionAccountRejected, account.PersonID, "account", account.ID.String(),
		fmt.Sprintf("platform=%s", account.Platform))
	return account, nil
}

// ReviseAccount corrects a record's data during validation. The record ends
// revised/unverified regardless; when the stored url/handle actually changed
// it is additionally marked modified_during_validation, feeding the secondary
// verification trigger at assignment completion.
func (s *Service) ReviseAccount(ctx context.Context, accountID id.AccountID, url, handle, notes string) (*models.SocialMediaAccount, error) {
	actor := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)
	changed := false
	account, err := s.accounts.Execute(ctx, accountID,
		func(*models.SocialMediaAccount) error { return nil },
		func(a *models.SocialMediaAccount) { changed = a.ApplyRevise(actor, url, handle, notes, now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	detail := fmt.Sprintf("platform=%s", account.Platform)
	if changed {
		detail += " data_changed"
	}
	s.emit(ctx, audit.ActionAccountRevised, account.PersonID, "account", account.ID.String(), detail)
	return account, nil
}

// UnverifyAccount reverts a verified record so a validator can rule again.
func (s *Service) UnverifyAccount(ctx context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error) {
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.SocialMediaAccount) error { return a.CanUnverify() },
		func(a *models.SocialMediaAccount) { a.ApplyUnverify(now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.ActionAccountUnverified, account.PersonID, "account", account.ID.String(),
		fmt.Sprintf("platform=%s", account.Platform))
	return account, nil
}

// ToggleResearcherVerified flips the collector's self-check flag. The gate
// requires the flag on every core Campaign record before data_collection can
// complete.
func (s *Service) ToggleResearcherVerified(ctx context.Context, accountID id.AccountID) (*models.SocialMediaAccount, error) {
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(*models.SocialMediaAccount) error { return nil },
		func(a *models.SocialMediaAccount) { a.ApplyToggleResearcherVerified(now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.ActionAccountSelfChecked, account.PersonID, "account", account.ID.String(),
		fmt.Sprintf("platform=%s researcher_verified=%t", account.Platform, account.ResearcherVerified))
	return account, nil
}

// UpdateResearchNotes replaces the researcher's free-form notes. No status
// transition and no audit event; notes are working scratch, not provenance.
func (s *Service) UpdateResearchNotes(ctx context.Context, accountID id.AccountID, notes string) (*models.SocialMediaAccount, error) {
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(*models.SocialMediaAccount) error { return nil },
		func(a *models.SocialMediaAccount) {
			a.ResearchNotes = notes
			a.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}
	return account, nil
}

// SetAccountInactive flags or unflags a record as pointing at a dead account.
// Inactive records drop out of the completion gate.
func (s *Service) SetAccountInactive(ctx context.Context, accountID id.AccountID, inactive bool) (*models.SocialMediaAccount, error) {
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(*models.SocialMediaAccount) error { return nil },
		func(a *models.SocialMediaAccount) {
			a.AccountInactive = inactive
			a.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}
	return account, nil
}
