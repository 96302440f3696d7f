package service

import (
	"context"
	"fmt"

	"rollcall/internal/audit"
	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/requestcontext"
)

// triggerSecondaryVerification runs after a data_validation assignment
// completes. Any record whose url/handle a validator changed mid-validation
// (modified_during_validation) is escalated: the record and the person are
// flagged needs_secondary_verification so a second validator re-checks the
// changed data. No modified records means no flags and no event.
func (s *Service) triggerSecondaryVerification(ctx context.Context, personID id.PersonID) error {
	modified := true
	accounts, err := s.accounts.ListByPerson(ctx, personID, models.AccountFilter{ModifiedDuringValidation: &modified})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan for modified accounts")
	}
	if len(accounts) == 0 {
		return nil
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for _, account := range accounts {
			_, err := s.accounts.Execute(txCtx, account.ID,
				func(*models.SocialMediaAccount) error { return nil },
				func(a *models.SocialMediaAccount) {
					a.NeedsSecondaryVerification = true
					a.UpdatedAt = now
				},
			)
			if err != nil {
				return wrapAccountErr(err)
			}
		}
		_, err := s.people.Execute(txCtx,
			personID,
			func(*models.Person) error { return nil },
			func(p *models.Person) {
				p.NeedsSecondaryVerification = true
				p.UpdatedAt = now
			},
		)
		if err != nil {
			return wrapPersonErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.ActionSecondaryVerificationFlagged, personID, "person", personID.String(),
		fmt.Sprintf("%d accounts modified during validation", len(accounts)))
	if s.metrics != nil {
		s.metrics.IncrementSecondaryFlagged()
	}
	return nil
}

// ClearSecondaryVerification resolves a person's escalation: the person flag
// and every account's needs_secondary_verification and
// modified_during_validation flags drop together. The clear is all-or-nothing;
// a partially cleared person would look resolved while records still carry
// stale flags.
func (s *Service) ClearSecondaryVerification(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	now := requestcontext.Now(ctx)

	var person *models.Person
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.people.Execute(txCtx, personID,
			func(p *models.Person) error {
				if !p.NeedsSecondaryVerification {
					return dErrors.New(dErrors.CodeConflict, "person is not flagged for secondary verification")
				}
				return nil
			},
			func(p *models.Person) {
				p.NeedsSecondaryVerification = false
				p.UpdatedAt = now
			},
		)
		if err != nil {
			return wrapPersonErr(err)
		}
		if err := s.accounts.ClearSecondaryFlags(txCtx, personID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear account flags")
		}
		person = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.ActionSecondaryVerificationCleared, personID, "person", personID.String(), "")
	return person, nil
}

// ListPeopleNeedingSecondaryVerification returns everyone currently flagged,
// backing the admin escalation review queue.
func (s *Service) ListPeopleNeedingSecondaryVerification(ctx context.Context) ([]*models.Person, error) {
	people, err := s.people.ListNeedingSecondaryVerification(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list flagged people")
	}
	return people, nil
}

// ListFlaggedAccounts returns the person's records awaiting secondary
// verification.
func (s *Service) ListFlaggedAccounts(ctx context.Context, personID id.PersonID) ([]*models.SocialMediaAccount, error) {
	flagged := true
	accounts, err := s.accounts.ListByPerson(ctx, personID, models.AccountFilter{NeedsSecondaryVerification: &flagged})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list flagged accounts")
	}
	return accounts, nil
}
