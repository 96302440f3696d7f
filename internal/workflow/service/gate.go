package service

import (
	"context"

	"rollcall/internal/workflow/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// EvaluateGate computes the completion gate verdict for one person and task
// type. The verdict is computed fresh from the person's current records;
// nothing is cached between completion attempts.
//
// Each lane is graded against its own surface. data_collection covers the
// pre-populated core-platform Campaign records and requires, in order:
//  1. no record still needing research (pre-populated and never touched)
//  2. every record self-checked by the researcher (researcher_verified)
//
// data_validation covers every core-platform record regardless of channel —
// Personal and Official Office records get validator rulings too — and
// requires no record still awaiting one.
//
// Inactive records are out of scope for the gate: a platform the person
// provably left owes nobody any work.
//
// The collection checks are ordered so the blocking message names the earlier
// failure: telling a researcher about missing self-checks is useless while
// rows are still untouched.
func (s *Service) EvaluateGate(ctx context.Context, personID id.PersonID, taskType models.TaskType) (models.GateVerdict, error) {
	var filter models.AccountFilter
	switch taskType {
	case models.TaskDataCollection:
		filter = models.CampaignCore()
	case models.TaskDataValidation:
		filter = models.Core()
	default:
		return models.GateVerdict{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid task type", taskType)
	}

	accounts, err := s.accounts.ListByPerson(ctx, personID, filter)
	if err != nil {
		return models.GateVerdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load accounts for gate")
	}

	if taskType == models.TaskDataCollection {
		return collectionVerdict(accounts), nil
	}
	return validationVerdict(accounts), nil
}

func collectionVerdict(accounts []*models.SocialMediaAccount) models.GateVerdict {
	needsResearch := 0
	unverified := 0
	for _, a := range accounts {
		if !a.Active() {
			continue
		}
		if a.NeedsResearch() {
			needsResearch++
		}
		if !a.ResearcherVerified {
			unverified++
		}
	}
	if needsResearch > 0 {
		return models.BlockedVerdict(models.GateBlockNeedsResearch, needsResearch)
	}
	if unverified > 0 {
		return models.BlockedVerdict(models.GateBlockResearcherUnverified, unverified)
	}
	return models.AllowedVerdict()
}

func validationVerdict(accounts []*models.SocialMediaAccount) models.GateVerdict {
	needsVerification := 0
	for _, a := range accounts {
		if !a.Active() {
			continue
		}
		if a.NeedsVerification() {
			needsVerification++
		}
	}
	if needsVerification > 0 {
		return models.BlockedVerdict(models.GateBlockNeedsVerification, needsVerification)
	}
	return models.AllowedVerdict()
}
