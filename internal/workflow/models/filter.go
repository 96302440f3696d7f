package models

// AccountFilter narrows account queries. The zero value matches everything.
//
// These replace the original catalog's implicit query scopes: filtering is an
// explicit argument to the store, not behavior attached to the entity type.
type AccountFilter struct {
	// ChannelType restricts to one channel when non-blank.
	ChannelType ChannelType

	// CoreOnly restricts to the six core platforms.
	CoreOnly bool

	// ModifiedDuringValidation filters on the escalation flag when set.
	ModifiedDuringValidation *bool

	// NeedsSecondaryVerification filters on the escalation result when set.
	NeedsSecondaryVerification *bool
}

// CampaignCore is the collection gate's filter: the pre-populated research
// surface a data_collection assignment is graded against.
func CampaignCore() AccountFilter {
	return AccountFilter{ChannelType: ChannelCampaign, CoreOnly: true}
}

// Core is the validation gate's filter: every core-platform record regardless
// of channel. Validators rule on Personal and Official Office records too, so
// the gate must see them.
func Core() AccountFilter {
	return AccountFilter{CoreOnly: true}
}

// Matches reports whether the account passes the filter.
func (f AccountFilter) Matches(a *SocialMediaAccount) bool {
	if f.ChannelType != "" && a.ChannelType != f.ChannelType {
		return false
	}
	if f.CoreOnly && !a.Platform.IsCore() {
		return false
	}
	if f.ModifiedDuringValidation != nil && a.ModifiedDuringValidation != *f.ModifiedDuringValidation {
		return false
	}
	if f.NeedsSecondaryVerification != nil && a.NeedsSecondaryVerification != *f.NeedsSecondaryVerification {
		return false
	}
	return true
}
