package models

import (
	"strings"
	"time"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Platform is a social network tracked for a person.
type Platform string

const (
	PlatformFacebook  Platform = "Facebook"
	PlatformTwitter   Platform = "Twitter"
	PlatformInstagram Platform = "Instagram"
	PlatformYouTube   Platform = "YouTube"
	PlatformTikTok    Platform = "TikTok"
	PlatformBlueSky   Platform = "BlueSky"

	PlatformTruthSocial Platform = "TruthSocial"
	PlatformGettr       Platform = "Gettr"
	PlatformRumble      Platform = "Rumble"
	PlatformTelegram    Platform = "Telegram"
	PlatformThreads     Platform = "Threads"
)

// CorePlatforms are the six primary networks tracked for every candidate.
// Pre-population creates one Campaign-channel record per core platform, and
// only these gate assignment completion.
func CorePlatforms() []Platform {
	return []Platform{
		PlatformFacebook,
		PlatformTwitter,
		PlatformInstagram,
		PlatformYouTube,
		PlatformTikTok,
		PlatformBlueSky,
	}
}

// FringePlatforms are tracked when found but never pre-populated and never
// block completion.
func FringePlatforms() []Platform {
	return []Platform{
		PlatformTruthSocial,
		PlatformGettr,
		PlatformRumble,
		PlatformTelegram,
		PlatformThreads,
	}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformTwitter, PlatformInstagram, PlatformYouTube,
		PlatformTikTok, PlatformBlueSky, PlatformTruthSocial, PlatformGettr,
		PlatformRumble, PlatformTelegram, PlatformThreads:
		return true
	}
	return false
}

func (p Platform) IsCore() bool {
	switch p {
	case PlatformFacebook, PlatformTwitter, PlatformInstagram, PlatformYouTube,
		PlatformTikTok, PlatformBlueSky:
		return true
	}
	return false
}

// ChannelType distinguishes who operates the account.
type ChannelType string

const (
	ChannelCampaign       ChannelType = "Campaign"
	ChannelOfficialOffice ChannelType = "Official Office"
	ChannelPersonal       ChannelType = "Personal"
)

// Valid allows blank: manually created records may not know the channel yet.
func (c ChannelType) Valid() bool {
	switch c {
	case "", ChannelCampaign, ChannelOfficialOffice, ChannelPersonal:
		return true
	}
	return false
}

// ResearchStatus tracks one account record through discovery and validation.
//
// Transitions:
//
//	not_started -> entered | not_found            (collection)
//	entered | not_found | revised -> verified | rejected  (validation)
//	any -> revised                                (edit invalidating prior work)
//	any -> not_started                            (explicit reset)
type ResearchStatus string

const (
	StatusNotStarted ResearchStatus = "not_started"
	StatusEntered    ResearchStatus = "entered"
	StatusNotFound   ResearchStatus = "not_found"
	StatusVerified   ResearchStatus = "verified"
	StatusRejected   ResearchStatus = "rejected"
	StatusRevised    ResearchStatus = "revised"
)

func (s ResearchStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusEntered, StatusNotFound, StatusVerified,
		StatusRejected, StatusRevised:
		return true
	}
	return false
}

// NeedsVerification reports whether a validator still has to look at a record
// in this status. not_found counts: "researcher couldn't find an account" is
// itself a claim a validator must confirm. rejected does not: the validator
// already ruled on it.
func (s ResearchStatus) NeedsVerification() bool {
	switch s {
	case StatusEntered, StatusNotFound, StatusRevised:
		return true
	}
	return false
}

// SocialMediaAccount is one (person, platform, channel) research record.
//
// Invariants:
//   - Platform is a known platform; ChannelType is known or blank
//   - Handle is unique within (person, platform, channel_type) when non-blank
//     (enforced by the store)
//   - Verified is true only while ResearchStatus is verified; Revise always
//     clears it
type SocialMediaAccount struct {
	ID          id.AccountID
	PersonID    id.PersonID
	Platform    Platform
	ChannelType ChannelType

	URL    string
	Handle string

	ResearchStatus     ResearchStatus
	Verified           bool
	ResearcherVerified bool
	PrePopulated       bool
	AccountInactive    bool

	// ModifiedDuringValidation is set when a validator's edit changes
	// url/handle from what collection produced. It feeds the secondary
	// verification trigger and is cleared only by ClearSecondaryVerification.
	ModifiedDuringValidation   bool
	NeedsSecondaryVerification bool

	EnteredByID  *id.UserID
	EnteredAt    *time.Time
	VerifiedByID *id.UserID
	VerifiedAt   *time.Time

	ResearchNotes     string
	VerificationNotes string
	ValidationSource  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount constructs a manually created account record.
func NewAccount(accountID id.AccountID, personID id.PersonID, platform Platform, channel ChannelType, now time.Time) (*SocialMediaAccount, error) {
	if !platform.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "%s is not a valid platform", platform)
	}
	if !channel.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "%s is not a valid channel type", channel)
	}
	return &SocialMediaAccount{
		ID:             accountID,
		PersonID:       personID,
		Platform:       platform,
		ChannelType:    channel,
		ResearchStatus: StatusNotStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewPrePopulatedAccount constructs the placeholder record created when a
// data_collection assignment is handed out.
func NewPrePopulatedAccount(accountID id.AccountID, personID id.PersonID, platform Platform, channel ChannelType, now time.Time) (*SocialMediaAccount, error) {
	account, err := NewAccount(accountID, personID, platform, channel, now)
	if err != nil {
		return nil, err
	}
	account.PrePopulated = true
	return account, nil
}

// NeedsResearch reports whether collection still owes this record work.
func (a *SocialMediaAccount) NeedsResearch() bool {
	return a.PrePopulated && a.ResearchStatus == StatusNotStarted
}

// NeedsVerification reports whether validation still owes this record work.
func (a *SocialMediaAccount) NeedsVerification() bool {
	return a.ResearchStatus.NeedsVerification()
}

func (a *SocialMediaAccount) Active() bool {
	return !a.AccountInactive
}

// DisplayName renders the handle when present, otherwise the URL.
func (a *SocialMediaAccount) DisplayName() string {
	if a.Handle != "" {
		return "@" + a.Handle
	}
	return a.URL
}

// CanMarkEntered checks the mark_entered input requirement: at least one of
// url or handle must be non-blank.
func (a *SocialMediaAccount) CanMarkEntered(url, handle string) error {
	if strings.TrimSpace(url) == "" && strings.TrimSpace(handle) == "" {
		return dErrors.New(dErrors.CodeValidation, "url or handle is required")
	}
	return nil
}

// ApplyMarkEntered records found account data and moves to entered.
// Call CanMarkEntered first.
func (a *SocialMediaAccount) ApplyMarkEntered(actor id.UserID, url, handle string, now time.Time) {
	a.URL = strings.TrimSpace(url)
	a.Handle = strings.TrimSpace(handle)
	a.ResearchStatus = StatusEntered
	a.EnteredByID = &actor
	a.EnteredAt = &now
	a.UpdatedAt = now
}

// ApplyMarkNotFound records that the researcher could not find an account on
// this platform. Existing url/handle are kept for audit.
func (a *SocialMediaAccount) ApplyMarkNotFound(actor id.UserID, now time.Time) {
	a.ResearchStatus = StatusNotFound
	a.EnteredByID = &actor
	a.EnteredAt = &now
	a.UpdatedAt = now
}

// ApplyReset wipes entry data so the record can be researched again.
func (a *SocialMediaAccount) ApplyReset(actor id.UserID, now time.Time) {
	a.URL = ""
	a.Handle = ""
	a.ResearchStatus = StatusNotStarted
	a.Verified = false
	a.ResearcherVerified = false
	a.EnteredByID = &actor
	a.EnteredAt = &now
	a.VerifiedByID = nil
	a.VerifiedAt = nil
	a.UpdatedAt = now
}

// CanVerify checks that the record is awaiting validation.
func (a *SocialMediaAccount) CanVerify() error {
	if !a.NeedsVerification() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "account in status %s cannot be verified", a.ResearchStatus)
	}
	return nil
}

// ApplyVerify marks the record validator-confirmed. Call CanVerify first.
func (a *SocialMediaAccount) ApplyVerify(actor id.UserID, notes string, now time.Time) {
	a.ResearchStatus = StatusVerified
	a.Verified = true
	a.VerifiedByID = &actor
	a.VerifiedAt = &now
	if notes != "" {
		a.VerificationNotes = notes
	}
	a.UpdatedAt = now
}

// CanReject checks the mandatory rejection reason.
func (a *SocialMediaAccount) CanReject(notes string) error {
	if strings.TrimSpace(notes) == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection notes are required")
	}
	return nil
}

// ApplyReject records a validator's disagreement with the entered data.
// Call CanReject first.
func (a *SocialMediaAccount) ApplyReject(actor id.UserID, notes string, now time.Time) {
	a.ResearchStatus = StatusRejected
	a.Verified = false
	a.VerifiedByID = &actor
	a.VerifiedAt = &now
	a.VerificationNotes = strings.TrimSpace(notes)
	a.UpdatedAt = now
}

// ApplyRevise corrects account data after entry. This is the one transition
// that moves out of verified: the record always ends revised/unverified and
// re-queues for verification. Blank url/handle arguments keep existing data.
// Returns whether the stored url/handle actually changed.
func (a *SocialMediaAccount) ApplyRevise(actor id.UserID, url, handle, notes string, now time.Time) bool {
	changed := false
	if u := strings.TrimSpace(url); u != "" && u != a.URL {
		a.URL = u
		changed = true
	}
	if h := strings.TrimSpace(handle); h != "" && h != a.Handle {
		a.Handle = h
		changed = true
	}
	a.ResearchStatus = StatusRevised
	a.Verified = false
	a.VerifiedByID = &actor
	a.VerifiedAt = &now
	if notes != "" {
		a.VerificationNotes = notes
	}
	if changed {
		a.ModifiedDuringValidation = true
	}
	a.UpdatedAt = now
	return changed
}

// CanUnverify checks that there is a verification to revert.
func (a *SocialMediaAccount) CanUnverify() error {
	if a.ResearchStatus != StatusVerified {
		return dErrors.Newf(dErrors.CodeInvalidInput, "account in status %s is not verified", a.ResearchStatus)
	}
	return nil
}

// ApplyUnverify reverts a verified record so the validator can edit it again.
// Falls back to not_found when no account data survives, mirroring how the
// record got verified in the first place. Call CanUnverify first.
func (a *SocialMediaAccount) ApplyUnverify(now time.Time) {
	if a.URL != "" || a.Handle != "" {
		a.ResearchStatus = StatusEntered
	} else {
		a.ResearchStatus = StatusNotFound
	}
	a.Verified = false
	a.VerifiedByID = nil
	a.VerifiedAt = nil
	a.UpdatedAt = now
}

// ApplyToggleResearcherVerified flips the collector's self-check flag.
func (a *SocialMediaAccount) ApplyToggleResearcherVerified(now time.Time) {
	a.ResearcherVerified = !a.ResearcherVerified
	a.UpdatedAt = now
}
