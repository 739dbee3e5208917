package events

import "github.com/funlynk/funlynk/internal/models"

// Event is a domain event published on the bus
type Event interface {
	Name() string
}

// Event name constants
const (
	PostReactedName             = "post.reacted"
	ConversionPromptedName      = "post.conversion_prompted"
	PostConversionSuggestedName = "post.conversion_suggested"
	PostAutoConvertedName       = "post.auto_converted"
	PostConvertedToEventName    = "post.converted_to_event"
	PostInvitationMigratedName  = "post.invitation_migrated"
	PostInvitationSentName      = "post.invitation_sent"
)

// PostReacted fires after a reaction is added to a post
type PostReacted struct {
	Post     *models.Post
	Reaction *models.PostReaction
}

// Name implements Event
func (PostReacted) Name() string { return PostReactedName }

// ConversionPrompted fires when the eligibility evaluator decides to prompt
// the post owner; Threshold is "soft" or "strong"
type ConversionPrompted struct {
	Post      *models.Post
	Threshold string
}

// Name implements Event
func (ConversionPrompted) Name() string { return ConversionPromptedName }

// PostConversionSuggested fires once when a post first crosses the soft
// threshold, from the background eligibility check
type PostConversionSuggested struct {
	Post          *models.Post
	ReactionCount int
}

// Name implements Event
func (PostConversionSuggested) Name() string { return PostConversionSuggestedName }

// PostAutoConverted fires when a post crosses the strong threshold in the
// background eligibility check
type PostAutoConverted struct {
	Post          *models.Post
	ReactionCount int
}

// Name implements Event
func (PostAutoConverted) Name() string { return PostAutoConvertedName }

// PostConvertedToEvent fires after a conversion transaction commits
type PostConvertedToEvent struct {
	Post       *models.Post
	Activity   *models.Activity
	Conversion *models.PostConversion
}

// Name implements Event
func (PostConvertedToEvent) Name() string { return PostConvertedToEventName }

// PostInvitationMigrated fires for each invitation moved onto the new activity
type PostInvitationMigrated struct {
	Invitation *models.PostInvitation
	Activity   *models.Activity
}

// Name implements Event
func (PostInvitationMigrated) Name() string { return PostInvitationMigratedName }

// PostInvitationSent fires when a friend is invited to a post
type PostInvitationSent struct {
	Invitation *models.PostInvitation
	Post       *models.Post
}

// Name implements Event
func (PostInvitationSent) Name() string { return PostInvitationSentName }
