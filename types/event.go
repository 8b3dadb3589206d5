package types

import "time"

// Channels domain events are published on.
const (
	ChannelUserRegistered  = "user.registered"
	ChannelCampaignCreated = "campaign.created"
)

// UserRegisteredEvent is published after a successful registration and
// carries what the mail worker needs to send the confirmation message.
type UserRegisteredEvent struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	ConfirmToken string    `json:"confirmToken"`
	Expires      time.Time `json:"expires"`
}

// CampaignCreatedEvent is published after a campaign has been stored.
type CampaignCreatedEvent struct {
	CampaignID string    `json:"campaignId"`
	OwnerID    string    `json:"ownerId"`
	BrandID    string    `json:"brandId"`
	Products   []string  `json:"products"`
	Expires    time.Time `json:"expires"`
}
