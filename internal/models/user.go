package models

import "time"

type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FullName      string     `json:"fullName"`
	AvatarURL     string     `json:"avatarUrl"`
	CoverImageURL *string    `json:"coverImageUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`

	// Never serialized; the json tags keep these out of every response body.
	PasswordHash     string `json:"-"`
	RefreshTokenHash string `json:"-"`
}

func (u *User) GetCoverImageURL() string {
	if u.CoverImageURL != nil {
		return *u.CoverImageURL
	}
	return ""
}

// ChannelProfile is the public projection returned for a channel page,
// including the computed subscription-graph fields.
type ChannelProfile struct {
	ID                        string  `json:"id"`
	Username                  string  `json:"username"`
	FullName                  string  `json:"fullName"`
	Email                     string  `json:"email"`
	AvatarURL                 string  `json:"avatarUrl"`
	CoverImageURL             *string `json:"coverImageUrl,omitempty"`
	SubscribersCount          int64   `json:"subscribersCount"`
	ChannelsSubscribedToCount int64   `json:"channelsSubscribedToCount"`
	IsSubscribed              bool    `json:"isSubscribed"`
}

type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}
