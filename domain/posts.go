package domain

import "time"

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	// VisibilityPrivate is followers-only.
	VisibilityPrivate Visibility = "private"
	VisibilityDirect  Visibility = "direct"
)

var Visibilities = []Visibility{VisibilityPublic, VisibilityUnlisted, VisibilityPrivate, VisibilityDirect}

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate, VisibilityDirect:
		return true
	}
	return false
}

func (v Visibility) Label() string {
	switch v {
	case VisibilityPublic:
		return "Public"
	case VisibilityUnlisted:
		return "Unlisted"
	case VisibilityPrivate:
		return "Followers only"
	case VisibilityDirect:
		return "Direct"
	}
	return string(v)
}

type Application struct {
	Name    string `json:"name"`
	Website string `json:"website"`
}

type Mention struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
	URL      string `json:"url"`
}

type MediaAttachment struct {
	Id          string `json:"id"`
	Type        string `json:"type"` // image, gifv, video, audio, unknown
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	Description string `json:"description"`
}

// IsPlayable reports whether the attachment is time-based media.
func (m MediaAttachment) IsPlayable() bool {
	switch m.Type {
	case "video", "gifv", "audio":
		return true
	}
	return false
}

type PollOption struct {
	Title      string `json:"title"`
	VotesCount *int   `json:"votes_count"`
}

type Poll struct {
	Id          string       `json:"id"`
	ExpiresAt   *time.Time   `json:"expires_at"`
	Expired     bool         `json:"expired"`
	Multiple    bool         `json:"multiple"`
	VotesCount  int          `json:"votes_count"`
	VotersCount *int         `json:"voters_count"`
	Options     []PollOption `json:"options"`
	Voted       bool         `json:"voted"`
	OwnVotes    []int        `json:"own_votes"`
}

// Post is a Mastodon status.
type Post struct {
	Id               string            `json:"id"`
	URI              string            `json:"uri"`
	URL              string            `json:"url"`
	Account          Account           `json:"account"`
	Content          string            `json:"content"`
	CreatedAt        time.Time         `json:"created_at"`
	EditedAt         *time.Time        `json:"edited_at"`
	Visibility       Visibility        `json:"visibility"`
	Sensitive        bool              `json:"sensitive"`
	SpoilerText      string            `json:"spoiler_text"`
	Language         string            `json:"language"`
	InReplyToId      string            `json:"in_reply_to_id"`
	Reblog           *Post             `json:"reblog"`
	Poll             *Poll             `json:"poll"`
	MediaAttachments []MediaAttachment `json:"media_attachments"`
	Mentions         []Mention         `json:"mentions"`
	Application      *Application      `json:"application"`
	RepliesCount     int               `json:"replies_count"`
	ReblogsCount     int               `json:"reblogs_count"`
	FavouritesCount  int               `json:"favourites_count"`
	Reblogged        bool              `json:"reblogged"`
	Favourited       bool              `json:"favourited"`
}

func (p *Post) ItemID() string {
	return p.Id
}

// Target is the post that user actions apply to: the boosted post for a
// boost wrapper, the post itself otherwise.
func (p *Post) Target() *Post {
	if p.Reblog != nil {
		return p.Reblog
	}
	return p
}

func (p *Post) IsBoost() bool {
	return p.Reblog != nil
}

// MentionsAccount reports whether the account id is among the mentioned accounts.
func (p *Post) MentionsAccount(accountId string) bool {
	for _, m := range p.Mentions {
		if m.Id == accountId {
			return true
		}
	}
	return false
}

func (p *Post) AppName() string {
	if p.Application == nil || p.Application.Name == "" {
		return "Unknown"
	}
	return p.Application.Name
}

// Clone returns a shallow copy. Records held by the timeline store are never
// mutated, so flag flips go through a copy.
func (p *Post) Clone() *Post {
	c := *p
	return &c
}

