package domain

import "time"

type NotificationKind int

const (
	KindUnknown NotificationKind = iota
	KindFavourite
	KindReblog
	KindMention
	KindFollow
	KindFollowRequest
	KindPoll
	KindUpdate
)

func (k NotificationKind) String() string {
	switch k {
	case KindFavourite:
		return "favourite"
	case KindReblog:
		return "reblog"
	case KindMention:
		return "mention"
	case KindFollow:
		return "follow"
	case KindFollowRequest:
		return "follow_request"
	case KindPoll:
		return "poll"
	case KindUpdate:
		return "update"
	case KindUnknown:
		return "unknown"
	}
	return "unknown"
}

func ParseNotificationKind(tag string) NotificationKind {
	switch tag {
	case "favourite":
		return KindFavourite
	case "reblog":
		return KindReblog
	case "mention":
		return KindMention
	case "follow":
		return KindFollow
	case "follow_request":
		return KindFollowRequest
	case "poll":
		return KindPoll
	case "update":
		return KindUpdate
	}
	return KindUnknown
}

// Notification is an event addressed to the user. Status is nil for kinds
// that do not reference a post (follow, follow_request).
type Notification struct {
	Id        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Account   Account   `json:"account"`
	Status    *Post     `json:"status"`
}

func (n *Notification) ItemID() string {
	return n.Id
}

func (n *Notification) Kind() NotificationKind {
	return ParseNotificationKind(n.Type)
}
