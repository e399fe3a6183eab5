package domain

// Item is anything a timeline can hold. Posts and notifications share the
// identifier space of their own category only.
type Item interface {
	ItemID() string
}

type Category string

const (
	Home          Category = "home"
	Sent          Category = "sent"
	Notifications Category = "notifications"
	Mentions      Category = "mentions"
)

// AllCategories in display order.
var AllCategories = []Category{Home, Sent, Notifications, Mentions}

func (c Category) Valid() bool {
	switch c {
	case Home, Sent, Notifications, Mentions:
		return true
	}
	return false
}

func (c Category) Title() string {
	switch c {
	case Home:
		return "Home"
	case Sent:
		return "Sent"
	case Notifications:
		return "Notifications"
	case Mentions:
		return "Mentions"
	}
	return string(c)
}

// PostTimelines are the categories whose items are posts.
var PostTimelines = []Category{Home, Sent, Mentions}
