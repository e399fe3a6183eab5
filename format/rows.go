package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/deemkeen/thrive/domain"
)

// Row is one line of a timeline: author, content, time and client columns.
type Row [4]string

func (r Row) Author() string  { return r[0] }
func (r Row) Content() string { return r[1] }
func (r Row) Time() string    { return r[2] }
func (r Row) Client() string  { return r[3] }

// String joins the columns the way screen readers announce them.
func (r Row) String() string {
	var parts []string
	for _, c := range r {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, ", ")
}

func contentCell(p *domain.Post) string {
	if p.SpoilerText != "" {
		return fmt.Sprintf("CW: %s (press Enter to view)", p.SpoilerText)
	}
	return OneLine(PlainText(p.Content))
}

// PostRow renders a post. Boosts show the boosted author and body; time and
// client always describe the boosted post.
func PostRow(p *domain.Post, now time.Time) Row {
	src := p.Target()

	content := contentCell(src)
	if p.IsBoost() {
		content = fmt.Sprintf("boosting %s (%s): %s", src.Account.Name(), src.Account.Acct, content)
	}
	if src.Poll != nil {
		content += " [Poll]"
	}

	return Row{p.Account.Name(), content, TimeAgo(src.CreatedAt, now), src.AppName()}
}

func NotificationRow(n *domain.Notification, now time.Time) Row {
	user := n.Account.Name()

	var content, ago, client string
	if n.Status != nil {
		content = OneLine(PlainText(n.Status.Content))
		if n.Status.Poll != nil {
			content += " [Poll]"
		}
		ago = TimeAgo(n.Status.CreatedAt, now)
		client = n.Status.AppName()
	}

	switch n.Kind() {
	case domain.KindFavourite:
		return Row{user + " favorited", content, ago, client}
	case domain.KindReblog:
		return Row{user + " boosted", content, ago, client}
	case domain.KindMention:
		return Row{user + " mentioned you", content, ago, client}
	case domain.KindFollow:
		return Row{user + " followed you", "", TimeAgo(n.CreatedAt, now), ""}
	case domain.KindFollowRequest:
		return Row{user + " requested to follow you", "", TimeAgo(n.CreatedAt, now), ""}
	case domain.KindPoll:
		return Row{"Poll ended in " + user + "'s post", content, ago, client}
	case domain.KindUpdate:
		return Row{user + " edited a post", content, ago, client}
	case domain.KindUnknown:
	}
	return Row{user + ": " + n.Type, "", "", ""}
}

// ItemRow dispatches on the concrete item type.
func ItemRow(item domain.Item, now time.Time) Row {
	switch v := item.(type) {
	case *domain.Post:
		return PostRow(v, now)
	case *domain.Notification:
		return NotificationRow(v, now)
	}
	return Row{"", item.ItemID(), "", ""}
}
