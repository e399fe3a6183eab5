package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/deemkeen/thrive/domain"
)

// PostDetails describes the target of p: body, metadata and poll state.
func PostDetails(p *domain.Post, loc *time.Location) string {
	src := p.Target()
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	if src.SpoilerText != "" {
		fmt.Fprintf(&b, "Content warning: %s\n\n", src.SpoilerText)
	}
	b.WriteString(PlainText(src.Content))
	b.WriteString("\n\n")

	if src.Poll != nil {
		b.WriteString(PollSummary(src.Poll))
		b.WriteString("\n")
	}
	for _, m := range src.MediaAttachments {
		desc := m.Description
		if desc == "" {
			desc = "no description"
		}
		fmt.Fprintf(&b, "Attachment (%s): %s\n", m.Type, desc)
	}

	language := src.Language
	if language == "" {
		language = "unknown"
	}
	fmt.Fprintf(&b, "Posted: %s\n", src.CreatedAt.In(loc).Format("03:04 PM"))
	fmt.Fprintf(&b, "From: %s\n", src.AppName())
	fmt.Fprintf(&b, "Boosted %d times\n", src.ReblogsCount)
	fmt.Fprintf(&b, "Favorited %d times.\n", src.FavouritesCount)
	fmt.Fprintf(&b, "%d replies\n", src.RepliesCount)
	fmt.Fprintf(&b, "Privacy: %s\n", src.Visibility.Label())
	fmt.Fprintf(&b, "Language: %s", language)
	return b.String()
}

func PollSummary(poll *domain.Poll) string {
	var b strings.Builder
	state := "open"
	if poll.Expired {
		state = "closed"
	}
	kind := "single choice"
	if poll.Multiple {
		kind = "multiple choice"
	}
	fmt.Fprintf(&b, "Poll (%s, %s, %d votes)\n", kind, state, poll.VotesCount)

	own := make(map[int]bool, len(poll.OwnVotes))
	for _, i := range poll.OwnVotes {
		own[i] = true
	}
	for i, opt := range poll.Options {
		votes := "?"
		if opt.VotesCount != nil {
			votes = fmt.Sprintf("%d", *opt.VotesCount)
		}
		mark := ""
		if own[i] {
			mark = " (your vote)"
		}
		fmt.Fprintf(&b, "  %d. %s: %s%s\n", i+1, opt.Title, votes, mark)
	}
	return b.String()
}

// Profile renders an account the way the profile view shows it.
func Profile(acc *domain.Account) string {
	created := "Unknown"
	if !acc.CreatedAt.IsZero() {
		created = acc.CreatedAt.Format("January 02, 2006")
	}
	lastPost := "Unknown"
	if d, ok := acc.LastStatusDate(); ok {
		lastPost = d.Format("January 02, 2006")
	}

	return fmt.Sprintf(`Display Name: %s
Username: %s
Bio: %s
Followers: %d
Friends: %d
Posts: %d
Created: %s
Last post: %s
Website: %s`,
		acc.DisplayName, acc.Acct, PlainText(acc.Note),
		acc.FollowersCount, acc.FollowingCount, acc.StatusesCount,
		created, lastPost, acc.URL)
}
