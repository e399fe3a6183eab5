package web

import (
	"fmt"
	"time"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/format"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/util"
	"github.com/gorilla/feeds"
)

const feedTitleLen = 80

// FeedSource describes who the feeds belong to.
type FeedSource struct {
	Me      *domain.Account
	Host    string // instance host name
	BaseURL string // where the bridge is reachable
}

func (src FeedSource) author() *feeds.Author {
	if src.Me == nil {
		return &feeds.Author{Name: util.Name}
	}
	return &feeds.Author{Name: src.Me.Name(), Email: src.Me.Handle(src.Host)}
}

// BuildFeed renders a category snapshot as a feed, newest first.
func BuildFeed(src FeedSource, snap timeline.Snapshot, now time.Time) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - %s", snap.Category.Title(), util.Name),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed/%s", src.BaseURL, snap.Category)},
		Description: fmt.Sprintf("%s timeline of %s", snap.Category.Title(), src.author().Email),
		Author:      src.author(),
		Created:     now,
	}
	for _, item := range snap.Items {
		if fi := feedItem(src, snap.Category, item, now); fi != nil {
			feed.Items = append(feed.Items, fi)
		}
	}
	if len(feed.Items) > 0 {
		feed.Updated = feed.Items[0].Created
	}
	return feed
}

func feedItem(src FeedSource, cat domain.Category, item domain.Item, now time.Time) *feeds.Item {
	row := format.ItemRow(item, now)
	fi := &feeds.Item{
		Id:    item.ItemID(),
		Title: format.Truncate(fmt.Sprintf("%s: %s", row.Author(), row.Content()), feedTitleLen),
		Link:  &feeds.Link{Href: fmt.Sprintf("%s/feed/%s/%s", src.BaseURL, cat, item.ItemID())},
	}

	switch v := item.(type) {
	case *domain.Post:
		target := v.Target()
		if target.URL != "" {
			fi.Link = &feeds.Link{Href: target.URL}
		}
		if v.URI != "" {
			fi.Id = v.URI
		}
		fi.Author = &feeds.Author{Name: v.Account.Name(), Email: v.Account.Handle(src.Host)}
		fi.Description = format.PlainText(target.Content)
		fi.Content = target.Content
		fi.Created = v.CreatedAt
	case *domain.Notification:
		fi.Author = &feeds.Author{Name: v.Account.Name(), Email: v.Account.Handle(src.Host)}
		fi.Description = row.String()
		if v.Status != nil {
			fi.Content = v.Status.Content
			if v.Status.URL != "" {
				fi.Link = &feeds.Link{Href: v.Status.URL}
			}
		}
		fi.Created = v.CreatedAt
	default:
		return nil
	}
	return fi
}

// RenderFeed encodes feed as rss (the default) or atom.
func RenderFeed(feed *feeds.Feed, kind string) (string, string, error) {
	switch kind {
	case "", "rss":
		s, err := feed.ToRss()
		return s, "application/rss+xml; charset=utf-8", err
	case "atom":
		s, err := feed.ToAtom()
		return s, "application/atom+xml; charset=utf-8", err
	case "json":
		s, err := feed.ToJSON()
		return s, "application/feed+json; charset=utf-8", err
	}
	return "", "", fmt.Errorf("unknown feed format %q", kind)
}
