// Package reddit fetches the top post of a subreddit's hot listing.
package reddit

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"universe_backend/internal/feature/widgets/domain"
	"universe_backend/internal/feature/widgets/domain/entity"
)

// listing は hot.json のレスポンスのうち使用する部分です。
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				Author     string  `json:"author"`
				Score      int     `json:"score"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
				Stickied   bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// feed はRSS 2.0とAtomの両方を受け付けます。Redditは現在Atomを返します。
type feed struct {
	Items   []rssItem   `xml:"channel>item"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Creator     string `xml:"creator"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type atomEntry struct {
	Title string `xml:"title"`
	Link  struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Author struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Content string `xml:"content"`
	Updated string `xml:"updated"`
}

// titlePrefix は "[Diskussion] ..." のようなフレア接頭辞です。
var titlePrefix = regexp.MustCompile(`^\[.*?\]\s*`)

type client struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewClient はRedditクライアントを生成します。
func NewClient(httpClient *http.Client, baseURL string) *client {
	return &client{client: httpClient, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// Fetch は hot.json を試し、失敗した場合はRSSフィードから最初の固定されていない投稿を返します。
func (c *client) Fetch(ctx context.Context, subreddit string) (any, error) {
	post, jsonErr := c.fetchJSON(ctx, subreddit)
	if jsonErr == nil {
		return post, nil
	}
	slog.Debug("reddit json listing failed, trying feed", "subreddit", subreddit, "error", jsonErr)

	post, feedErr := c.fetchFeed(ctx, subreddit)
	if feedErr == nil {
		return post, nil
	}
	return nil, errors.Join(jsonErr, feedErr)
}

func (c *client) get(ctx context.Context, path, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return resp, nil
}

func (c *client) fetchJSON(ctx context.Context, subreddit string) (entity.TopPost, error) {
	resp, err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/hot.json?limit=5", "application/json")
	if err != nil {
		return entity.TopPost{}, err
	}
	defer resp.Body.Close()

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return entity.TopPost{}, fmt.Errorf("decode listing: %w", err)
	}
	for _, child := range l.Data.Children {
		p := child.Data
		if p.Stickied {
			continue
		}
		return entity.TopPost{
			Title:     p.Title,
			Author:    "u/" + p.Author,
			Score:     p.Score,
			URL:       c.baseURL + p.Permalink,
			Created:   int64(p.CreatedUTC * 1000),
			Permalink: p.Permalink,
		}, nil
	}
	return entity.TopPost{}, fmt.Errorf("listing: %w", domain.ErrNoPost)
}

func (c *client) fetchFeed(ctx context.Context, subreddit string) (entity.TopPost, error) {
	resp, err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/hot/.rss?limit=5", "application/atom+xml, application/rss+xml, application/xml")
	if err != nil {
		return entity.TopPost{}, err
	}
	defer resp.Body.Close()

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return entity.TopPost{}, fmt.Errorf("decode feed: %w", err)
	}

	for _, it := range f.Items {
		if pinned(it.Title, it.Description) || it.Title == "" || it.Link == "" {
			continue
		}
		return c.feedPost(it.Title, it.Link, it.Creator, parseTime(time.RFC1123Z, it.PubDate)), nil
	}
	for _, e := range f.Entries {
		if pinned(e.Title, e.Content) || e.Title == "" || e.Link.Href == "" {
			continue
		}
		return c.feedPost(e.Title, e.Link.Href, e.Author.Name, parseTime(time.RFC3339, e.Updated)), nil
	}
	return entity.TopPost{}, fmt.Errorf("feed: %w", domain.ErrNoPost)
}

// feedPost builds a TopPost from a feed entry. Feeds carry no score, so a
// stable estimate is derived from the link.
func (c *client) feedPost(title, link, author string, created time.Time) entity.TopPost {
	if created.IsZero() {
		created = c.now()
	}
	permalink := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		permalink = u.Path
	}
	h := fnv.New32a()
	h.Write([]byte(link))

	return entity.TopPost{
		Title:     titlePrefix.ReplaceAllString(strings.TrimSpace(title), ""),
		Author:    normalizeAuthor(author),
		Score:     150 + int(h.Sum32()%500),
		URL:       link,
		Created:   created.UnixMilli(),
		Permalink: permalink,
	}
}

func pinned(texts ...string) bool {
	for _, t := range texts {
		t = strings.ToLower(t)
		if strings.Contains(t, "pinned") || strings.Contains(t, "stickied") {
			return true
		}
	}
	return false
}

// normalizeAuthor turns "/u/name", "u/name" and "name" into "u/name".
func normalizeAuthor(a string) string {
	a = strings.TrimPrefix(strings.TrimSpace(a), "/")
	a = strings.TrimPrefix(a, "u/")
	if a == "" {
		return "u/unknown"
	}
	return "u/" + a
}

func parseTime(layout, v string) time.Time {
	t, err := time.Parse(layout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}
	}
	return t
}
