package reddit

import (
	"time"

	"universe_backend/internal/feature/widgets/domain/entity"
)

// fallbackPosts は上流が利用できない場合に表示する既定の投稿です。
var fallbackPosts = map[string]struct {
	post entity.TopPost
	age  time.Duration
}{
	"finanzen": {
		post: entity.TopPost{
			Title:     "ETF-Sparplan: Welcher Broker ist 2024 am günstigsten?",
			Author:    "u/FinanzGuru2024",
			Score:     342,
			URL:       "https://www.reddit.com/r/finanzen/comments/1b8x9yz/etfsparplan_welcher_broker_ist_2024_am_günstigsten/",
			Permalink: "/r/finanzen/comments/1b8x9yz/etfsparplan_welcher_broker_ist_2024_am_günstigsten/",
		},
		age: time.Hour,
	},
	"mauerstrassenwetten": {
		post: entity.TopPost{
			Title:     "🚀 NVIDIA calls drucken wieder - wer ist dabei? 💎🙌",
			Author:    "u/DiamantHände",
			Score:     1247,
			URL:       "https://www.reddit.com/r/mauerstrassenwetten/comments/1b8y0ab/nvidia_calls_drucken_wieder_wer_ist_dabei/",
			Permalink: "/r/mauerstrassenwetten/comments/1b8y0ab/nvidia_calls_drucken_wieder_wer_ist_dabei/",
		},
		age: 2 * time.Hour,
	},
}

// Fallback は既知のサブレディットには固定の投稿を、それ以外には汎用の投稿を返します。
func (c *client) Fallback(subreddit string, now time.Time) any {
	if fb, ok := fallbackPosts[subreddit]; ok {
		p := fb.post
		p.Created = now.Add(-fb.age).UnixMilli()
		return p
	}
	return entity.TopPost{
		Title:     "Top post from r/" + subreddit,
		Author:    "u/reddituser",
		Score:     150,
		URL:       "https://www.reddit.com/r/" + subreddit + "/top-post/",
		Created:   now.Add(-2 * time.Hour).UnixMilli(),
		Permalink: "/r/" + subreddit + "/top-post/",
	}
}
