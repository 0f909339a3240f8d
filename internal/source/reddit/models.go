package reddit

// Thing is the envelope Reddit wraps every object in.
type Thing[T any] struct {
	Kind string `json:"kind"`
	Data T      `json:"data"`
}

type Listing struct {
	After    string        `json:"after"`
	Children []Thing[Link] `json:"children"`
}

type Link struct {
	ID        string `json:"id"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
	Author    string `json:"author"`
	URL       string `json:"url"`
	PostHint  string `json:"post_hint"`
	Over18    bool   `json:"over_18"`
	Media     *Media `json:"media"`
}

type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
}

type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Duration    int    `json:"duration"`
}

type Subreddit struct {
	DisplayName string `json:"display_name"`
	Over18      bool   `json:"over18"`
}
