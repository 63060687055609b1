package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/internal/imageutil"
	"trainhub/pkg/models"
)

// RedditFetcher pulls image posts from subreddit hot listings via the
// public JSON API. Posts below the score floor or older than the age
// cutoff are skipped. Reddit carries no ground truth about how an
// image was made, so samples are left unlabeled for the labeler.
type RedditFetcher struct {
	client      *http.Client
	baseURL     string
	userAgent   string
	subreddits  []string
	minScore    int
	maxAgeDays  int
	limitPerSub int
	log         *zap.Logger
	now         func() time.Time
}

func NewRedditFetcher(src config.SourceConfig, log *zap.Logger) *RedditFetcher {
	base := os.Getenv("REDDIT_API_URL")
	if base == "" {
		base = "https://www.reddit.com"
	}
	ua := os.Getenv("REDDIT_USER_AGENT")
	if ua == "" {
		ua = "trainhub/1.0"
	}
	subs := src.Subreddits
	if len(subs) == 0 {
		subs = []string{"pics", "itookapicture"}
	}
	minScore := src.MinScore
	if minScore == 0 {
		minScore = 50
	}
	maxAge := src.MaxAgeDays
	if maxAge == 0 {
		maxAge = 30
	}
	limit := src.LimitPerQuery
	if limit == 0 {
		limit = 10
	}
	return &RedditFetcher{
		client:      newHTTPClient(),
		baseURL:     base,
		userAgent:   ua,
		subreddits:  subs,
		minScore:    minScore,
		maxAgeDays:  maxAge,
		limitPerSub: limit,
		log:         log,
		now:         time.Now,
	}
}

func (f *RedditFetcher) Name() string { return "reddit" }

type redditListingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				Author     string  `json:"author"`
				Subreddit  string  `json:"subreddit"`
				URL        string  `json:"url"`
				Permalink  string  `json:"permalink"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (f *RedditFetcher) Fetch(ctx context.Context, limit int) ([]Result, error) {
	headers := map[string]string{"User-Agent": f.userAgent}

	var samples []Result
	for _, sub := range firstN(f.subreddits, maxQueries) {
		if len(samples) >= limit {
			break
		}

		u, _ := url.Parse(fmt.Sprintf("%s/r/%s/hot.json", f.baseURL, sub))
		q := u.Query()
		q.Set("limit", fmt.Sprintf("%d", f.limitPerSub))
		u.RawQuery = q.Encode()

		var page redditListingResponse
		if err := getJSON(ctx, f.client, u.String(), headers, &page); err != nil {
			f.log.Warn("reddit listing failed", zap.String("subreddit", sub), zap.Error(err))
			continue
		}

		for _, child := range page.Data.Children {
			if len(samples) >= limit {
				break
			}
			post := child.Data
			if post.Score < f.minScore {
				continue
			}
			age := f.now().Sub(time.Unix(int64(post.CreatedUTC), 0))
			if age > time.Duration(f.maxAgeDays)*24*time.Hour {
				continue
			}
			imageURL := redditImageURL(post.URL)
			if imageURL == "" {
				continue
			}

			imageBytes, err := f.download(ctx, imageURL)
			if err != nil {
				f.log.Debug("reddit image download failed", zap.String("url", imageURL), zap.Error(err))
				continue
			}
			if !imageutil.IsValid(imageBytes) {
				continue
			}
			imageBytes = imageutil.Normalize(imageBytes)

			sample := newSample(f.Name(), "", imageURL, imageBytes,
				models.Attribution{
					Platform: "Reddit",
					Creator:  orUnknown(post.Author),
					License:  "User content",
					URL:      "https://www.reddit.com" + post.Permalink,
				},
				map[string]any{
					"post_id":   post.ID,
					"subreddit": post.Subreddit,
					"title":     post.Title,
					"score":     post.Score,
				})
			samples = append(samples, Result{Image: imageBytes, Sample: sample})
		}
		f.log.Info("fetched from reddit", zap.String("subreddit", sub), zap.Int("total", len(samples)))
	}

	return samples, nil
}

// redditImageURL returns the post URL when it links directly to an
// image, empty otherwise. Text posts and gallery links are skipped.
func redditImageURL(raw string) string {
	lower := strings.ToLower(raw)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp", ".gif"} {
		if strings.HasSuffix(lower, ext) {
			return raw
		}
	}
	if strings.Contains(lower, "i.redd.it") || strings.Contains(lower, "i.imgur.com") {
		return raw
	}
	return ""
}

// download fetches image bytes with the reddit user agent set; the
// image hosts reject requests without one.
func (f *RedditFetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
