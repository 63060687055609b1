package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/internal/imageutil"
	"trainhub/pkg/models"
)

const unsplashBase = "https://api.unsplash.com"

// UnsplashFetcher pulls real photography from the Unsplash search
// API.
type UnsplashFetcher struct {
	client        *http.Client
	accessKey     string
	queries       []string
	limitPerQuery int
	log           *zap.Logger
}

func NewUnsplashFetcher(src config.SourceConfig, log *zap.Logger) *UnsplashFetcher {
	queries := src.Queries
	if len(queries) == 0 {
		queries = []string{"portrait photography", "nature photography", "product photography"}
	}
	limit := src.LimitPerQuery
	if limit == 0 {
		limit = 10
	}
	return &UnsplashFetcher{
		client:        newHTTPClient(),
		accessKey:     os.Getenv("UNSPLASH_ACCESS_KEY"),
		queries:       queries,
		limitPerQuery: limit,
		log:           log,
	}
}

func (f *UnsplashFetcher) Name() string { return "unsplash" }

type unsplashSearchResponse struct {
	Results []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Likes       int    `json:"likes"`
		URLs        struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"results"`
}

func (f *UnsplashFetcher) Fetch(ctx context.Context, limit int) ([]Result, error) {
	if f.accessKey == "" {
		f.log.Error("UNSPLASH_ACCESS_KEY not set")
		return nil, nil
	}

	var samples []Result
	for _, query := range firstN(f.queries, maxQueries) {
		if len(samples) >= limit {
			break
		}

		u, _ := url.Parse(unsplashBase + "/search/photos")
		q := u.Query()
		q.Set("query", query)
		q.Set("per_page", fmt.Sprintf("%d", min(f.limitPerQuery, limit-len(samples))))
		q.Set("client_id", f.accessKey)
		u.RawQuery = q.Encode()

		var page unsplashSearchResponse
		if err := getJSON(ctx, f.client, u.String(), nil, &page); err != nil {
			f.log.Warn("unsplash search failed", zap.String("query", query), zap.Error(err))
			continue
		}

		for _, photo := range page.Results {
			if len(samples) >= limit {
				break
			}
			imageURL := photo.URLs.Regular
			if imageURL == "" {
				continue
			}

			imageBytes, err := downloadImage(ctx, f.client, imageURL)
			if err != nil {
				f.log.Debug("unsplash image download failed", zap.String("url", imageURL), zap.Error(err))
				continue
			}
			if !imageutil.IsValid(imageBytes) {
				continue
			}
			imageBytes = imageutil.Normalize(imageBytes)

			sample := newSample(f.Name(), models.LabelReal, imageURL, imageBytes,
				models.Attribution{
					Platform: "Unsplash",
					Creator:  orUnknown(photo.User.Name),
					License:  "Unsplash License",
					URL:      photo.Links.HTML,
				},
				map[string]any{
					"photo_id":    photo.ID,
					"description": photo.Description,
					"likes":       photo.Likes,
				})
			samples = append(samples, Result{Image: imageBytes, Sample: sample})
		}
		f.log.Info("fetched from unsplash", zap.String("query", query), zap.Int("total", len(samples)))
	}

	return samples, nil
}

// getJSON performs a GET with optional headers and decodes the JSON
// body into out.
func getJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
