package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/internal/imageutil"
	"trainhub/pkg/models"
)

// CivitAIFetcher pulls AI-generated images from the CivitAI images
// API. An API key is optional; without one the public endpoint is
// used.
type CivitAIFetcher struct {
	client        *http.Client
	baseURL       string
	apiKey        string
	queries       []string
	limitPerQuery int
	log           *zap.Logger
}

func NewCivitAIFetcher(src config.SourceConfig, log *zap.Logger) *CivitAIFetcher {
	base := os.Getenv("CIVITAI_API_URL")
	if base == "" {
		base = "https://civitai.com/api/v1"
	}
	queries := src.Queries
	if len(queries) == 0 {
		queries = []string{"characters", "landscapes", "portraits"}
	}
	limit := src.LimitPerQuery
	if limit == 0 {
		limit = 10
	}
	return &CivitAIFetcher{
		client:        newHTTPClient(),
		baseURL:       base,
		apiKey:        os.Getenv("CIVITAI_API_KEY"),
		queries:       queries,
		limitPerQuery: limit,
		log:           log,
	}
}

func (f *CivitAIFetcher) Name() string { return "civitai" }

type civitaiImagesResponse struct {
	Items []struct {
		ID     int    `json:"id"`
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"items"`
}

func (f *CivitAIFetcher) Fetch(ctx context.Context, limit int) ([]Result, error) {
	headers := map[string]string{}
	if f.apiKey != "" {
		headers["Authorization"] = "Bearer " + f.apiKey
	}

	var samples []Result
	for range firstN(f.queries, maxQueries) {
		if len(samples) >= limit {
			break
		}

		u, _ := url.Parse(f.baseURL + "/images")
		q := u.Query()
		q.Set("limit", fmt.Sprintf("%d", min(f.limitPerQuery, limit-len(samples))))
		q.Set("nsfw", "false")
		u.RawQuery = q.Encode()

		var page civitaiImagesResponse
		if err := getJSON(ctx, f.client, u.String(), headers, &page); err != nil {
			f.log.Warn("civitai fetch failed", zap.Error(err))
			continue
		}

		for _, item := range page.Items {
			if len(samples) >= limit {
				break
			}
			if item.URL == "" {
				continue
			}

			imageBytes, err := downloadImage(ctx, f.client, item.URL)
			if err != nil {
				f.log.Debug("civitai image download failed", zap.String("url", item.URL), zap.Error(err))
				continue
			}
			if !imageutil.IsValid(imageBytes) {
				continue
			}
			imageBytes = imageutil.Normalize(imageBytes)

			sample := newSample(f.Name(), models.LabelAI, item.URL, imageBytes,
				models.Attribution{
					Platform: "CivitAI",
					Creator:  "Community",
					License:  "Community content",
					URL:      fmt.Sprintf("https://civitai.com/images/%d", item.ID),
				},
				map[string]any{
					"image_id": item.ID,
					"width":    item.Width,
					"height":   item.Height,
				})
			samples = append(samples, Result{Image: imageBytes, Sample: sample})
		}
		f.log.Info("fetched from civitai", zap.Int("total", len(samples)))
	}

	return samples, nil
}
