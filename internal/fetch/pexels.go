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

const pexelsBase = "https://api.pexels.com/v1"

// PexelsFetcher pulls real photography from the Pexels search API.
type PexelsFetcher struct {
	client        *http.Client
	apiKey        string
	queries       []string
	limitPerQuery int
	log           *zap.Logger
}

func NewPexelsFetcher(src config.SourceConfig, log *zap.Logger) *PexelsFetcher {
	queries := src.Queries
	if len(queries) == 0 {
		queries = []string{"fashion", "lifestyle", "business"}
	}
	limit := src.LimitPerQuery
	if limit == 0 {
		limit = 10
	}
	return &PexelsFetcher{
		client:        newHTTPClient(),
		apiKey:        os.Getenv("PEXELS_API_KEY"),
		queries:       queries,
		limitPerQuery: limit,
		log:           log,
	}
}

func (f *PexelsFetcher) Name() string { return "pexels" }

type pexelsSearchResponse struct {
	Photos []struct {
		ID           int    `json:"id"`
		Photographer string `json:"photographer"`
		URL          string `json:"url"`
		Src          struct {
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

func (f *PexelsFetcher) Fetch(ctx context.Context, limit int) ([]Result, error) {
	if f.apiKey == "" {
		f.log.Error("PEXELS_API_KEY not set")
		return nil, nil
	}

	headers := map[string]string{"Authorization": f.apiKey}

	var samples []Result
	for _, query := range firstN(f.queries, maxQueries) {
		if len(samples) >= limit {
			break
		}

		u, _ := url.Parse(pexelsBase + "/search")
		q := u.Query()
		q.Set("query", query)
		q.Set("per_page", fmt.Sprintf("%d", min(f.limitPerQuery, limit-len(samples))))
		u.RawQuery = q.Encode()

		var page pexelsSearchResponse
		if err := getJSON(ctx, f.client, u.String(), headers, &page); err != nil {
			f.log.Warn("pexels search failed", zap.String("query", query), zap.Error(err))
			continue
		}

		for _, photo := range page.Photos {
			if len(samples) >= limit {
				break
			}
			imageURL := photo.Src.Medium
			if imageURL == "" {
				continue
			}

			imageBytes, err := downloadImage(ctx, f.client, imageURL)
			if err != nil {
				f.log.Debug("pexels image download failed", zap.String("url", imageURL), zap.Error(err))
				continue
			}
			if !imageutil.IsValid(imageBytes) {
				continue
			}
			imageBytes = imageutil.Normalize(imageBytes)

			sample := newSample(f.Name(), models.LabelReal, imageURL, imageBytes,
				models.Attribution{
					Platform: "Pexels",
					Creator:  orUnknown(photo.Photographer),
					License:  "Pexels License",
					URL:      photo.URL,
				},
				map[string]any{
					"photo_id": photo.ID,
				})
			samples = append(samples, Result{Image: imageBytes, Sample: sample})
		}
		f.log.Info("fetched from pexels", zap.String("query", query), zap.Int("total", len(samples)))
	}

	return samples, nil
}
