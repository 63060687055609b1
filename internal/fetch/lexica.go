package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/internal/imageutil"
	"trainhub/pkg/models"
)

// Lexica exposes a public search API, no auth required.
const lexicaSearchURL = "https://lexica.art/api/v1/search"

// LexicaFetcher pulls AI-generated images from Lexica.art.
type LexicaFetcher struct {
	client        *http.Client
	queries       []string
	limitPerQuery int
	log           *zap.Logger
}

func NewLexicaFetcher(src config.SourceConfig, log *zap.Logger) *LexicaFetcher {
	queries := src.Queries
	if len(queries) == 0 {
		queries = []string{"portrait", "landscape", "character"}
	}
	limit := src.LimitPerQuery
	if limit == 0 {
		limit = 10
	}
	return &LexicaFetcher{
		client:        newHTTPClient(),
		queries:       queries,
		limitPerQuery: limit,
		log:           log,
	}
}

func (f *LexicaFetcher) Name() string { return "lexica" }

type lexicaSearchResponse struct {
	Images []struct {
		ID     string `json:"id"`
		Src    string `json:"src"`
		URL    string `json:"url"`
		Prompt string `json:"prompt"`
	} `json:"images"`
}

func (f *LexicaFetcher) Fetch(ctx context.Context, limit int) ([]Result, error) {
	var samples []Result
	for _, query := range firstN(f.queries, maxQueries) {
		if len(samples) >= limit {
			break
		}

		u, _ := url.Parse(lexicaSearchURL)
		q := u.Query()
		q.Set("q", query)
		q.Set("limit", fmt.Sprintf("%d", min(f.limitPerQuery, limit-len(samples))))
		u.RawQuery = q.Encode()

		var page lexicaSearchResponse
		if err := getJSON(ctx, f.client, u.String(), nil, &page); err != nil {
			f.log.Warn("lexica search failed", zap.String("query", query), zap.Error(err))
			continue
		}

		for _, item := range page.Images {
			if len(samples) >= limit {
				break
			}
			imageURL := item.Src
			if imageURL == "" {
				imageURL = item.URL
			}
			if imageURL == "" {
				continue
			}

			imageBytes, err := downloadImage(ctx, f.client, imageURL)
			if err != nil {
				f.log.Debug("lexica image download failed", zap.String("url", imageURL), zap.Error(err))
				continue
			}
			if !imageutil.IsValid(imageBytes) {
				continue
			}
			imageBytes = imageutil.Normalize(imageBytes)

			sample := newSample(f.Name(), models.LabelAIGenerated, imageURL, imageBytes,
				models.Attribution{
					Platform: "Lexica",
					Creator:  "Community",
					License:  "Community content",
					URL:      "https://lexica.art/?q=" + url.QueryEscape(query),
				},
				map[string]any{
					"image_id": item.ID,
					"prompt":   item.Prompt,
				})
			samples = append(samples, Result{Image: imageBytes, Sample: sample})
		}
		f.log.Info("fetched from lexica", zap.String("query", query), zap.Int("total", len(samples)))
	}

	return samples, nil
}
