// Package fetch pulls image samples from external providers and
// decides, per cycle, how much to ask of each class of source.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/pkg/models"
)

// Result pairs one downloaded image with its metadata record.
type Result struct {
	Image  []byte
	Sample models.Sample
}

// Fetcher is implemented by each external image source. Fetch returns
// up to limit results and must never panic past its boundary; a
// source that cannot deliver returns an empty slice.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]Result, error)
}

// aiSources classifies providers that serve AI-generated images.
// Everything not listed here is treated as a real-photo source.
var aiSources = map[string]bool{
	"civitai": true,
	"lexica":  true,
}

// IsAISource reports whether name is classified as an AI-image
// provider.
func IsAISource(name string) bool { return aiSources[name] }

const (
	requestTimeout = 10 * time.Second

	// maxQueries bounds how many configured queries a fetcher runs
	// per cycle, to stay inside provider rate limits.
	maxQueries = 2
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// BuildFetchers constructs the enabled fetchers from sources.yaml.
// Unknown source names are skipped with a log line rather than
// failing startup.
func BuildFetchers(sources *config.SourcesConfig, log *zap.Logger) []Fetcher {
	var fetchers []Fetcher
	for _, src := range sources.Sources {
		if !src.IsEnabled() {
			continue
		}
		switch src.Name {
		case "unsplash":
			fetchers = append(fetchers, NewUnsplashFetcher(src, log))
		case "pexels":
			fetchers = append(fetchers, NewPexelsFetcher(src, log))
		case "reddit":
			fetchers = append(fetchers, NewRedditFetcher(src, log))
		case "civitai":
			fetchers = append(fetchers, NewCivitAIFetcher(src, log))
		case "lexica":
			fetchers = append(fetchers, NewLexicaFetcher(src, log))
		default:
			log.Warn("unknown source in sources config", zap.String("name", src.Name))
		}
	}
	log.Info("initialized image fetchers", zap.Int("count", len(fetchers)))
	return fetchers
}

// downloadImage fetches raw image bytes from url.
func downloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// newSample builds the metadata record for one downloaded image:
// fresh id, content hash and UTC timestamp plus the caller's
// provenance fields.
func newSample(source, label, imageURL string, imageBytes []byte, attrib models.Attribution, apiData map[string]any) models.Sample {
	digest := sha256.Sum256(imageBytes)
	return models.Sample{
		ID:          uuid.NewString(),
		ImageURL:    imageURL,
		Source:      source,
		Label:       label,
		Timestamp:   models.Now(),
		Hash:        hex.EncodeToString(digest[:]),
		Attribution: attrib,
		APIData:     apiData,
	}
}
