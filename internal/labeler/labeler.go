// Package labeler assigns labels to samples that arrive without one,
// by asking an external detector service for an AI-probability score.
package labeler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trainhub/pkg/models"
)

const detectorTimeout = 10 * time.Second

// scoreThreshold decides the label when only a detector score is
// available.
const scoreThreshold = 0.5

// DetectorClient calls the detection endpoint with an image and reads
// back an AI-probability score.
type DetectorClient struct {
	endpoint string
	enabled  bool
	client   *http.Client
	log      *zap.Logger
}

func NewDetectorClient(endpoint string, enabled bool, log *zap.Logger) *DetectorClient {
	return &DetectorClient{
		endpoint: endpoint,
		enabled:  enabled,
		client:   &http.Client{Timeout: detectorTimeout},
		log:      log,
	}
}

// Detect returns the detector's AI-probability for the image, or
// ok=false when the detector is disabled or unreachable.
func (c *DetectorClient) Detect(ctx context.Context, imageBytes []byte) (float64, bool) {
	if !c.enabled || c.endpoint == "" {
		return 0, false
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		c.log.Error("detector form build failed", zap.Error(err))
		return 0, false
	}
	if _, err := part.Write(imageBytes); err != nil {
		c.log.Error("detector form write failed", zap.Error(err))
		return 0, false
	}
	if err := writer.Close(); err != nil {
		c.log.Error("detector form close failed", zap.Error(err))
		return 0, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		c.log.Error("detector request build failed", zap.Error(err))
		return 0, false
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("detector call failed", zap.Error(err))
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("detector returned non-ok status", zap.Int("status", resp.StatusCode))
		return 0, false
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("detector response read failed", zap.Error(err))
		return 0, false
	}
	var result struct {
		AIProbability *float64 `json:"ai_probability"`
		Score         *float64 `json:"score"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		c.log.Error("detector response decode failed", zap.Error(err))
		return 0, false
	}
	if result.AIProbability != nil {
		return *result.AIProbability, true
	}
	if result.Score != nil {
		return *result.Score, true
	}
	return 0, false
}

// Labeler records detector scores on a sample and assigns a label
// when the fetcher did not provide one.
type Labeler struct {
	detector *DetectorClient
	log      *zap.Logger
}

func New(detector *DetectorClient, log *zap.Logger) *Labeler {
	return &Labeler{detector: detector, log: log}
}

// Label runs detection on the image and returns the sample with
// scores attached. A sample that already carries a label keeps it;
// an unreachable detector leaves the sample unchanged.
func (l *Labeler) Label(ctx context.Context, imageBytes []byte, sample models.Sample) models.Sample {
	score, ok := l.detector.Detect(ctx, imageBytes)
	if !ok {
		return sample
	}

	if sample.Detectors == nil {
		sample.Detectors = make(map[string]float64)
	}
	sample.Detectors["detector"] = score

	if sample.Label == "" {
		if score > scoreThreshold {
			sample.Label = models.LabelAIGenerated
		} else {
			sample.Label = models.LabelReal
		}
		confidence := score
		sample.Confidence = &confidence
		l.log.Debug("auto-labeled sample",
			zap.String("id", sample.ID),
			zap.String("label", sample.Label),
			zap.String("score", fmt.Sprintf("%.3f", score)))
	}
	return sample
}
