package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	retryTimes    = 3
	retryInterval = 2 * time.Second
)

// Summary is the run digest posted after each analysis.
type Summary struct {
	Source         string    `json:"source"`
	RunAt          time.Time `json:"run_at"`
	RetainedDates  int       `json:"retained_dates"`
	FactorNames    []string  `json:"factor_names"`
	VarianceRatios []float64 `json:"variance_ratios"`
	Text           string    `json:"text"`
}

// Pusher posts run summaries to a configured webhook.
type Pusher struct {
	URL    string
	client *http.Client
}

func NewPusher(url string) *Pusher {
	return &Pusher{
		URL:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Push sends the summary as JSON, retrying transient failures.
func (p *Pusher) Push(s *Summary) error {
	if p.URL == "" {
		return nil
	}
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("push: encode summary: %w", err)
	}

	var lastErr error
	for i := 0; i < retryTimes; i++ {
		if i > 0 {
			time.Sleep(retryInterval)
		}
		lastErr = p.post(body)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("push: %w", lastErr)
}

func (p *Pusher) post(body []byte) error {
	resp, err := p.client.Post(p.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
