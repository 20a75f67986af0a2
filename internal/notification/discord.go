package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	colorRed    = 16711680
	colorGreen  = 65280
	colorOrange = 16753920
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Discord posts webhook embeds. Empty URLs disable the matching notification.
type Discord struct {
	ErrorURL   string
	SuccessURL string
	client     *http.Client
}

func NewDiscord(errorURL, successURL string) *Discord {
	return &Discord{
		ErrorURL:   errorURL,
		SuccessURL: successURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Discord) NotifyError(ctx context.Context, errorMessage string) error {
	return d.send(ctx, d.ErrorURL, DiscordEmbed{
		Title:       "🚨 Extraction failed",
		Description: fmt.Sprintf("An error occurred: %s", errorMessage),
		Color:       colorRed,
	})
}

func (d *Discord) NotifySuccess(ctx context.Context, successMessage string) error {
	return d.send(ctx, d.SuccessURL, DiscordEmbed{
		Title:       "✅ Extraction finished",
		Description: successMessage,
		Color:       colorGreen,
	})
}

// NotifyBatch reports a finished run, switching to a warning embed when some dates degraded.
func (d *Discord) NotifyBatch(ctx context.Context, runID, regionName, product string, records, degraded int) error {
	description := fmt.Sprintf("Run %s\nRegion: %s\nProduct: %s\nDates: %d", runID, regionName, product, records)
	if degraded == 0 {
		return d.NotifySuccess(ctx, description)
	}
	return d.send(ctx, d.SuccessURL, DiscordEmbed{
		Title:       "⚠️ Extraction finished with gaps",
		Description: fmt.Sprintf("%s\nFailed fetches: %d", description, degraded),
		Color:       colorOrange,
	})
}

func (d *Discord) send(ctx context.Context, url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}
	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}
