package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Trip is a live tracking session created at the delivery provider.
type Trip struct {
	TripID   string `json:"trip_id"`
	ShareURL string `json:"share_url"`
}

// Provider creates tracking trips for outgoing deliveries.
type Provider interface {
	CreateTrip(device, destination, vehicleType string) (*Trip, error)
}

// Client is the HTTP client for the delivery-tracking provider.
type Client struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func NewClient() (*Client, error) {
	apiURL := os.Getenv("TRACKING_API_URL")
	apiKey := os.Getenv("TRACKING_API_KEY")
	if apiURL == "" || apiKey == "" {
		return nil, fmt.Errorf("tracking configuration missing")
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type tripResponse struct {
	Trip  *Trip `json:"trip"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) CreateTrip(device, destination, vehicleType string) (*Trip, error) {
	payload := map[string]interface{}{
		"device":       device,
		"destination":  destination,
		"vehicle_type": vehicleType,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.apiURL+"/trips", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tracking provider: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("tracking API error (%d): %s", resp.StatusCode, string(body))
	}

	var tripResp tripResponse
	if err := json.Unmarshal(body, &tripResp); err != nil {
		return nil, fmt.Errorf("failed to parse tracking response: %w", err)
	}
	if tripResp.Error != nil {
		return nil, fmt.Errorf("tracking error: %s", tripResp.Error.Message)
	}
	if tripResp.Trip == nil || tripResp.Trip.TripID == "" {
		return nil, fmt.Errorf("tracking provider returned empty trip")
	}

	return tripResp.Trip, nil
}
