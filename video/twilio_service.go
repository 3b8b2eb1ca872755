package video

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/engagenetwork/engage-api/configs"
)

const twilioVideoBaseURL = "https://video.twilio.com/v1/Rooms"

// RoomDescriptor is the provider-side view of a conferencing room.
type RoomDescriptor struct {
	SID         string            `json:"sid"`
	Status      string            `json:"status"`
	DateCreated time.Time         `json:"date_created"`
	DateUpdated time.Time         `json:"date_updated"`
	Duration    *int              `json:"duration"`
	URL         string            `json:"url"`
	Links       map[string]string `json:"links"`
}

var httpClient = &http.Client{
	Timeout: 10 * time.Second,
}

// CreateRoom opens a new Go room at Twilio.
func CreateRoom() (*RoomDescriptor, error) {
	form := url.Values{}
	form.Set("Type", "go")
	return roomRequest("POST", twilioVideoBaseURL, form)
}

// FetchRoom retrieves the current state of a room by provider sid.
func FetchRoom(sid string) (*RoomDescriptor, error) {
	return roomRequest("GET", twilioVideoBaseURL+"/"+sid, nil)
}

// CompleteRoom instructs Twilio to end the room.
func CompleteRoom(sid string) (*RoomDescriptor, error) {
	form := url.Values{}
	form.Set("Status", "completed")
	return roomRequest("POST", twilioVideoBaseURL+"/"+sid, form)
}

func roomRequest(method, endpoint string, form url.Values) (*RoomDescriptor, error) {
	apiKey := config.Config("TWILIO_API_KEY")
	apiSecret := config.Config("TWILIO_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("twilio credentials not configured")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(apiKey, apiSecret)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio video request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Printf("🔥 Twilio video API error: Status %d, Body: %s", resp.StatusCode, string(bodyBytes))
		return nil, fmt.Errorf("twilio video API returned status %d", resp.StatusCode)
	}

	var raw struct {
		SID         string            `json:"sid"`
		Status      string            `json:"status"`
		DateCreated string            `json:"date_created"`
		DateUpdated string            `json:"date_updated"`
		Duration    *int              `json:"duration"`
		URL         string            `json:"url"`
		Links       map[string]string `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode twilio response: %v", err)
	}

	room := &RoomDescriptor{
		SID:      raw.SID,
		Status:   raw.Status,
		Duration: raw.Duration,
		URL:      raw.URL,
		Links:    raw.Links,
	}
	if t, err := time.Parse(time.RFC3339, raw.DateCreated); err == nil {
		room.DateCreated = t
	}
	if t, err := time.Parse(time.RFC3339, raw.DateUpdated); err == nil {
		room.DateUpdated = t
	}
	return room, nil
}
