package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/learnhub-api/model"
)

// MeetingService provisions live class rooms. Jitsi rooms are just generated
// tokens; the zoom-style provider is an external HTTP API. A provider failure
// degrades to a jitsi room rather than failing the request.
type MeetingService struct {
	client   *resty.Client
	apiURL   string
	apiToken string
}

// NewMeetingService creates a new meeting service
func NewMeetingService(apiURL, apiToken string) *MeetingService {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &MeetingService{
		client:   client,
		apiURL:   apiURL,
		apiToken: apiToken,
	}
}

// meetingResponse is the provider's create-meeting payload
type meetingResponse struct {
	ID       string `json:"id"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url"`
}

// Schedule provisions the room for a live class in place
func (s *MeetingService) Schedule(ctx context.Context, liveClass *model.LiveClass) error {
	if liveClass.Provider == model.ProviderJitsi {
		liveClass.RoomToken = s.jitsiRoom()
		return nil
	}

	meeting, err := s.createExternalMeeting(ctx, liveClass)
	if err != nil {
		// Fall back to a locally provisioned room so the class still happens.
		log.Printf("Meeting provider failed for live class %q, falling back to jitsi: %v", liveClass.Title, err)
		liveClass.Provider = model.ProviderJitsi
		liveClass.RoomToken = s.jitsiRoom()
		return nil
	}

	liveClass.MeetingID = meeting.ID
	liveClass.JoinURL = meeting.JoinURL
	return nil
}

// jitsiRoom generates a collision-safe room name
func (s *MeetingService) jitsiRoom() string {
	return "learnhub-" + uuid.New().String()
}

// createExternalMeeting calls the zoom-style provider API
func (s *MeetingService) createExternalMeeting(ctx context.Context, liveClass *model.LiveClass) (*meetingResponse, error) {
	if s.apiURL == "" || s.apiToken == "" {
		return nil, fmt.Errorf("meeting provider not configured")
	}

	var meeting meetingResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiToken).
		SetBody(map[string]interface{}{
			"topic":      liveClass.Title,
			"start_time": liveClass.ScheduledAt.Format(time.RFC3339),
			"duration":   liveClass.Duration,
			"type":       2, // scheduled meeting
		}).
		SetResult(&meeting).
		Post(s.apiURL + "/meetings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("meeting provider returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if meeting.ID == "" {
		return nil, fmt.Errorf("meeting provider returned empty meeting id")
	}
	return &meeting, nil
}

// Cancel tells the external provider to drop the meeting; jitsi rooms need no
// teardown. Failures are logged only.
func (s *MeetingService) Cancel(ctx context.Context, liveClass *model.LiveClass) {
	if liveClass.Provider != model.ProviderZoom || liveClass.MeetingID == "" {
		return
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiToken).
		Delete(s.apiURL + "/meetings/" + liveClass.MeetingID)
	if err != nil || resp.IsError() {
		log.Printf("Failed to cancel external meeting %s: %v", liveClass.MeetingID, err)
	}
}
