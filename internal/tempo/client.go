package tempo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ebriand/teleinfod/internal/logic"
)

// DefaultBaseURL is the production RTE API endpoint.
const DefaultBaseURL = "https://digital.api.rte-france.com"

const (
	tokenPath    = "/token/oauth/"
	calendarPath = "/open_api/tempo_like_supply_contract/v1/tempo_like_calendars"
)

// APIClient fetches Tempo calendar entries from the RTE API using the
// client-credentials flow. Tokens are acquired and refreshed lazily by
// the underlying oauth2 transport.
type APIClient struct {
	baseURL string
	httpc   *http.Client
	now     func() time.Time
}

// NewAPIClient creates a client authenticating with the given OAuth
// credentials. baseURL is empty for production; tests point it at a
// local server.
func NewAPIClient(baseURL, clientID, clientSecret string) *APIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return &APIClient{
		baseURL: baseURL,
		httpc:   cc.Client(context.Background()),
		now:     time.Now,
	}
}

// calendarResponse mirrors the RTE response envelope.
type calendarResponse struct {
	TempoLikeCalendars struct {
		Values []struct {
			StartDate   time.Time `json:"start_date"`
			EndDate     time.Time `json:"end_date"`
			Value       string    `json:"value"`
			UpdatedDate time.Time `json:"updated_date"`
		} `json:"values"`
	} `json:"tempo_like_calendars"`
}

// TomorrowColor fetches the calendar entry covering tomorrow's local
// calendar day.
func (c *APIClient) TomorrowColor(ctx context.Context) (Result, error) {
	now := c.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 1)

	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+calendarPath+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build calendar request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Result{}, fmt.Errorf("calendar request: status %d: %s", resp.StatusCode, body)
	}

	var cr calendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Result{}, fmt.Errorf("decode calendar response: %w", err)
	}
	if len(cr.TempoLikeCalendars.Values) == 0 {
		return Result{}, fmt.Errorf("calendar response has no values")
	}

	v := cr.TempoLikeCalendars.Values[0]
	color, err := parseColor(v.Value)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Color:       color,
		StartDate:   v.StartDate,
		UpdatedDate: v.UpdatedDate,
	}, nil
}

func parseColor(s string) (logic.Color, error) {
	switch s {
	case "BLUE":
		return logic.ColorBlue, nil
	case "WHITE":
		return logic.ColorWhite, nil
	case "RED":
		return logic.ColorRed, nil
	}
	return logic.ColorNone, fmt.Errorf("unknown calendar color %q", s)
}
