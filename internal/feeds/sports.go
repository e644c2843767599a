package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Team is a sports team returned by the search call.
type Team struct {
	ID   string `json:"idTeam"`
	Name string `json:"strTeam"`
}

// Event is a completed match returned by the last-events call.
type Event struct {
	ID        string `json:"idEvent"`
	Name      string `json:"strEvent"`
	HomeTeam  string `json:"strHomeTeam"`
	AwayTeam  string `json:"strAwayTeam"`
	HomeScore string `json:"intHomeScore"`
	AwayScore string `json:"intAwayScore"`
	Date      string `json:"dateEvent"`
}

// Scores returns the numeric final score. ok is false when either score is
// missing or non-numeric (e.g. an unfinished fixture).
func (e Event) Scores() (home, away int, ok bool) {
	home, err1 := strconv.Atoi(e.HomeScore)
	away, err2 := strconv.Atoi(e.AwayScore)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return home, away, true
}

// SportsClient is the two-call sports feed: a team search followed by a
// most-recent-events lookup, TheSportsDB style.
type SportsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSportsClient creates a sports feed client. baseURL is the API root
// including the key segment, e.g. "https://www.thesportsdb.com/api/v1/json/3".
func NewSportsClient(baseURL string) *SportsClient {
	return &SportsClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

// SearchTeams looks up teams by name. An empty slice means no match.
func (c *SportsClient) SearchTeams(ctx context.Context, name string) ([]Team, error) {
	u := fmt.Sprintf("%s/searchteams.php?t=%s", c.baseURL, url.QueryEscape(name))

	doc, err := getJSON(ctx, c.httpClient, u)
	if err != nil {
		return nil, fmt.Errorf("feeds: sports team search %q: %w", name, err)
	}

	var resp struct {
		Teams []Team `json:"teams"`
	}
	if err := reencode(doc, &resp); err != nil {
		return nil, fmt.Errorf("feeds: decode team search: %w", err)
	}
	return resp.Teams, nil
}

// LastEvents returns the team's most recent completed events, newest first.
func (c *SportsClient) LastEvents(ctx context.Context, teamID string) ([]Event, error) {
	u := fmt.Sprintf("%s/eventslast.php?id=%s", c.baseURL, url.QueryEscape(teamID))

	doc, err := getJSON(ctx, c.httpClient, u)
	if err != nil {
		return nil, fmt.Errorf("feeds: sports last events %s: %w", teamID, err)
	}

	var resp struct {
		Results []Event `json:"results"`
	}
	if err := reencode(doc, &resp); err != nil {
		return nil, fmt.Errorf("feeds: decode last events: %w", err)
	}
	return resp.Results, nil
}

// reencode converts an untyped JSON document into a typed struct.
func reencode(doc any, dst any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
