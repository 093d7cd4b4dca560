package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"
)

const (
	distanceMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	metersPerMile     = 1609.344
	statusOK          = "OK"
)

// Provider looks up a driving distance from an external mapping service.
type Provider interface {
	Lookup(ctx context.Context, originZip, destinationZip string) (Entry, error)
}

// GoogleClient calls the Distance Matrix API.
type GoogleClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewGoogleClient builds a client whose requests are bounded by timeout.
func NewGoogleClient(apiKey string, timeout time.Duration) *GoogleClient {
	return &GoogleClient{
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: distanceMatrixURL,
	}
}

// WithBaseURL points the client at another endpoint (tests, proxies).
func (g *GoogleClient) WithBaseURL(u string) *GoogleClient {
	g.baseURL = u
	return g
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// Lookup returns miles (one decimal) and minutes for the pair. Any non-OK
// status, at the HTTP, response or element level, is an error.
func (g *GoogleClient) Lookup(ctx context.Context, originZip, destinationZip string) (Entry, error) {
	params := url.Values{}
	params.Set("origins", originZip+", USA")
	params.Set("destinations", destinationZip+", USA")
	params.Set("units", "imperial")
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Entry{}, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("distance matrix request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("distance matrix upstream error: %d", resp.StatusCode)
	}

	var payload matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Entry{}, fmt.Errorf("decode distance matrix payload: %w", err)
	}
	if payload.Status != statusOK {
		return Entry{}, fmt.Errorf("distance matrix status %s: %s", payload.Status, payload.ErrorMessage)
	}
	if len(payload.Rows) == 0 || len(payload.Rows[0].Elements) == 0 {
		return Entry{}, errors.New("distance matrix returned no elements")
	}

	element := payload.Rows[0].Elements[0]
	if element.Status != statusOK {
		return Entry{}, fmt.Errorf("distance matrix element status %s", element.Status)
	}

	return Entry{
		Miles:           math.Round(element.Distance.Value/metersPerMile*10) / 10,
		DurationMinutes: int(math.Round(element.Duration.Value / 60)),
		Source:          SourceProvider,
	}, nil
}
