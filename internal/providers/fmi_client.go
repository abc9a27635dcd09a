package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

const (
	DefaultFMIBaseURL = "https://opendata.fmi.fi/download"
	fmiProducer       = "harmonie_scandinavia_surface"
	fmiTimeStep       = 360 // minutes
	fmiTimeSteps      = 9
)

// fmiParams are precipitation amount, 10 m u/v wind and total cloud cover.
var fmiParams = []string{"PrecipitationAmount", "windums", "windvms", "totalcloudcover"}

// FMIClient implements RegionalClient against the FMI open data download service
type FMIClient struct {
	baseURL    string
	httpClient *http.Client
	bbox       models.Extent
}

// NewFMIClient creates a client; an empty baseURL selects the public service.
// A zero timeout leaves requests bounded only by their context.
func NewFMIClient(baseURL string, timeout time.Duration) *FMIClient {
	if baseURL == "" {
		baseURL = DefaultFMIBaseURL
	}
	return &FMIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		bbox: models.ScandinaviaExtent,
	}
}

// RequestURL builds the download query for a run.
func (c *FMIClient) RequestURL(run models.RunID) string {
	params := url.Values{}
	params.Add("producer", fmiProducer)
	params.Add("param", strings.Join(fmiParams, ","))
	params.Add("origintime", run.Origin().Format("2006-01-02T15:04:05Z"))
	params.Add("bbox", fmt.Sprintf("%s,%s,%s,%s",
		formatDeg(c.bbox.LonMin), formatDeg(c.bbox.LatMin),
		formatDeg(c.bbox.LonMax), formatDeg(c.bbox.LatMax)))
	params.Add("projection", "EPSG:4326")
	params.Add("format", "grib2")
	params.Add("timestep", strconv.Itoa(fmiTimeStep))
	params.Add("timesteps", strconv.Itoa(fmiTimeSteps))

	return fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
}

// FetchRegional downloads the run. A zero-byte body means the run has not
// been published yet and is reported as ErrProviderUnavailable.
func (c *FMIClient) FetchRegional(ctx context.Context, run models.RunID, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(run), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch regional run %s: %w", run, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("FMI returned status %d: %w", resp.StatusCode, models.ErrProviderUnavailable)
	}

	n, err := copyGRIB(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("regional run %s: %w", run, err)
	}
	return n, nil
}

func formatDeg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
