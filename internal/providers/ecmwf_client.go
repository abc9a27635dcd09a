package providers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

const (
	DefaultECMWFBaseURL    = "https://data.ecmwf.int/forecasts"
	DefaultECMWFModel      = "aifs-single"
	DefaultECMWFResolution = "0p25"
	ecmwfStream            = "oper"
	ecmwfType              = "fc"
)

var (
	// ecmwfParams are total precipitation, 10 m u/v wind and total cloud cover.
	ecmwfParams = []string{"tp", "10u", "10v", "tcc"}
	// ecmwfSteps are the lead times in hours, 0 to 48 every 6.
	ecmwfSteps = []int{0, 6, 12, 18, 24, 30, 36, 42, 48}
)

// ECMWFClient implements GlobalClient against ECMWF open data. For every
// step it reads the JSON-lines index and downloads only the wanted
// parameters with HTTP range requests.
type ECMWFClient struct {
	baseURL    string
	model      string
	resolution string
	httpClient *http.Client
}

// NewECMWFClient creates a client; empty strings select the public defaults.
func NewECMWFClient(baseURL, model, resolution string, timeout time.Duration) *ECMWFClient {
	if baseURL == "" {
		baseURL = DefaultECMWFBaseURL
	}
	if model == "" {
		model = DefaultECMWFModel
	}
	if resolution == "" {
		resolution = DefaultECMWFResolution
	}
	return &ECMWFClient{
		baseURL:    baseURL,
		model:      model,
		resolution: resolution,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// indexEntry is one line of an open data .index file.
type indexEntry struct {
	Param  string `json:"param"`
	Step   string `json:"step"`
	Offset int64  `json:"_offset"`
	Length int64  `json:"_length"`
}

// FileURL returns the GRIB2 file URL for one step of a run.
func (c *ECMWFClient) FileURL(run models.RunID, step int) string {
	date := run.DateString()
	return fmt.Sprintf("%s/%s/%02dz/%s/%s/%s/%s%02d0000-%dh-%s-%s.grib2",
		c.baseURL, date, run.Hour, c.model, c.resolution, ecmwfStream,
		date, run.Hour, step, ecmwfStream, ecmwfType)
}

// FetchGlobal downloads tp, 10u, 10v and tcc for every step and writes them
// as one concatenated GRIB2 stream. Any missing step or parameter fails the
// whole run.
func (c *ECMWFClient) FetchGlobal(ctx context.Context, run models.RunID, w io.Writer) (int64, error) {
	var total int64
	for _, step := range ecmwfSteps {
		file := c.FileURL(run, step)
		ranges, err := c.fetchIndex(ctx, file)
		if err != nil {
			return total, fmt.Errorf("global run %s step %dh: %w", run, step, err)
		}
		for _, rg := range ranges {
			n, err := c.fetchRange(ctx, file, rg, w)
			total += n
			if err != nil {
				return total, fmt.Errorf("global run %s step %dh: %w", run, step, err)
			}
		}
	}
	return total, nil
}

type byteRange struct {
	start, end int64 // inclusive
}

// fetchIndex resolves the wanted parameters to merged byte ranges.
func (c *ECMWFClient) fetchIndex(ctx context.Context, file string) ([]byteRange, error) {
	indexURL := file[:len(file)-len(".grib2")] + ".index"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned status %d: %w", resp.StatusCode, models.ErrProviderUnavailable)
	}

	found := make(map[string]indexEntry)
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e indexEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to parse index line %q: %w", line, err)
		}
		if _, dup := found[e.Param]; !dup && wanted(e.Param) {
			found[e.Param] = e
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	entries := make([]indexEntry, 0, len(ecmwfParams))
	for _, p := range ecmwfParams {
		e, ok := found[p]
		if !ok {
			return nil, fmt.Errorf("parameter %s missing from index: %w", p, models.ErrProviderUnavailable)
		}
		entries = append(entries, e)
	}
	return mergeRanges(entries), nil
}

func wanted(param string) bool {
	for _, p := range ecmwfParams {
		if p == param {
			return true
		}
	}
	return false
}

// mergeRanges sorts entries by offset and joins adjacent messages so
// neighbouring parameters come down in a single request.
func mergeRanges(entries []indexEntry) []byteRange {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
	var out []byteRange
	for _, e := range entries {
		end := e.Offset + e.Length - 1
		if n := len(out); n > 0 && out[n-1].end+1 == e.Offset {
			out[n-1].end = end
			continue
		}
		out = append(out, byteRange{start: e.Offset, end: end})
	}
	return out
}

func (c *ECMWFClient) fetchRange(ctx context.Context, file string, rg byteRange, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rg.start, rg.end))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		return 0, fmt.Errorf("server did not accept range request")
	default:
		return 0, fmt.Errorf("data returned status %d: %w", resp.StatusCode, models.ErrProviderUnavailable)
	}
	return copyGRIB(w, resp.Body)
}
