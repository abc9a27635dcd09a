package providers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// RegionalClient fetches one run of the regional model as GRIB2.
type RegionalClient interface {
	// FetchRegional streams the run's payload into w and returns the bytes written
	FetchRegional(ctx context.Context, run models.RunID, w io.Writer) (int64, error)
}

// GlobalClient fetches one run of the global model as GRIB2.
type GlobalClient interface {
	// FetchGlobal streams the run's payload into w and returns the bytes written
	FetchGlobal(ctx context.Context, run models.RunID, w io.Writer) (int64, error)
}

var gribMagic = []byte("GRIB")

// copyGRIB copies body to w after checking it starts like a GRIB file.
// An empty body means the run is not published yet.
func copyGRIB(w io.Writer, body io.Reader) (int64, error) {
	br := bufio.NewReader(body)
	head, err := br.Peek(len(gribMagic))
	if len(head) == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("failed to read response: %w", err)
		}
		return 0, fmt.Errorf("empty response: %w", models.ErrProviderUnavailable)
	}
	if !bytes.Equal(head, gribMagic) {
		return 0, fmt.Errorf("response is not GRIB: %w", models.ErrProviderUnavailable)
	}
	n, err := io.Copy(w, br)
	if err != nil {
		return n, fmt.Errorf("failed to copy response: %w", err)
	}
	return n, nil
}
