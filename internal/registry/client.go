package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
)

var verifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "ledgergate_registry_verify_duration_seconds",
	Help:    "Latency of identity verification calls against the game registry",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
})

// nationRecord is the subset of the registry's nation payload we care about.
type nationRecord struct {
	NationID         string `json:"nation_id"`
	RulerName        string `json:"ruler_name"`
	VerificationCode string `json:"verification_code"`
}

// Client is the production Verifier: it fetches the nation record over HTTP
// and compares the profile's verification code with the claimed one.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a registry client. The timeout bounds the whole request;
// there is no retry, a failed verification attempt is client-visible.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify looks up the nation by whichever identifier the claim carries and
// checks the unique code. Missing nation and wrong code are both a plain
// "not verified"; only transport-level problems become errors.
func (c *Client) Verify(ctx context.Context, claim auth.IdentityClaim) (bool, error) {
	start := time.Now()
	defer func() {
		verifyDuration.Observe(time.Since(start).Seconds())
	}()

	query := url.Values{}
	if claim.NationID != "" {
		query.Set("nation_id", claim.NationID)
	} else {
		query.Set("ruler_name", claim.RulerName)
	}

	endpoint := fmt.Sprintf("%s/nation?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build registry request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "registry unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Indistinguishable from a code mismatch on purpose.
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, dErrors.New(dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("registry returned status %d", resp.StatusCode))
	}

	var record nationRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "registry returned malformed payload")
	}

	return record.VerificationCode != "" && record.VerificationCode == claim.UniqueCode, nil
}
