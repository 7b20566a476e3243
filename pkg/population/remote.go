package population

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/gateway/httpclient"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// RegistryConfig points at a plan registry. TokenURL enables OAuth2 client
// credentials; without it requests go out unauthenticated.
type RegistryConfig struct {
	URL          string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
	Attempts     int
}

// Source yields plan records from outside the service.
type Source interface {
	Fetch(ctx context.Context) ([]models.PlanRecord, error)
}

// RemoteSource pulls plan records from the registry's /plans endpoint.
type RemoteSource struct {
	url      string
	client   *http.Client
	attempts int
}

var ErrRegistryNotConfigured = errors.New("plan registry URL not configured")

func NewRemoteSource(ctx context.Context, cfg RegistryConfig) (*RemoteSource, error) {
	if cfg.URL == "" {
		return nil, ErrRegistryNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}

	client := httpclient.New(cfg.Timeout)
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		// The token source uses the tuned client for its own requests too.
		client = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, client))
		client.Timeout = cfg.Timeout
	}

	return &RemoteSource{
		url:      strings.TrimRight(cfg.URL, "/") + "/plans",
		client:   client,
		attempts: cfg.Attempts,
	}, nil
}

type registryPage struct {
	Plans []models.PlanRecord `json:"plans"`
}

func (r *RemoteSource) Fetch(ctx context.Context) ([]models.PlanRecord, error) {
	var page registryPage
	err := httpclient.Retry(ctx, r.attempts, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
		if err != nil {
			return httpclient.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := httpclient.CheckStatus(resp); err != nil {
			return err
		}
		page = registryPage{}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return httpclient.Permanent(fmt.Errorf("decoding registry response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching plans from registry: %w", err)
	}
	return page.Plans, nil
}

// Sync copies every plan from src into the store and returns how many were
// written. Plans without a usable key are skipped.
func (s *Service) Sync(ctx context.Context, src Source) (int, error) {
	plans, err := src.Fetch(ctx)
	if err != nil {
		s.metrics.RegistrySync("error")
		return 0, err
	}
	valid := plans[:0]
	for _, p := range plans {
		if p.Patient.PatientNumber > 0 && p.Patient.PlanName != "" {
			valid = append(valid, p)
		}
	}
	if err := s.store.Upsert(ctx, valid); err != nil {
		s.metrics.RegistrySync("error")
		return 0, err
	}
	s.metrics.RegistrySync("ok")
	logger.WithField("plans", len(valid)).WithField("skipped", len(plans)-len(valid)).Info("registry sync complete")
	return len(valid), nil
}
