package api

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"carbonseed/internal/auth"
	"carbonseed/internal/bus"
	"carbonseed/internal/cache"
	"carbonseed/internal/ingest"
	"carbonseed/internal/reports"
	"carbonseed/internal/storage"
	"carbonseed/internal/timeseries"
)

const (
	presignURLExpiry = 15 * time.Minute
	exportRowLimit   = 50000
)

// Store holds external dependencies required by the API layer. Cache, Bus,
// and S3 are optional.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
	S3  *storage.Client
	Bus *bus.Bus

	Cache *cache.Latest
}

// Config controls runtime behaviour for the API handlers.
type Config struct {
	ReportBucket    string
	HeartbeatWindow time.Duration
	AllowedOrigins  []string
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	store   *Store
	config  Config
	tokens  *auth.Tokens
	ingest  *ingest.Service
	agg     *timeseries.Repo
	reports *reports.Service
	log     zerolog.Logger
}

// New initialises the API layer with sane defaults applied to the provided
// configuration.
func New(store *Store, tokens *auth.Tokens, ingestSvc *ingest.Service, cfg Config, log zerolog.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if store.ORM == nil {
		return nil, errors.New("store ORM is required")
	}
	if store.DB == nil {
		return nil, errors.New("store DB pool is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if ingestSvc == nil {
		return nil, errors.New("ingest service is required")
	}

	if cfg.HeartbeatWindow <= 0 {
		cfg.HeartbeatWindow = 5 * time.Minute
	}
	if cfg.ReportBucket == "" {
		cfg.ReportBucket = "carbonseed-reports"
	}

	agg := timeseries.NewRepo(store.DB)

	return &API{
		store:   store,
		config:  cfg,
		tokens:  tokens,
		ingest:  ingestSvc,
		agg:     agg,
		reports: reports.NewService(store.ORM, agg, store.S3, cfg.ReportBucket, log),
		log:     log,
	}, nil
}
