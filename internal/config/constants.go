package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultContentBackend = BackendSanity
	DefaultDatasetFile    = "./dataset.ndjson"

	DefaultSanityAPIVersion = "2024-10-01"
	DefaultSanityStudioURL  = "http://localhost:3333"

	DefaultDBDriver = "sqlite3"
	DefaultDBDSN    = "./newsroom.db"

	DefaultServerPort = 3000
	DefaultServerHost = "" // Empty string means all interfaces
	DefaultSiteURL    = "http://localhost:3000"

	DefaultNewsRevalidate = 300 * time.Second
	DefaultFetchTimeout   = 10 * time.Second

	DefaultLogLevel = "info"
)

// Content backends understood by the gateway.
const (
	BackendSanity = "sanity"
	BackendLocal  = "local"
)

// Environment variable names.
const (
	EnvContentBackend = "NEWSROOM_CONTENT_BACKEND"
	EnvDatasetFile    = "NEWSROOM_DATASET_FILE"
	EnvVisualEditing  = "NEWSROOM_VISUAL_EDITING"

	EnvSanityProjectID  = "SANITY_PROJECT_ID"
	EnvSanityDataset    = "SANITY_DATASET"
	EnvSanityAPIVersion = "SANITY_API_VERSION"
	EnvSanityToken      = "SANITY_API_READ_TOKEN"
	EnvSanityUseCDN     = "SANITY_USE_CDN"
	EnvSanityStudioURL  = "SANITY_STUDIO_URL"

	EnvDBDriver = "NEWSROOM_DB_DRIVER"
	EnvDBDSN    = "NEWSROOM_DB_DSN"

	EnvHost           = "NEWSROOM_HOST"
	EnvPort           = "NEWSROOM_PORT"
	EnvSiteURL        = "NEWSROOM_SITE_URL"
	EnvNewsRevalidate = "NEWSROOM_NEWS_REVALIDATE"
	EnvFetchTimeout   = "NEWSROOM_FETCH_TIMEOUT"
	EnvLogLevel       = "NEWSROOM_LOG_LEVEL"
)
