package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                string   `envconfig:"PORT" default:"8080"`
		RateLimitPerSecond  int      `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit int      `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		AdminAccessToken    string   `envconfig:"ADMIN_ACCESS_TOKEN" default:""`
		APIKey              string   `envconfig:"API_KEY" default:""`
		APIKeyRequired      bool     `envconfig:"API_KEY_REQUIRED" default:"false"`
		AllowedOrigins      []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

		// Upstream (QQ Music through the vkeys proxy)
		SearchURL           string `envconfig:"SEARCH_URL" default:"https://api.vkeys.cn/v2/music/tencent/search/song"`
		LyricURL            string `envconfig:"LYRIC_URL" default:"https://api.vkeys.cn/v2/music/tencent/lyric"`
		UpstreamUserAgent   string `envconfig:"UPSTREAM_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
		UpstreamTimeoutSecs int    `envconfig:"UPSTREAM_TIMEOUT_SECONDS" default:"10"`

		// Lookup pipeline
		StrategyDelayMs    int     `envconfig:"STRATEGY_DELAY_MS" default:"200"`      // Minimum spacing between upstream calls within one lookup
		MaxStrategies      int     `envconfig:"MAX_STRATEGIES" default:"6"`
		MinAcceptScore     float64 `envconfig:"MIN_ACCEPT_SCORE" default:"0"`         // Below this a match is kept only as a fallback while later strategies run
		EndTimeGapSecs     int     `envconfig:"END_TIME_GAP_SECONDS" default:"5"`
		TitleOverridesFile string  `envconfig:"TITLE_OVERRIDES_FILE" default:""`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`       // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds to wait before retrying (default: 5 minutes)

		LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat         string `envconfig:"LOG_FORMAT" default:"json"`
		LogFile           string `envconfig:"LOG_FILE" default:""`
		LogFileMaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"100"`
		LogFileMaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"3"`
		LogFileMaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" default:"30"`
	}

	// Scoring holds every tier, weight and bonus used by the match scorer.
	Scoring struct {
		TitleExactOriginal     float64 `envconfig:"SCORE_TITLE_EXACT_ORIGINAL" default:"100"`
		TitleExactProcessed    float64 `envconfig:"SCORE_TITLE_EXACT_PROCESSED" default:"90"`
		TitleCloseOriginal     float64 `envconfig:"SCORE_TITLE_CLOSE_ORIGINAL" default:"80"`
		TitleCloseProcessed    float64 `envconfig:"SCORE_TITLE_CLOSE_PROCESSED" default:"70"`
		TitleRomanized         float64 `envconfig:"SCORE_TITLE_ROMANIZED" default:"65"`
		TitleContainsOriginal  float64 `envconfig:"SCORE_TITLE_CONTAINS_ORIGINAL" default:"60"`
		TitleInOriginal        float64 `envconfig:"SCORE_TITLE_IN_ORIGINAL" default:"50"`
		TitleContainsProcessed float64 `envconfig:"SCORE_TITLE_CONTAINS_PROCESSED" default:"40"`
		TitleInProcessed       float64 `envconfig:"SCORE_TITLE_IN_PROCESSED" default:"30"`
		TitleFuzzy             float64 `envconfig:"SCORE_TITLE_FUZZY" default:"20"`
		FuzzyThreshold         float64 `envconfig:"SCORE_FUZZY_THRESHOLD" default:"0.9"`
		MinContainedLength     int     `envconfig:"SCORE_MIN_CONTAINED_LENGTH" default:"3"`

		ArtistExactOriginal     float64 `envconfig:"SCORE_ARTIST_EXACT_ORIGINAL" default:"100"`
		ArtistExactProcessed    float64 `envconfig:"SCORE_ARTIST_EXACT_PROCESSED" default:"80"`
		ArtistContainsOriginal  float64 `envconfig:"SCORE_ARTIST_CONTAINS_ORIGINAL" default:"60"`
		ArtistContainsProcessed float64 `envconfig:"SCORE_ARTIST_CONTAINS_PROCESSED" default:"40"`
		ArtistCeiling           float64 `envconfig:"SCORE_ARTIST_CEILING" default:"100"`

		TitleWeight          float64 `envconfig:"SCORE_TITLE_WEIGHT" default:"0.6"`
		ArtistLedTitleWeight float64 `envconfig:"SCORE_ARTIST_LED_TITLE_WEIGHT" default:"0.4"`
		TitleLedTitleWeight  float64 `envconfig:"SCORE_TITLE_LED_TITLE_WEIGHT" default:"0.8"`
		ArtistLedArtistMin   float64 `envconfig:"SCORE_ARTIST_LED_ARTIST_MIN" default:"80"`
		ArtistLedTitleMin    float64 `envconfig:"SCORE_ARTIST_LED_TITLE_MIN" default:"40"`
		TitleLedTitleMin     float64 `envconfig:"SCORE_TITLE_LED_TITLE_MIN" default:"90"`
		TitleLedArtistMin    float64 `envconfig:"SCORE_TITLE_LED_ARTIST_MIN" default:"40"`

		ExactTitleFloor        float64 `envconfig:"SCORE_EXACT_TITLE_FLOOR" default:"95"`
		CorroborationTitleMin  float64 `envconfig:"SCORE_CORROBORATION_TITLE_MIN" default:"70"`
		CorroborationArtistMin float64 `envconfig:"SCORE_CORROBORATION_ARTIST_MIN" default:"80"`
		CorroborationBonus     float64 `envconfig:"SCORE_CORROBORATION_BONUS" default:"15"`
		TrustedArtistTitleMin  float64 `envconfig:"SCORE_TRUSTED_ARTIST_TITLE_MIN" default:"40"`
		TrustedArtistBonus     float64 `envconfig:"SCORE_TRUSTED_ARTIST_BONUS" default:"10"`
		ExactMatchScore        float64 `envconfig:"SCORE_EXACT_MATCH" default:"200"`
	}

	FeatureFlags struct {
		KeepDisplayTags  bool `envconfig:"FF_KEEP_DISPLAY_TAGS" default:"true"`   // Keep [ti:] and [ar:] lines in synced lyrics
		RepairEndTime    bool `envconfig:"FF_REPAIR_END_TIME" default:"true"`     // Append a closing timestamp after the last lyric line
		PermissiveDecode bool `envconfig:"FF_PERMISSIVE_DECODE" default:"false"`  // Accept decoded payloads without time tags
		ExposeDebugInfo  bool `envconfig:"FF_EXPOSE_DEBUG_INFO" default:"false"`  // Add X-Match-* headers to lookup responses
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
