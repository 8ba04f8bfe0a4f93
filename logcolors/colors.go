package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
)

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// Middleware log prefixes
const (
	LogHTTP      = Cyan + "[HTTP]" + Reset
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// Lookup pipeline log prefixes
const (
	LogRequest   = Purple + "[Request]" + Reset
	LogStrategy  = Cyan + "[Strategy]" + Reset
	LogSearch    = Blue + "[Search]" + Reset
	LogOverride  = Yellow + "[Override]" + Reset
	LogMatch     = Green + "[Match]" + Reset
	LogBestMatch = Green + "[Best Match]" + Reset
	LogFallback  = Cyan + "[Fallback]" + Reset
	LogLyrics    = Blue + "[Lyrics]" + Reset
	LogDecode    = Cyan + "[Decode]" + Reset
	LogSuccess   = Green + "[Success]" + Reset
	LogNotFound  = Yellow + "[Not Found]" + Reset
	LogWarning   = Red + "[Warning]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}
