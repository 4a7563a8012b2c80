package deps

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marque/internal/index"
	"github.com/MrSnakeDoc/marque/internal/logger"
	redisstore "github.com/MrSnakeDoc/marque/internal/store/redis"
)

// HostLink reports the state of the extension host connection.
type HostLink interface {
	Connected() bool
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time   // for testing, defaults to time.Now
	AllowedHosts []string           // Host headers allowed to access the server
	AllowedCIDRS []string           // IPs allowed to access the API endpoints
	TrustProxy   bool               // true if running behind a trusted reverse proxy
	RedisClient  *redis.Client      // Redis client connection
	Store        *redisstore.Store  // Bookmark record store
	Folders      *index.FolderTable // In-memory folder snapshot
	Host         HostLink           // Extension host connection state
	WSHandler    http.HandlerFunc   // Extension socket upgrade handler
	SyncTrigger  chan struct{}      // Channel to trigger manual reconciliation
}
