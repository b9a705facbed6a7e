package dudosrv

import (
	"time"

	"github.com/dudo-games/dudo/internal/database"
)

type Config struct {
	Debug bool `envconfig:"DUDO_DEBUG" default:"false"`

	// Port serves the health endpoint.
	Port string `envconfig:"DUDO_HEALTH_PORT" default:"8080"`

	CacheSize int `envconfig:"DUDO_CACHE_SIZE" default:"128"`

	BrokerURL string `envconfig:"DUDO_BROKER_URL" default:"tcp://127.0.0.1:1883"`
	ClientID  string `envconfig:"DUDO_CLIENT_ID" default:"dudo-srv"`
	TopicRoot string `envconfig:"DUDO_TOPIC_ROOT" default:"dudo"`

	// RoomExpiry destroys rooms idle for longer than this; the sweep
	// runs every SweepInterval.
	RoomExpiry    time.Duration `envconfig:"DUDO_ROOM_EXPIRY" default:"2h"`
	SweepInterval time.Duration `envconfig:"DUDO_SWEEP_INTERVAL" default:"1m"`

	DB database.Config
}
