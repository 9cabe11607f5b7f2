package internal

import (
	"fmt"
	"time"
)

type Config struct {
	PostServiceURL      string        `env:"POST_SERVICE_URL,required=true"`
	ProfileServiceURL   string        `env:"PROFILE_SERVICE_URL,required=true"`
	CollaboratorTimeout time.Duration `env:"COLLABORATOR_TIMEOUT,default=5s"`

	BufferSize      int           `env:"BUFFER_SIZE,required=true"`
	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,required=true"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,required=true"`
	RecountAttempts int           `env:"RECOUNT_ATTEMPTS,default=3"`
	RecountBackoff  time.Duration `env:"RECOUNT_BACKOFF,default=250ms"`
	PresenceBuffer  int           `env:"PRESENCE_BUFFER,default=16"`
	LimitMessages   *int          `env:"LIMIT_MESSAGES"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	CensoredChar string `env:"CENSORED_CHARACTER,default=*"`

	AuthSecret     string `env:"AUTH_SECRET,required=true"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=*"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
}

// CharacterRune enforces that a replacement setting is a single character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSORED_CHARACTER must be a single character, got %q", str)
	}
	return r[0], nil
}
