package server

import (
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/woozymasta/dzpool/assets"
	"github.com/woozymasta/dzpool/internal/config"
	"github.com/woozymasta/dzpool/internal/session"

	"github.com/rs/zerolog/log"
)

// ServerContext holds dependencies for request handlers.
//
// Session is not goroutine-safe; every handler touching it holds mu.
type ServerContext struct {
	Config    *config.Config
	Session   *session.Session
	Hub       *Hub
	IndexHTML []byte
	Favicon   []byte

	indexETag string
	mu        sync.Mutex
}

// NewServerContext builds the viewer page and wires the handlers to sess.
// The hub must be the one receiving the session's click events.
func NewServerContext(cfg *config.Config, sess *session.Session, hub *Hub) (*ServerContext, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if hub == nil {
		hub = NewHub()
	}

	page, err := assets.Build(assets.DefaultTitle, cfg.Attribution)
	if err != nil {
		return nil, fmt.Errorf("build viewer page: %w", err)
	}

	log.Info().
		Str("session", sess.ID()).
		Int("capacity", sess.Capacity()).
		Int("page_bytes", len(page)).
		Msg("Server context initialized")

	return &ServerContext{
		Config:    cfg,
		Session:   sess,
		Hub:       hub,
		IndexHTML: page,
		Favicon:   assets.Favicon,
		indexETag: fmt.Sprintf(`"%x-%x"`, len(page), crc32.ChecksumIEEE(page)),
	}, nil
}

// withSession runs fn with exclusive access to the session.
func (s *ServerContext) withSession(fn func(*session.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.Session)
}
