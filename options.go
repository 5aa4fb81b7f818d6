package steward

import (
	"log/slog"

	"github.com/xraph/steward/model"
	"github.com/xraph/steward/plugin"
	"github.com/xraph/steward/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithModel sets the authorization model. Defaults to model.Default().
func WithModel(m *model.Model) Option { return func(e *Engine) { e.model = m } }

// WithCache sets the check result cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithTrustScores sets the trust score source of truth used by the trust
// level sync operations.
func WithTrustScores(ts TrustScores) Option { return func(e *Engine) { e.trust = ts } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
