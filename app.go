package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/HeliosCommand/server/internal/agent/capabilities"
	"github.com/HeliosCommand/server/internal/agent/graph"
	"github.com/HeliosCommand/server/internal/agent/graph/address"
	"github.com/HeliosCommand/server/internal/agent/graph/conversations"
	"github.com/HeliosCommand/server/internal/agent/graph/intents"
	"github.com/HeliosCommand/server/internal/agent/llm"
	"github.com/HeliosCommand/server/internal/agent/model"
	"github.com/HeliosCommand/server/internal/agent/repo"
	"github.com/HeliosCommand/server/internal/flood"
	"github.com/HeliosCommand/server/internal/geo"
	"github.com/HeliosCommand/server/internal/notify"
	"github.com/HeliosCommand/server/internal/websearch"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// App holds the clients built once at startup.
type App struct {
	cfg      *AppConfig
	models   *llm.ChatModels
	runner   graph.Runner
	sessions model.SessionRepository
	email    notify.EmailSender
	sms      notify.SMSSender
	rdb      *redis.Client
}

// newApp builds the shared clients. Only the LLM key is required; every other
// missing credential surfaces later as a failed capability or an unconfigured channel.
func newApp(ctx context.Context, cfg *AppConfig) (*App, error) {
	models, err := llm.NewChatModels(ctx, llm.ChatModelConfig{
		LLM:     cfg.LLM,
		Router:  &cfg.Router,
		Utility: &cfg.Utility,
	})
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, models: models}
	app.email = app.newEmailSender(ctx)
	app.sms = app.newSMSSender(ctx)

	if app.sessions, err = app.newSessionRepository(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func (a *App) newSessionRepository(ctx context.Context) (model.SessionRepository, error) {
	switch strings.ToLower(a.cfg.Conversation.Store) {
	case "", "file":
		return repo.NewFileSessionRepository(a.cfg.Conversation.Dir), nil
	case "redis":
		if !a.cfg.Redis.Enabled() {
			return nil, fmt.Errorf("SESSION_STORE=redis requires REDIS_URL")
		}
		ttl, err := a.cfg.Conversation.TTLDuration()
		if err != nil {
			return nil, err
		}
		rdb, err := a.cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.rdb = rdb
		logx.Info().Msg("Connected to Redis session store")
		return repo.NewRedisSessionRepository(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", a.cfg.Conversation.Store)
	}
}

func (a *App) newEmailSender(ctx context.Context) notify.EmailSender {
	var (
		sender notify.EmailSender
		err    error
	)
	switch strings.ToLower(a.cfg.EmailTransport) {
	case "ses":
		var s *notify.SESSender
		if s, err = notify.NewSESSender(ctx, a.cfg.SES); err == nil {
			sender = s
		}
	default:
		var s *notify.GmailSender
		if s, err = notify.NewGmailSender(ctx, a.cfg.Gmail); err == nil {
			sender = s
		}
	}
	if err != nil {
		logx.Warn().Err(err).Str("transport", a.cfg.EmailTransport).Msg("Email transport not configured")
		return nil
	}
	return sender
}

func (a *App) newSMSSender(ctx context.Context) notify.SMSSender {
	var (
		sender notify.SMSSender
		err    error
	)
	switch strings.ToLower(a.cfg.SMSTransport) {
	case "sns":
		var s *notify.SNSSender
		if s, err = notify.NewSNSSender(ctx, a.cfg.SNS); err == nil {
			sender = s
		}
	default:
		var s *notify.TwilioSender
		if s, err = notify.NewTwilioSender(a.cfg.Twilio); err == nil {
			sender = s
		}
	}
	if err != nil {
		logx.Warn().Err(err).Str("transport", a.cfg.SMSTransport).Msg("SMS transport not configured")
		return nil
	}
	return sender
}

// mapsClients returns nil interfaces when a key is missing so handlers report the config error.
func (a *App) mapsClients() (geo.Geocoder, geo.PlacesSearcher) {
	var (
		geocoder geo.Geocoder
		places   geo.PlacesSearcher
	)
	if g, err := geo.NewGoogleMaps(notify.CleanEnv(a.cfg.MapsKey)); err == nil {
		geocoder = g
	} else {
		logx.Warn().Err(err).Msg("Geocoding disabled")
	}
	if p, err := geo.NewGoogleMaps(a.cfg.placesKey()); err == nil {
		places = p
	} else {
		logx.Warn().Err(err).Msg("Places search disabled")
	}
	return geocoder, places
}

// Runner builds the router turn graph on first use.
func (a *App) Runner(ctx context.Context) (graph.Runner, error) {
	if a.runner != nil {
		return a.runner, nil
	}

	geocoder, places := a.mapsClients()
	hospitals, err := capabilities.LoadHospitalsFile(a.cfg.HospitalDataset)
	if err != nil {
		logx.Warn().Err(err).Str("path", a.cfg.HospitalDataset).Msg("Hospital dataset unavailable")
	}

	registry := capabilities.NewRegistry(
		capabilities.NewHospitalFinder(hospitals, geocoder),
		capabilities.NewPharmacyFinder(geocoder, places),
		capabilities.NewEmailComposer(a.models.Utility, a.email, a.cfg.UserEmail),
	)

	rules, err := intents.DefaultRules()
	if err != nil {
		return nil, err
	}

	runner, err := graph.BuildTurnGraph(ctx, &graph.GraphConfig{
		ChatModels:      a.models,
		Registry:        registry,
		Router:          intents.NewRouter(rules, intents.NewModelClassifier(a.models.Utility)),
		Resolver:        address.NewResolver(a.models.Utility, geocoder),
		MessagesManager: conversations.NewMessagesManager(a.cfg.Conversation),
		ToolMaxCalls:    a.cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build turn graph: %w", err)
	}
	a.runner = runner
	return runner, nil
}

// FloodPipeline wires the analyst, the scraper and the alert stage.
func (a *App) FloodPipeline(ctx context.Context) (*flood.Pipeline, error) {
	httpClient := &http.Client{Timeout: a.cfg.Search.Timeout}

	var web flood.Reporter
	search, err := websearch.NewClient(a.cfg.Search, httpClient)
	if err != nil {
		logx.Warn().Err(err).Msg("Web search not configured")
		web = flood.ReporterFunc(func(context.Context) (string, error) { return "", err })
	} else {
		web = flood.ReporterFunc(websearch.NewScraper(search, websearch.NewHTMLFetcher(httpClient)).Digest)
	}

	return flood.NewPipeline(ctx, flood.Dependencies{
		Sensors: flood.NewCSVAnalyst(a.models.Utility, a.cfg.Flood.SensorDataPath),
		Web:     web,
		Alert:   flood.NewAlertStage(a.models.Utility, a.email, a.sms, a.cfg.Flood),
	}, a.cfg.Flood)
}
