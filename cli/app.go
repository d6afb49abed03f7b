package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"pos-backoffice/auth"
	"pos-backoffice/config"
	"pos-backoffice/controllers"
	"pos-backoffice/mailer"
	"pos-backoffice/media"
	"pos-backoffice/services"
	"pos-backoffice/store"
)

// app is the wired application.
type app struct {
	cfg   *config.AppConfig
	store store.Store
	ctrl  *controllers.Controller
}

// setupLogger installs the process-wide logger: text in development, JSON in
// production.
func setupLogger(w io.Writer, cfg *config.AppConfig, verbose bool) {
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if cfg.Production() {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(ctx context.Context, cfg *config.AppConfig) (store.Store, error) {
	if cfg.MongoMode == config.ModeMemory {
		slog.Warn("Using the in-memory store, data is lost on exit")
		return store.NewMemoryStore(), nil
	}

	client, err := config.ConnectDB(ctx, cfg.MongoURI, cfg.MongoMode)
	if err != nil {
		return nil, err
	}
	transactions := cfg.MongoTransactions
	if transactions {
		ok, err := config.SupportsTransactions(ctx, client)
		if err != nil {
			slog.Warn("Could not check transaction support", "error", err)
		} else if !ok {
			slog.Warn("MongoDB is not a replica set, running without transactions")
			transactions = false
		}
	}
	slog.Info("MongoDB transactions", "enabled", transactions)
	st := store.NewMongoStore(client, cfg.MongoDB, transactions)
	if err := st.EnsureIndexes(ctx); err != nil {
		_ = st.Close(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return st, nil
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenMaker(cfg.PasetoSecretKey, cfg.TokenTTL)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	var mail mailer.Sender = mailer.LogSender{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		slog.Warn("SMTP_HOST not set, emails will only be logged")
	}

	var images media.Store
	if cfg.CloudinaryURL != "" {
		cld, err := media.NewCloudinaryStore(cfg.CloudinaryURL)
		if err != nil {
			_ = st.Close(context.Background())
			return nil, err
		}
		images = cld
	} else {
		slog.Warn("CLOUDINARY_URL not set, image uploads are disabled")
	}

	return &app{
		cfg:   cfg,
		store: st,
		ctrl: &controllers.Controller{
			Auth:          services.NewAuthService(st, tokens, mail, images, cfg.FrontendURL),
			Products:      services.NewProductService(st, images),
			Orders:        services.NewOrderService(st),
			Summary:       services.NewSummaryService(st, cfg.Location),
			Store:         st,
			SecureCookies: cfg.Production(),
		},
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		slog.Error("Failed to close store", "error", err)
	}
}
