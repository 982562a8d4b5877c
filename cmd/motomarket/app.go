package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"motomarket/internal/app/commands"
	favoriteapp "motomarket/internal/app/handlers/favorites"
	listingapp "motomarket/internal/app/handlers/listings"
	messagingapp "motomarket/internal/app/handlers/messaging"
	notificationapp "motomarket/internal/app/handlers/notifications"
	savedsearchapp "motomarket/internal/app/handlers/savedsearches"
	userapp "motomarket/internal/app/handlers/users"
	"motomarket/internal/app/middleware"
	appoutbox "motomarket/internal/app/outbox"
	"motomarket/internal/app/policies"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/reactions"
	authsvc "motomarket/internal/app/services/auth"
	"motomarket/internal/app/uow"
	domainauth "motomarket/internal/domain/auth"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	domainuser "motomarket/internal/domain/user"
	"motomarket/internal/infra/broker/kafka"
	rediscache "motomarket/internal/infra/cache/redis"
	"motomarket/internal/infra/config"
	mongodb "motomarket/internal/infra/db/mongo"
	ginserver "motomarket/internal/infra/http/gin"
	"motomarket/internal/infra/inbox"
	"motomarket/internal/infra/obs"
	infraoutbox "motomarket/internal/infra/outbox"
	"motomarket/internal/infra/queue"
	"motomarket/internal/infra/realtime"
	"motomarket/internal/infra/security"
	"motomarket/internal/infra/storage/memory"
	"motomarket/internal/infra/storage/s3"
	"motomarket/internal/infra/storage/sqlstore"
)

// eventNames lists every event the reactions consumer subscribes to.
var eventNames = []string{
	domainlistings.EventPublished,
	domainlistings.EventUpdated,
	domainlistings.EventSold,
	domainlistings.EventRemoved,
	domainmessaging.EventMessageSent,
	domainmessaging.EventConversationRead,
	domainnotifications.EventCreated,
}

type runner func(ctx context.Context) error

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	commands commands.Bus
	queries  queries.Bus
	factory  uow.UoWFactory
	realtime *realtime.Router

	runners map[string]runner
	closers []func(ctx context.Context) error
}

// storage bundles the transactional factory with the stores the auth service
// writes to outside of a command.
type storage struct {
	factory  uow.UoWFactory
	users    domainuser.Repository
	sessions domainauth.SessionStore
	probe    obs.Probe
	close    func(ctx context.Context) error
}

func openStorage(cfg config.Config) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite, config.DriverPostgres:
		var (
			store *sqlstore.Store
			err   error
		)
		if cfg.StorageDriver == config.DriverSQLite {
			store, err = sqlstore.OpenSQLite(cfg.SQLitePath)
		} else {
			store, err = sqlstore.OpenPostgres(cfg.DatabaseURL)
		}
		if err != nil {
			return storage{}, err
		}
		return storage{
			factory:  store,
			users:    store.Users(),
			sessions: store.Sessions(),
			probe:    store.Ping,
			close:    func(context.Context) error { return store.Close() },
		}, nil
	default:
		factory := memory.NewFactory(memory.NewStore())
		return storage{
			factory:  factory,
			users:    factory.Users(),
			sessions: memory.NewSessionStore(),
		}, nil
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{runners: map[string]runner{}}
	fail := func(err error) (*application, error) {
		_ = app.close(context.Background())
		return nil, err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fail(fmt.Errorf("open storage: %w", err))
	}
	app.factory = store.factory
	probes := map[string]obs.Probe{}
	if store.probe != nil {
		probes["storage"] = store.probe
	}
	if store.close != nil {
		app.closers = append(app.closers, store.close)
	}

	var mongoClient *mongodb.Client
	if cfg.MongoURI != "" {
		mongoClient, err = mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fail(err)
		}
		probes["mongo"] = mongoClient.Ping
		app.closers = append(app.closers, mongoClient.Close)
	}

	var cache policies.Cache = memory.NewCache()
	var jobs policies.JobQueue
	var registerJob func(taskType string, h policies.JobHandler)
	if cfg.RedisURL != "" {
		redisCache, err := rediscache.New(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		cache = redisCache
		probes["redis"] = redisCache.Ping
		app.closers = append(app.closers, func(context.Context) error { return redisCache.Close() })

		client, err := queue.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		server, err := queue.NewAsynqServer(cfg.RedisURL, 4, logger)
		if err != nil {
			return fail(err)
		}
		jobs, registerJob = client, server.Register
		app.runners["jobs"] = server.Run
	} else {
		inline := queue.NewInline(logger)
		jobs, registerJob = inline, inline.Register
	}

	app.realtime = realtime.NewRouter(logger)
	app.closers = append(app.closers, func(context.Context) error { app.realtime.Close(); return nil })

	var uploader s3.Uploader
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(s3.Config{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicEndpoint,
		}, logger)
		if err != nil {
			return fail(err)
		}
		uploader = client
	} else {
		logger.Info("S3_ENDPOINT not set, photo uploads disabled")
	}

	catalogHandler := &listingapp.SearchCatalogHandler{UoWFactory: store.factory}
	catalog := &listingapp.CachedCatalog{Next: catalogHandler, Cache: cache, TTL: cfg.CatalogCacheTTL, Logger: logger}
	dispatcher := &reactions.Dispatcher{Notifier: app.realtime, Jobs: jobs, Catalog: catalog, Logger: logger}

	var idempotency middleware.IdempotencyStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	var box appoutbox.Outbox
	if mongoClient != nil {
		idStore, err := mongodb.NewIdempotencyStore(ctx, mongoClient.DB, cfg.IdempotencyTTL)
		if err != nil {
			return fail(err)
		}
		idempotency = idStore
	}
	if cfg.UsesBroker() {
		relay, err := buildBroker(ctx, app, cfg, mongoClient, dispatcher, logger)
		if err != nil {
			return fail(err)
		}
		box = relay
	} else {
		box = memory.NewOutbox(dispatcher, logger)
	}

	encoder := appoutbox.JSONEventEncoder{}
	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, listingapp.CreateListingCommand{}.Key(), &listingapp.CreateListingHandler{Logger: logger, Encoder: encoder})
	commands.RegisterHandler(commandBus, listingapp.UpdateListingCommand{}.Key(), &listingapp.UpdateListingHandler{Logger: logger, Encoder: encoder})
	commands.RegisterHandler(commandBus, listingapp.MarkSoldCommand{}.Key(), &listingapp.MarkSoldHandler{Logger: logger, Encoder: encoder})
	commands.RegisterHandler(commandBus, listingapp.RemoveListingCommand{}.Key(), &listingapp.RemoveListingHandler{Logger: logger, Encoder: encoder})
	commands.RegisterHandler(commandBus, listingapp.UploadListingPhotoCommand{}.Key(), &listingapp.UploadListingPhotoHandler{Logger: logger, Uploader: uploader, Encoder: encoder})
	commands.RegisterHandler(commandBus, favoriteapp.AddFavoriteCommand{}.Key(), &favoriteapp.AddFavoriteHandler{Logger: logger})
	commands.RegisterHandler(commandBus, favoriteapp.RemoveFavoriteCommand{}.Key(), &favoriteapp.RemoveFavoriteHandler{})
	commands.RegisterHandler(commandBus, savedsearchapp.CreateCommand{}.Key(), &savedsearchapp.CreateHandler{Logger: logger})
	commands.RegisterHandler(commandBus, savedsearchapp.DeleteCommand{}.Key(), &savedsearchapp.DeleteHandler{})
	commands.RegisterHandler(commandBus, savedsearchapp.RunCommand{}.Key(), &savedsearchapp.RunHandler{})
	commands.RegisterHandler(commandBus, savedsearchapp.NotifyMatchesCommand{}.Key(), &savedsearchapp.NotifyMatchesHandler{Logger: logger, Encoder: encoder})
	commands.RegisterHandler(commandBus, messagingapp.StartConversationCommand{}.Key(), &messagingapp.StartConversationHandler{Logger: logger, Encoder: encoder})
	commands.RegisterHandler(commandBus, messagingapp.SendMessageCommand{}.Key(), &messagingapp.SendMessageHandler{Logger: logger, Encoder: encoder})
	commands.RegisterHandler(commandBus, messagingapp.MarkConversationReadCommand{}.Key(), &messagingapp.MarkConversationReadHandler{Encoder: encoder})
	commands.RegisterHandler(commandBus, notificationapp.MarkReadCommand{}.Key(), &notificationapp.MarkReadHandler{})
	commands.RegisterHandler(commandBus, notificationapp.MarkAllReadCommand{}.Key(), &notificationapp.MarkAllReadHandler{})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, listingapp.SearchCatalogQuery{}.Key(), catalog)
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, listingapp.SellerListingsQuery{}.Key(), &listingapp.SellerListingsHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, favoriteapp.ListFavoritesQuery{}.Key(), &favoriteapp.ListFavoritesHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, savedsearchapp.ListQuery{}.Key(), &savedsearchapp.ListHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, messagingapp.ListConversationsQuery{}.Key(), &messagingapp.ListConversationsHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, messagingapp.ListMessagesQuery{}.Key(), &messagingapp.ListMessagesHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, notificationapp.ListNotificationsQuery{}.Key(), &notificationapp.ListNotificationsHandler{UoWFactory: store.factory})
	queries.RegisterHandler(queryBus, userapp.GetProfileQuery{}.Key(), &userapp.GetProfileHandler{UoWFactory: store.factory})

	app.commands = middleware.ChainCommands(
		commandBus,
		middleware.Authorization(middleware.RequireActor),
		middleware.Idempotency(idempotency, nil),
		middleware.OutboxFlush(box, logger),
		middleware.Transaction(store.factory, nil),
	)
	app.queries = middleware.ChainQueries(queryBus, middleware.QueryAuthorization(middleware.RequireActor))
	logger.Debug("buses ready", "commands", commandBus.Keys(), "queries", queryBus.Keys())
	registerJob(policies.TaskSavedSearchAlerts, savedsearchapp.AlertJob(app.commands))

	tokens, err := security.NewJWTIssuer(cfg.JWTSecret, nil)
	if err != nil {
		return fail(err)
	}
	auth := &authsvc.Service{
		Users:      store.users,
		Sessions:   store.sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     tokens,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	app.health = obs.HealthHandlers{Probes: probes, Timeout: 2 * time.Second}
	app.handlers = ginserver.Handlers{
		Auth:          ginserver.AuthHandler{Service: auth, Logger: logger, CookieDomain: cfg.CookieDomain, SecureCookie: !cfg.IsDev()},
		Users:         ginserver.UserHandler{Queries: app.queries, Logger: logger},
		Listings:      ginserver.ListingHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Favorites:     ginserver.FavoriteHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		SavedSearches: ginserver.SavedSearchHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Chat:          ginserver.ChatHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Notifications: ginserver.NotificationHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Realtime:      ginserver.NewRealtimeHandler(app.realtime, auth, cfg.CORSOrigins, logger),
		AuthMiddleware: ginserver.AuthMiddleware{
			Service: auth,
			Logger:  logger,
		}.Handle,
	}
	return app, nil
}

// buildBroker persists committed events in mongo, relays them to kafka with
// the outbox worker and feeds consumed events back into the dispatcher.
func buildBroker(ctx context.Context, app *application, cfg config.Config, client *mongodb.Client, dispatcher *reactions.Dispatcher, logger *slog.Logger) (*infraoutbox.Store, error) {
	outboxStore, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return nil, err
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
	worker := &infraoutbox.Worker{
		Store:       outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	app.runners["outbox"] = worker.Run

	seen, err := inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID)
	if err != nil {
		return nil, err
	}
	relay := &kafka.Relay{Inbox: seen, Handler: dispatcher, Logger: logger}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, relay, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
	topics := kafka.Topics(cfg.KafkaTopicPrefix, eventNames...)
	app.runners["reactions"] = func(ctx context.Context) error { return consumer.Run(ctx, topics) }
	return outboxStore, nil
}

// run starts every background runner and returns once all of them stopped.
func (a *application) run(ctx context.Context, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	pending := len(a.runners)
	if pending == 0 {
		close(done)
		return done
	}
	finished := make(chan struct{}, pending)
	for name, fn := range a.runners {
		go func() {
			defer func() { finished <- struct{}{} }()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background runner stopped", "runner", name, "error", err)
			}
		}()
	}
	go func() {
		for range pending {
			<-finished
		}
		close(done)
	}()
	return done
}

// close releases resources in reverse order of acquisition.
func (a *application) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
