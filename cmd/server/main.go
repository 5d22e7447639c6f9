package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/molevo/broadcast-backend/internal/config"
	"github.com/molevo/broadcast-backend/internal/controller"
	"github.com/molevo/broadcast-backend/internal/db"
	"github.com/molevo/broadcast-backend/internal/queue"
	"github.com/molevo/broadcast-backend/internal/repository"
	"github.com/molevo/broadcast-backend/internal/scheduler"
	"github.com/molevo/broadcast-backend/internal/service"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	conn, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer conn.Close()

	cache, err := db.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	if cache == nil {
		log.Info("redis not configured, integration cache disabled")
	}

	amqpQueue, err := queue.DialAmqp(cfg.AmqpURL)
	if err != nil {
		log.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer amqpQueue.Close()

	// Repositories
	campaignRepo := &repository.CampaignRepository{DB: conn}
	customerRepo := &repository.CustomerRepository{DB: conn}
	segmentRepo := &repository.SegmentRepository{DB: conn}
	integrationRepo := &repository.IntegrationRepository{DB: conn, Cache: cache}
	userRepo := &repository.UserRepository{DB: conn}
	conversationRepo := &repository.ConversationRepository{DB: conn}
	deliveryRepo := &repository.DeliveryReportRepository{DB: conn}

	// Services
	audience := &service.AudienceService{
		CustomerRepo:    customerRepo,
		SegmentRepo:     segmentRepo,
		IntegrationRepo: integrationRepo,
		Log:             log,
	}
	dispatcher := &service.DispatcherService{
		CampaignRepo:     campaignRepo,
		ConversationRepo: conversationRepo,
		IntegrationRepo:  integrationRepo,
		DeliveryRepo:     deliveryRepo,
		Queue:            amqpQueue,
		QueueTopic:       cfg.SendQueueName,
		Log:              log,
	}
	broadcast := &service.BroadcastService{
		CampaignRepo: campaignRepo,
		CustomerRepo: customerRepo,
		UserRepo:     userRepo,
		DeliveryRepo: deliveryRepo,
		Audience:     audience,
		Dispatcher:   dispatcher,
		Log:          log,
	}
	delivery := &service.DeliveryService{
		DeliveryRepo: deliveryRepo,
		CustomerRepo: customerRepo,
		Log:          log,
	}

	// Scheduler loop
	sched := scheduler.New(campaignRepo, broadcast, cfg.DailyTickHour, log)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	campaignController := &controller.CampaignController{
		Broadcast: broadcast,
		Delivery:  delivery,
		Log:       log,
	}

	r := chi.NewRouter()
	r.Group(campaignController.Routes)

	log.Info("server running", zap.String("port", cfg.HTTPPort))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
