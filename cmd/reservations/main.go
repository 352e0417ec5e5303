package main

import (
	officesrepo "deskhub/internal/offices/repository"
	"deskhub/internal/reservations/handler"
	"deskhub/internal/reservations/notifier"
	"deskhub/internal/reservations/repository"
	"deskhub/internal/reservations/service"
	"deskhub/internal/reservations/validator"
	"deskhub/pkg/app"
	"deskhub/pkg/clock"
	"deskhub/pkg/config"
	"deskhub/pkg/kafka"
	kafka_config "deskhub/pkg/kafka/config"
	"deskhub/pkg/sealer"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")
	reservationService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.NewReservationHandler(reservationService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) service.ReservationService {
	reservationValidator := validator.NewReservationValidator(cfg.Log)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewMongoOfficeLockRepository(cfg)
	officeRepo := officesrepo.NewMongoOfficeRepository(cfg)

	wifiSealer, err := sealer.NewFromEnv()
	if err != nil {
		cfg.Log.Fatal("Failed to initialize sealer", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	producer, err := kafka.NewProducer(kafkaCfg, cfg.ReservationEventsTopic, cfg.ReservationDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}

	reservationService := service.NewReservationService(
		reservationRepo,
		lockRepo,
		officeRepo,
		reservationValidator,
		notifier.NewKafkaNotifier(producer, cfg.Log),
		wifiSealer,
		clock.New(),
		cfg,
	)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService
}
