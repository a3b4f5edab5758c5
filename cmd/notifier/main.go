package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/jatinpathania/University-assignment-approval-system/internal/notify"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

type config struct {
	KafkaBrokers []string `env:"KAFKA_BROKERS" env-default:"kafka:9092" env-separator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" env-default:"notifications"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" env-default:"notifier"`

	SMTPHost     string `env:"SMTP_HOST" env-required:"true"`
	SMTPPort     int    `env:"SMTP_PORT" env-default:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" env-required:"true"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	var cfg config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatal("cannot read config", zap.Error(err))
	}

	mailer := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	consumer := notify.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, mailer, log)
	defer func() { _ = consumer.Close() }()

	log.Info("starting notifier",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	if err := consumer.Run(ctx); err != nil {
		log.Fatal("consumer stopped with error", zap.Error(err))
	}
}
