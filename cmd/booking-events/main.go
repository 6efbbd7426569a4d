// Command booking-events tails the service's Kafka topics and prints each
// domain event, for operators watching admissions and catalog changes live.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	segmentio "github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"

	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	group := pflag.String("group", "ms-booking-tail", "consumer group id")
	list := pflag.Bool("list", false, "list topics and exit")
	pflag.Parse()

	_ = godotenv.Load(*envFile)
	cfg := config.Load()
	log := logger.NewWriterLogger(os.Stderr)
	log.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *list {
		topics, err := kafka.ListTopics(ctx, cfg.Kafka.Brokers)
		if err != nil {
			log.Error("KAFKA", err.Error())
			os.Exit(1)
		}
		for _, t := range topics {
			fmt.Println(t)
		}
		return
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), *group, log)
	defer consumer.Close()

	p := printer{topics: cfg.Kafka.Topics}
	if err := consumer.Start(ctx, p.print); err != nil {
		log.Error("KAFKA", err.Error())
		os.Exit(1)
	}
}

type printer struct {
	topics config.TopicConfig
}

func (p printer) print(msg segmentio.Message) error {
	line, err := p.format(msg)
	if err != nil {
		return err
	}
	fmt.Println(line)
	return nil
}

func (p printer) format(msg segmentio.Message) (string, error) {
	switch msg.Topic {
	case p.topics.BookingCommitted:
		var b models.BookingCommitted
		if err := json.Unmarshal(msg.Value, &b); err != nil {
			return "", fmt.Errorf("decode booking: %w", err)
		}
		return fmt.Sprintf("%s event=%d user=%d +%d -> %d (%d/%d)",
			color.GreenString("BOOKED "), b.EventID, b.UserID, b.Requested, b.Quantity, b.TotalBooked, b.MaximumCapacity), nil
	case p.topics.EventChanged:
		var c models.EventChanged
		if err := json.Unmarshal(msg.Value, &c); err != nil {
			return "", fmt.Errorf("decode event change: %w", err)
		}
		return fmt.Sprintf("%s event=%d %s by user %d", color.CyanString("CATALOG"), c.EventID, c.Action, c.ActorID), nil
	default:
		return fmt.Sprintf("%s %s key=%s %s", color.YellowString("UNKNOWN"), msg.Topic, msg.Key, msg.Value), nil
	}
}
