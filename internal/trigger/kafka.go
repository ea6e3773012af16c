package trigger

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/UnitVectorY-Labs/buildbadges/internal/relocator"
)

// KafkaConfig holds the Kafka trigger settings.
type KafkaConfig struct {
	Brokers             []string
	ConsumerGroup       string
	Topics              []string
	OffsetResetStrategy string
	SASLMechanism       string // empty disables SASL
	SASLUsername        string
	SASLPassword        string
	TLSEnabled          bool
	CertificateBase64   string
}

// KafkaConfigFromEnv reads KAFKA_* variables. ok is false when
// KAFKA_BROKERS is unset, meaning the trigger is disabled.
func KafkaConfigFromEnv() (cfg KafkaConfig, ok bool) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return KafkaConfig{}, false
	}
	cfg = KafkaConfig{
		Brokers:             strings.Split(brokers, ","),
		ConsumerGroup:       "badge-relocator",
		Topics:              []string{"cloud-builds"},
		OffsetResetStrategy: "latest",
		SASLMechanism:       os.Getenv("KAFKA_SASL_MECHANISM"),
		SASLUsername:        os.Getenv("KAFKA_SASL_USERNAME"),
		SASLPassword:        os.Getenv("KAFKA_SASL_PASSWORD"),
		TLSEnabled:          os.Getenv("KAFKA_TLS_ENABLED") == "true",
		CertificateBase64:   os.Getenv("KAFKA_CERTIFICATE_BASE64"),
	}
	if group := os.Getenv("KAFKA_CONSUMER_GROUP"); group != "" {
		cfg.ConsumerGroup = group
	}
	if topics := os.Getenv("KAFKA_TOPICS"); topics != "" {
		cfg.Topics = strings.Split(topics, ",")
	}
	if s := os.Getenv("KAFKA_OFFSET_RESET_STRATEGY"); s == "earliest" || s == "latest" {
		cfg.OffsetResetStrategy = s
	}
	return cfg, true
}

// KafkaConsumer feeds build events from Kafka records to the relocator.
type KafkaConsumer struct {
	client    *kgo.Client
	relocator Relocator
	log       *slog.Logger
}

func NewKafkaConsumer(cfg KafkaConfig, r Relocator, log *slog.Logger) (*KafkaConsumer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topics...),
	}
	if cfg.OffsetResetStrategy == "earliest" {
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	} else {
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()))
	}

	if cfg.SASLMechanism != "" {
		var mechanism sasl.Mechanism
		switch cfg.SASLMechanism {
		case "PLAIN":
			mechanism = plain.Auth{User: cfg.SASLUsername, Pass: cfg.SASLPassword}.AsMechanism()
		case "SCRAM-SHA-256":
			mechanism = scram.Auth{User: cfg.SASLUsername, Pass: cfg.SASLPassword}.AsSha256Mechanism()
		case "SCRAM-SHA-512":
			mechanism = scram.Auth{User: cfg.SASLUsername, Pass: cfg.SASLPassword}.AsSha512Mechanism()
		default:
			return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
		}
		opts = append(opts, kgo.SASL(mechanism))
	}

	if cfg.TLSEnabled {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CertificateBase64 != "" {
			pem, err := base64.StdEncoding.DecodeString(cfg.CertificateBase64)
			if err != nil {
				return nil, fmt.Errorf("failed to decode certificate: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, errors.New("failed to parse certificate")
			}
			tlsConfig.RootCAs = pool
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}
	return &KafkaConsumer{client: client, relocator: r, log: log}, nil
}

// Run polls until ctx is done. Handling errors are logged and the loop
// continues; redelivery is left to the producer side.
func (k *KafkaConsumer) Run(ctx context.Context) error {
	for {
		fetches := k.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			k.log.Error("kafka fetch failed", "topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(record *kgo.Record) {
			if err := k.handleRecord(ctx, record); err != nil {
				k.log.Error("badge relocation failed",
					"topic", record.Topic,
					"partition", record.Partition,
					"offset", record.Offset,
					"error", err)
			}
		})
	}
}

func (k *KafkaConsumer) Close() {
	k.client.Close()
}

// handleRecord accepts either an event envelope or a bare build payload.
func (k *KafkaConsumer) handleRecord(ctx context.Context, record *kgo.Record) error {
	var (
		res relocator.Result
		err error
	)
	if payload, envErr := relocator.ParseEnvelope(record.Value); envErr == nil {
		res, err = k.relocator.Handle(ctx, payload)
	} else {
		res, err = k.relocator.Handle(ctx, record.Value)
	}
	if err != nil {
		return err
	}
	if res.Skipped {
		k.log.Debug("kafka record skipped", "offset", record.Offset, "reason", res.Reason)
	}
	return nil
}
