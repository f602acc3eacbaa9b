package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-flowtransforms/pkg/bqstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/configstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/illmade-knight/go-flowtransforms/pkg/microservice"
	"github.com/illmade-knight/go-flowtransforms/pkg/mqttconverter"
	"github.com/illmade-knight/go-flowtransforms/pkg/reportmapper"
	"github.com/illmade-knight/go-flowtransforms/pkg/streamdescriptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// pipeline is a running flow node.
type pipeline interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// app owns every long-lived component of the service.
type app struct {
	logger     zerolog.Logger
	server     *microservice.BaseServer
	store      *configstore.ChainStore
	psClient   *pubsub.Client
	bqClient   *bigquery.Client
	archive    *bqstore.BatchInserter[bqstore.ReportRow]
	pipelines  []pipeline
	publishers []messagepipeline.SimplePublisher
}

func newApp(ctx context.Context, cfg *Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.closeResources(context.Background())
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := messagepipeline.NewTransformMetrics(registry)
	if err != nil {
		return nil, err
	}

	storeCfg := cfg.ConfigStore
	if storeCfg.CredentialsFile == "" {
		storeCfg.CredentialsFile = cfg.CredentialsFile
	}
	if storeCfg.Firestore != nil && storeCfg.Firestore.ProjectID == "" {
		storeCfg.Firestore.ProjectID = cfg.ProjectID
	}
	a.store, err = configstore.NewStoreFromConfig(ctx, &storeCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build config store: %w", err)
	}

	builder, err := streamdescriptor.NewBuilder(a.store, logger)
	if err != nil {
		return nil, err
	}
	reportTransformer := messagepipeline.WithTransformLogging(reportmapper.NewTransformer(logger), "report", metrics, logger)
	streamTransformer := messagepipeline.WithTransformLogging(streamdescriptor.NewTransformer(builder), "stream", metrics, logger)

	a.server = microservice.NewBaseServer(logger, cfg.HTTPPort, registry)
	a.server.Mux().Handle("POST /v1/reports", microservice.TransformHandler(reportTransformer, logger))
	a.server.Mux().Handle("POST /v1/streams", microservice.TransformHandler(streamTransformer, logger))

	if !cfg.Reports.enabled() && !cfg.Streams.enabled() {
		logger.Info().Msg("No Pub/Sub pipelines configured; serving HTTP endpoints only.")
		return a, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	a.psClient, err = pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}

	if cfg.Reports.enabled() {
		if err := a.addReportPipeline(ctx, cfg, reportTransformer); err != nil {
			return nil, err
		}
	}
	if cfg.Streams.enabled() {
		if err := a.addStreamPipeline(ctx, cfg, streamTransformer); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) addReportPipeline(ctx context.Context, cfg *Config, transformer messagepipeline.MessageTransformer[reportmapper.RESTReportBody]) error {
	var consumer messagepipeline.MessageConsumer
	if cfg.MQTT != nil {
		client, err := mqttconverter.NewPahoClient(cfg.MQTT, a.logger)
		if err != nil {
			return err
		}
		consumer, err = mqttconverter.NewMqttConsumer(client, cfg.MQTT, a.logger)
		if err != nil {
			return err
		}
	} else {
		psConsumer, err := messagepipeline.NewGooglePubsubConsumer(cfg.Reports.consumerConfig(), a.psClient, a.logger)
		if err != nil {
			return fmt.Errorf("reports consumer: %w", err)
		}
		consumer = psConsumer
	}

	publisher, err := messagepipeline.NewGoogleSimplePublisher(ctx, cfg.Reports.publisherConfig(), a.psClient, a.logger)
	if err != nil {
		return fmt.Errorf("reports publisher: %w", err)
	}
	a.publishers = append(a.publishers, publisher)

	processor := messagepipeline.NewPublishingProcessor[reportmapper.RESTReportBody](publisher)
	if cfg.Archive != nil {
		a.bqClient, err = bqstore.NewProductionBigQueryClient(ctx, cfg.ProjectID, cfg.CredentialsFile, a.logger)
		if err != nil {
			return err
		}
		inserter, err := bqstore.NewBigQueryInserter[bqstore.ReportRow](ctx, a.bqClient, &cfg.Archive.BigQueryDatasetConfig, a.logger)
		if err != nil {
			return err
		}
		a.archive, err = bqstore.NewBatcher[bqstore.ReportRow](cfg.Archive.Batch, inserter, a.logger)
		if err != nil {
			return err
		}
		processor = bqstore.NewArchivingProcessor(processor, a.archive, a.logger)
	}

	service, err := messagepipeline.NewStreamingService(messagepipeline.StreamingServiceConfig{
		Name:       "report",
		NumWorkers: cfg.Reports.NumWorkers,
	}, consumer, transformer, processor, a.logger)
	if err != nil {
		return err
	}
	a.pipelines = append(a.pipelines, service)
	return nil
}

func (a *app) addStreamPipeline(ctx context.Context, cfg *Config, transformer messagepipeline.MessageTransformer[streamdescriptor.StreamDescriptor]) error {
	consumer, err := messagepipeline.NewGooglePubsubConsumer(cfg.Streams.consumerConfig(), a.psClient, a.logger)
	if err != nil {
		return fmt.Errorf("streams consumer: %w", err)
	}
	publisher, err := messagepipeline.NewGoogleSimplePublisher(ctx, cfg.Streams.publisherConfig(), a.psClient, a.logger)
	if err != nil {
		return fmt.Errorf("streams publisher: %w", err)
	}
	a.publishers = append(a.publishers, publisher)

	service, err := messagepipeline.NewStreamingService(messagepipeline.StreamingServiceConfig{
		Name:       "stream",
		NumWorkers: cfg.Streams.NumWorkers,
	}, consumer, transformer, messagepipeline.NewPublishingProcessor[streamdescriptor.StreamDescriptor](publisher), a.logger)
	if err != nil {
		return err
	}
	a.pipelines = append(a.pipelines, service)
	return nil
}

// Start runs the archive, the pipelines and the HTTP server.
func (a *app) Start(ctx context.Context) error {
	if a.archive != nil {
		a.archive.Start(ctx)
	}
	for _, p := range a.pipelines {
		if err := p.Start(ctx); err != nil {
			return err
		}
	}
	return a.server.Start()
}

// Shutdown stops intake first and releases clients last.
func (a *app) Shutdown(ctx context.Context) {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("HTTP server shutdown error.")
		}
	}
	for _, p := range a.pipelines {
		if err := p.Stop(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Pipeline shutdown error.")
		}
	}
	a.closeResources(ctx)
}

func (a *app) closeResources(ctx context.Context) {
	if a.archive != nil {
		if err := a.archive.Stop(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Archive shutdown error.")
		}
	}
	for _, p := range a.publishers {
		if err := p.Stop(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Publisher shutdown error.")
		}
	}
	if a.psClient != nil {
		_ = a.psClient.Close()
	}
	if a.bqClient != nil {
		_ = a.bqClient.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Config store close error.")
		}
	}
}
