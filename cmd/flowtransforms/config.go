package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/illmade-knight/go-flowtransforms/pkg/bqstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/configstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/illmade-knight/go-flowtransforms/pkg/microservice"
	"github.com/illmade-knight/go-flowtransforms/pkg/mqttconverter"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration file.
type Config struct {
	microservice.BaseConfig `yaml:",inline"`

	ConfigStore configstore.Config `yaml:"config_store"`
	Reports     PipelineConfig     `yaml:"reports"`
	Streams     PipelineConfig     `yaml:"streams"`
	// MQTT, when set, feeds the report pipeline instead of a Pub/Sub subscription.
	MQTT    *mqttconverter.MQTTClientConfig `yaml:"mqtt"`
	Archive *ArchiveConfig                  `yaml:"archive"`
}

// PipelineConfig wires one transform between a source and a destination topic.
type PipelineConfig struct {
	SubscriptionID string `yaml:"subscription_id"`
	TopicID        string `yaml:"topic_id"`
	NumWorkers     int    `yaml:"num_workers"`

	Consumer  *messagepipeline.GooglePubsubConsumerConfig  `yaml:"consumer"`
	Publisher *messagepipeline.GoogleSimplePublisherConfig `yaml:"publisher"`
}

// ArchiveConfig enables the BigQuery archive of report bodies.
type ArchiveConfig struct {
	bqstore.BigQueryDatasetConfig `yaml:",inline"`
	Batch                         *bqstore.BatchInserterConfig `yaml:"batch"`
}

func (p PipelineConfig) enabled() bool {
	return p.TopicID != ""
}

func (p PipelineConfig) consumerConfig() *messagepipeline.GooglePubsubConsumerConfig {
	cfg := messagepipeline.NewGooglePubsubConsumerDefaults(p.SubscriptionID)
	if p.Consumer != nil {
		cfg = p.Consumer
		cfg.SubscriptionID = p.SubscriptionID
	}
	return cfg
}

func (p PipelineConfig) publisherConfig() *messagepipeline.GoogleSimplePublisherConfig {
	cfg := messagepipeline.NewGoogleSimplePublisherDefaults(p.TopicID)
	if p.Publisher != nil {
		cfg = p.Publisher
		cfg.TopicID = p.TopicID
	}
	return cfg
}

// LoadConfig reads the YAML file at path and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.HTTPPort == "" {
		cfg.HTTPPort = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "flowtransforms"
	}

	if cfg.MQTT != nil {
		defaults := mqttconverter.LoadMQTTClientConfigFromEnv()
		if cfg.MQTT.KeepAlive == 0 {
			cfg.MQTT.KeepAlive = defaults.KeepAlive
		}
		if cfg.MQTT.ConnectTimeout == 0 {
			cfg.MQTT.ConnectTimeout = defaults.ConnectTimeout
		}
		if cfg.MQTT.ReconnectWaitMax == 0 {
			cfg.MQTT.ReconnectWaitMax = defaults.ReconnectWaitMax
		}
		if cfg.MQTT.ClientIDPrefix == "" {
			cfg.MQTT.ClientIDPrefix = defaults.ClientIDPrefix
		}
		mqttconverter.ApplyEnvOverrides(cfg.MQTT)
	}

	if cfg.Archive != nil && cfg.Archive.Batch == nil {
		cfg.Archive.Batch = bqstore.NewBatchInserterDefaults()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Reports.enabled() && c.Reports.SubscriptionID == "" && c.MQTT == nil {
		errs = append(errs, errors.New("reports: subscription_id or mqtt is required when topic_id is set"))
	}
	if c.Streams.enabled() && c.Streams.SubscriptionID == "" {
		errs = append(errs, errors.New("streams: subscription_id is required when topic_id is set"))
	}
	if c.MQTT != nil && (c.MQTT.BrokerURL == "" || c.MQTT.Topic == "") {
		errs = append(errs, errors.New("mqtt: broker_url and topic are required"))
	}
	if (c.Reports.enabled() || c.Streams.enabled() || c.Archive != nil) && c.ProjectID == "" {
		errs = append(errs, errors.New("project_id is required for Pub/Sub pipelines and the archive"))
	}
	if c.Archive != nil && !c.Reports.enabled() {
		errs = append(errs, errors.New("archive: requires the reports pipeline"))
	}
	return errors.Join(errs...)
}
