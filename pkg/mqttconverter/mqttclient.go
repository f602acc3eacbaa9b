package mqttconverter

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MQTTClientConfig holds all necessary configuration for the Paho MQTT client.
type MQTTClientConfig struct {
	// BrokerURL is the full URL of the MQTT broker to connect to.
	// Example: "tls://mqtt.example.com:8883"
	BrokerURL string `yaml:"broker_url"`
	// Topic is the topic filter the consumer subscribes to, e.g. "flows/reports/#".
	Topic string `yaml:"topic"`
	// ClientID fixes the MQTT client ID. Set it to keep the broker session across restarts.
	ClientID string `yaml:"client_id"`
	// ClientIDPrefix is used when ClientID is empty; a random suffix is added to it.
	ClientIDPrefix string `yaml:"client_id_prefix"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	// KeepAlive is the interval at which the client sends keep-alive pings to the broker.
	KeepAlive time.Duration `yaml:"keep_alive"`
	// ConnectTimeout is the timeout for the initial connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ReconnectWaitMax is the maximum time to wait before attempting to reconnect.
	ReconnectWaitMax time.Duration `yaml:"reconnect_wait_max"`
	// CACertFile is an optional path to a CA certificate file for verifying the broker's certificate.
	CACertFile string `yaml:"ca_cert_file"`
	// ClientCertFile and ClientKeyFile are an optional pair for mTLS authentication.
	ClientCertFile string `yaml:"client_cert_file"`
	ClientKeyFile  string `yaml:"client_key_file"`
	// InsecureSkipVerify skips TLS certificate verification.
	// This is NOT recommended for production environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Env constants for setting Mqtt settings
const (
	MqttSkipVerify            = "MQTT_INSECURE_SKIP_VERIFY"
	MqttKeepAliveSeconds      = "MQTT_KEEP_ALIVE_SECONDS"
	MqttConnectTimeoutSeconds = "MQTT_CONNECT_TIMEOUT_SECONDS"
)

// LoadMQTTClientConfigFromEnv returns operational MQTT settings with defaults,
// overridden by environment variables where set. Broker URL and topic are not
// read from the environment.
func LoadMQTTClientConfigFromEnv() *MQTTClientConfig {
	cfg := &MQTTClientConfig{
		KeepAlive:        60 * time.Second,
		ConnectTimeout:   10 * time.Second,
		ReconnectWaitMax: 120 * time.Second,
		ClientIDPrefix:   "flowtransforms-",
	}
	ApplyEnvOverrides(cfg)
	return cfg
}

// ApplyEnvOverrides overrides cfg's operational settings from the environment.
// Unparseable values are logged and ignored.
func ApplyEnvOverrides(cfg *MQTTClientConfig) {
	if skipVerify := os.Getenv(MqttSkipVerify); skipVerify == "true" {
		cfg.InsecureSkipVerify = true
	}
	if ka := os.Getenv(MqttKeepAliveSeconds); ka != "" {
		if d, err := time.ParseDuration(ka + "s"); err == nil {
			cfg.KeepAlive = d
		} else {
			log.Warn().Err(err).Str("env", MqttKeepAliveSeconds).Msg("mqttconverter: invalid keep-alive, using default")
		}
	}
	if ct := os.Getenv(MqttConnectTimeoutSeconds); ct != "" {
		if d, err := time.ParseDuration(ct + "s"); err == nil {
			cfg.ConnectTimeout = d
		} else {
			log.Warn().Err(err).Str("env", MqttConnectTimeoutSeconds).Msg("mqttconverter: invalid connect timeout, using default")
		}
	}
}

// NewPahoClient builds a Paho client from cfg. The client is not connected.
// Sessions are persistent so the broker keeps the consumer's subscription across
// reconnects.
func NewPahoClient(cfg *MQTTClientConfig, logger zerolog.Logger) (mqtt.Client, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL is required")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(clientID(cfg))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(cfg.ReconnectWaitMax)
	opts.SetCleanSession(false)
	opts.SetResumeSubs(true)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info().Str("broker", cfg.BrokerURL).Msg("Paho client connected to MQTT broker.")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error().Err(err).Msg("Paho client lost MQTT connection.")
	})

	if strings.HasPrefix(strings.ToLower(cfg.BrokerURL), "tls://") {
		tlsConfig, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}
	return mqtt.NewClient(opts), nil
}

// clientID returns the configured ID, or the prefix plus a random suffix. A persistent
// session only survives restarts with a fixed ClientID.
func clientID(cfg *MQTTClientConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return cfg.ClientIDPrefix + uuid.NewString()[:8]
}

// newTLSConfig is a helper to create a tls.Config.
func newTLSConfig(cfg *MQTTClientConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert file %s: %w", cfg.CACertFile, err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA cert from %s", cfg.CACertFile)
		}
		tlsConfig.RootCAs = caCertPool
	}
	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate/key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
