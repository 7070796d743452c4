package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
)

// Config holds the configuration for the relay orchestrator.
type Config struct {
	IsTestnet bool

	RouterAddress      string
	EthereumRPCURL     string
	RelayerPrivateKey  string
	TransmitterAddress string

	APIPort string

	PollCycleInterval     time.Duration
	AttestationTimeout    time.Duration
	MaxRetries            int
	SubmitterPollInterval time.Duration
	RelayFee              int64
	DBPath                string
	SourceDomains         map[int]bool
	AttestationBaseURL    string
	AttestationRateBurst  int
	AttestationRateRefill float64
	IntakeRateLimitPerIP  int

	LoggerConfig LoggerConfig
}

// LoggerConfig holds the configuration for logging.
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

const (
	mainnetAttestationBase = "https://iris-api.circle.com"
	testnetAttestationBase = "https://iris-api-sandbox.circle.com"

	// localDestinationDomain is the destination domain identifier this relay submits to.
	localDestinationDomain = 0
)

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	isTestnet, err := GetEnvIsTestnet()
	if err != nil {
		return nil, err
	}

	routerAddress, err := GetEnvRouterAddress()
	if err != nil {
		return nil, err
	}

	ethRPCURL, err := GetEnvEthereumRPCURL()
	if err != nil {
		return nil, err
	}

	privateKey, err := GetEnvRelayerPrivateKey()
	if err != nil {
		return nil, err
	}

	transmitterAddress, err := GetEnvTransmitterAddress()
	if err != nil {
		return nil, err
	}

	apiPort, err := GetEnvAPIPort()
	if err != nil {
		return nil, err
	}

	pollCycleInterval, err := GetEnvPollCycleInterval()
	if err != nil {
		return nil, err
	}

	attestationTimeout, err := GetEnvAttestationTimeout()
	if err != nil {
		return nil, err
	}

	maxRetries, err := GetEnvMaxRetries()
	if err != nil {
		return nil, err
	}

	submitterPollInterval, err := GetEnvSubmitterPollInterval()
	if err != nil {
		return nil, err
	}

	relayFee, err := GetEnvRelayFee()
	if err != nil {
		return nil, err
	}

	dbPath, err := GetEnvDBPath()
	if err != nil {
		return nil, err
	}

	sourceDomains, err := GetEnvSourceDomains()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	base := mainnetAttestationBase
	if isTestnet {
		base = testnetAttestationBase
	}

	cfg := &Config{
		IsTestnet:             isTestnet,
		RouterAddress:         routerAddress,
		EthereumRPCURL:        ethRPCURL,
		RelayerPrivateKey:     privateKey,
		TransmitterAddress:    transmitterAddress,
		APIPort:               apiPort,
		PollCycleInterval:     pollCycleInterval,
		AttestationTimeout:    attestationTimeout,
		MaxRetries:            maxRetries,
		SubmitterPollInterval: submitterPollInterval,
		RelayFee:              relayFee,
		DBPath:                dbPath,
		SourceDomains:         sourceDomains,
		AttestationBaseURL:    base,
		AttestationRateBurst:  30,
		AttestationRateRefill: 30,
		IntakeRateLimitPerIP:  30,
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LocalDestinationDomain returns the destination domain identifier this relay submits to.
func LocalDestinationDomain() int {
	return localDestinationDomain
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	if cfg.RouterAddress == "" {
		return fmt.Errorf("ROUTER_ADDRESS environment variable is required")
	}
	if cfg.EthereumRPCURL == "" {
		return fmt.Errorf("ETHEREUM_RPC_URL environment variable is required")
	}
	if cfg.RelayerPrivateKey == "" {
		return fmt.Errorf("RELAYER_PRIVATE_KEY environment variable is required")
	}
	if cfg.TransmitterAddress == "" {
		return fmt.Errorf("TRANSMITTER_ADDRESS environment variable is required")
	}
	if len(cfg.SourceDomains) == 0 {
		return fmt.Errorf("SOURCE_DOMAINS environment variable must list at least one source domain")
	}
	if _, ok := cfg.SourceDomains[localDestinationDomain]; ok {
		return fmt.Errorf("SOURCE_DOMAINS must not include the destination domain %d", localDestinationDomain)
	}
	return nil
}
