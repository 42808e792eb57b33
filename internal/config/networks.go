package config

import (
	"fmt"
	"os"
)

// NetworkConfig represents a single network participating in the settlement
// protocol: its chain id and the protocol contract addresses deployed there.
// Addresses accept any format the address codec understands (EVM hex,
// Starknet felt, raw bytes32).
type NetworkConfig struct {
	Name          string
	ChainID       uint64
	RouterAddress string
	HubAddress    string
	SpokeAddress  string
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvUint64 gets an environment variable as uint64 with a default fallback
func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := parseUint64(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseUint64 parses a string to uint64
func parseUint64(s string) (uint64, error) {
	var result uint64
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}

// Networks contains all network configurations
var Networks = map[string]NetworkConfig{}

// InitializeNetworks (re)builds the Networks map from the environment. Call
// after loading .env so overrides are visible.
func InitializeNetworks() {
	Networks = map[string]NetworkConfig{
		"Sepolia": {
			Name:          "Sepolia",
			ChainID:       getEnvUint64("SEPOLIA_CHAIN_ID", 11155111),
			RouterAddress: getEnvWithDefault("SEPOLIA_ROUTER_ADDRESS", "0x00000000000000000000000000000000000000000000000000000000000a0001"),
			HubAddress:    getEnvWithDefault("SEPOLIA_HUB_ADDRESS", "0x00000000000000000000000000000000000000000000000000000000000a0002"),
			SpokeAddress:  getEnvWithDefault("SEPOLIA_SPOKE_ADDRESS", ""),
		},
		"Base Sepolia": {
			Name:          "Base Sepolia",
			ChainID:       getEnvUint64("BASE_CHAIN_ID", 84532),
			RouterAddress: getEnvWithDefault("BASE_ROUTER_ADDRESS", "0x00000000000000000000000000000000000000000000000000000000000b0001"),
			HubAddress:    getEnvWithDefault("BASE_HUB_ADDRESS", ""),
			SpokeAddress:  getEnvWithDefault("BASE_SPOKE_ADDRESS", "0x00000000000000000000000000000000000000000000000000000000000b0003"),
		},
		"Starknet Sepolia": {
			Name:          "Starknet Sepolia",
			ChainID:       getEnvUint64("STARKNET_CHAIN_ID", 23448591),
			RouterAddress: getEnvWithDefault("STARKNET_ROUTER_ADDRESS", "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"),
			HubAddress:    getEnvWithDefault("STARKNET_HUB_ADDRESS", ""),
			SpokeAddress:  getEnvWithDefault("STARKNET_SPOKE_ADDRESS", ""),
		},
	}
}

func init() {
	InitializeNetworks()
}

// GetNetworkConfig returns the configuration for a given network name
func GetNetworkConfig(networkName string) (NetworkConfig, error) {
	if cfg, exists := Networks[networkName]; exists {
		return cfg, nil
	}
	return NetworkConfig{}, fmt.Errorf("network not found: %s", networkName)
}

// GetNetworkByChainID returns the network config for a given chain ID
func GetNetworkByChainID(chainID uint64) (NetworkConfig, error) {
	for _, network := range Networks {
		if network.ChainID == chainID {
			return network, nil
		}
	}
	return NetworkConfig{}, fmt.Errorf("network not found for chain ID: %d", chainID)
}

// GetNetworkNames returns all available network names
func GetNetworkNames() []string {
	names := make([]string, 0, len(Networks))
	for name := range Networks {
		names = append(names, name)
	}
	return names
}

// ValidateNetworkName checks if a network name is valid
func ValidateNetworkName(networkName string) bool {
	_, exists := Networks[networkName]
	return exists
}
