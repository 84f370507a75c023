package testutil

import "os"

const (
	// Test credential environment variables
	TestVisionAPIKey     = "TEST_GOOGLE_VISION_API_KEY"
	TestEbayAppID        = "TEST_EBAY_APP_ID"
	TestEbayClientID     = "TEST_EBAY_CLIENT_ID"
	TestEbayClientSecret = "TEST_EBAY_CLIENT_SECRET"

	// Default test values when environment variables are not set
	DefaultTestToken = "test-token"
	DefaultTestKey   = "test-key"
)

// envOr returns the value of envVar, or defaultValue when it is unset.
func envOr(envVar, defaultValue string) string {
	if token := os.Getenv(envVar); token != "" {
		return token
	}
	return defaultValue
}

// GetTestVisionAPIKey returns a test key for the vision API
func GetTestVisionAPIKey() string {
	return envOr(TestVisionAPIKey, DefaultTestKey)
}

// GetTestEbayAppID returns test app ID for eBay API
func GetTestEbayAppID() string {
	return envOr(TestEbayAppID, DefaultTestKey)
}

// GetTestEbayClientID returns a test OAuth client id for eBay
func GetTestEbayClientID() string {
	return envOr(TestEbayClientID, DefaultTestKey)
}

// GetTestEbayClientSecret returns a test OAuth client secret for eBay
func GetTestEbayClientSecret() string {
	return envOr(TestEbayClientSecret, DefaultTestToken)
}
