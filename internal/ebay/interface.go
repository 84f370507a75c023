package ebay

import "github.com/guarzo/thriftflip/internal/marketplace"

// Ensure Client implements marketplace.Provider
var _ marketplace.Provider = (*Client)(nil)
