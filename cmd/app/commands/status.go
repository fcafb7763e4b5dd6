package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/msiav/vehicle-cache/internal/app"
	"github.com/msiav/vehicle-cache/internal/config"
)

// RunTokenStatus performs a credential exchange against the upstream
// provider and prints the resulting token state as JSON. The token value
// itself is never printed.
func RunTokenStatus(ctx context.Context, io IOTuple) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	tokenManager, err := container.TokenManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	if _, err := tokenManager.Token(ctx); err != nil {
		// Still print the state so cooldown and failure counters are visible.
		printStatus(io, tokenManager.Status())
		return fmt.Errorf("token acquisition failed: %w", err)
	}

	printStatus(io, tokenManager.Status())
	return nil
}

func printStatus(io IOTuple, status any) {
	encoder := json.NewEncoder(io.Writer)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(status)
}
