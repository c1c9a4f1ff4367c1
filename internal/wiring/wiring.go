// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/grain/internal/adapters/cache"
	_ "go.trai.ch/grain/internal/adapters/config"
	_ "go.trai.ch/grain/internal/adapters/hash"
	_ "go.trai.ch/grain/internal/adapters/logger"
	_ "go.trai.ch/grain/internal/adapters/shell"
	_ "go.trai.ch/grain/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/grain/internal/app"
	_ "go.trai.ch/grain/internal/engine/compilepool"
	_ "go.trai.ch/grain/internal/engine/detect"
	_ "go.trai.ch/grain/internal/engine/incremental"
	_ "go.trai.ch/grain/internal/engine/units"
)
