// main.go

package main

import (
	"github.com/i474232898/weatherctl/cmd"
	"github.com/i474232898/weatherctl/pkg/logger"
	"github.com/i474232898/weatherctl/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	logger.Initialize()

	if err := telemetry.Init("weatherctl"); err != nil {
		logger.L().Warn("Telemetry unavailable", zap.Error(err))
	}

	cmd.Execute()
}
