package main

import (
	"os"

	"github.com/robmorgan/halo-scheduler/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.GetProjectLogger().Fatal(err)
	}
}
