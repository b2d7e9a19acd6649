package main

import (
	"os"

	"valutatrade/internal/app"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := app.RunServer(); err != nil {
		logrus.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}
