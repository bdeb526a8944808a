package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/app"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded configuration from .env")
	}

	if err := app.Run(); err != nil {
		logrus.Fatalf("application error: %v", err)
	}
}
