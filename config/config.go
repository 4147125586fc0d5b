package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env unless GO_ENV points at a deployed build
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	// Meeting provider (Zoom-style) Configuration
	MEETING_API_URL   string
	MEETING_API_TOKEN string
	// Generative text API Configuration
	AIGEN_API_URL string
	AIGEN_API_KEY string
	// SendGrid Configuration
	SENDGRID_API_KEY string
	EMAIL_FROM       string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		// Meeting provider
		MEETING_API_URL:   os.Getenv("MEETING_API_URL"),
		MEETING_API_TOKEN: os.Getenv("MEETING_API_TOKEN"),
		// Generative text API
		AIGEN_API_URL: os.Getenv("AIGEN_API_URL"),
		AIGEN_API_KEY: os.Getenv("AIGEN_API_KEY"),
		// SendGrid
		SENDGRID_API_KEY: os.Getenv("SENDGRID_API_KEY"),
		EMAIL_FROM:       os.Getenv("EMAIL_FROM"),
	}

	return envVariables, nil
}
