package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI     string
	MongoDB      string
	RedisURL     string
	JWTSecret    string
	ServerPort   string
	UploadDir    string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FrontendURL  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	return &Config{
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      os.Getenv("MONGO_DB"),
		RedisURL:     os.Getenv("REDIS_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		ServerPort:   os.Getenv("SERVER_PORT"),
		UploadDir:    os.Getenv("UPLOAD_DIR"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     os.Getenv("SMTP_PORT"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FrontendURL:  os.Getenv("FRONTEND_URL"),
	}, nil
}
