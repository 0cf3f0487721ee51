package config

import (
	"os"
)

func GetOpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func GetAuthURL() string {
	if url := os.Getenv("AUTH_URL"); url != "" {
		return url
	}
	return "http://localhost:9999"
}

func GetPostgresURI() string {
	if uri := os.Getenv("POSTGRES_URI"); uri != "" {
		return uri
	}
	return "host=localhost port=5432 user=postgres password=postgres dbname=zenny sslmode=disable"
}

func GetDynamoEndpoint() string {
	if endpoint := os.Getenv("DYNAMO_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "http://localhost:8000"
}

func GetPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}
