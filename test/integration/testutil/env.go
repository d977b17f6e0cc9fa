package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"fleetlink/pkg/client"
)

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
	ServerPort   string
}

func NewTestEnv() *TestEnv {
	mongoURI := getEnv("TEST_MONGO_URI", DefaultMongoURI)
	dbName := getEnv("TEST_DB_NAME", DefaultDatabaseName)
	serverPort := getEnv("TEST_SERVER_PORT", "8080")
	serverURL := getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort))

	return &TestEnv{
		MongoURI:     mongoURI,
		DatabaseName: dbName,
		ServerURL:    serverURL,
		ServerPort:   serverPort,
	}
}

// Setup skips the test unless FLEETLINK_INTEGRATION is set, then returns a
// clean database and a client for a running server.
func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *client.FleetClient) {
	t.Helper()

	if os.Getenv("FLEETLINK_INTEGRATION") == "" {
		t.Skip("FLEETLINK_INTEGRATION not set")
	}

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)

	fleet := client.NewFleetClient(e.ServerURL)
	if err := fleet.HTTP().WaitForHealthy(context.Background(), DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("server not healthy: %v", err)
	}

	t.Cleanup(func() { e.Cleanup(t, mongo) })
	return mongo, fleet
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const (
	DefaultHealthCheckTimeout = 30 * time.Second
)
