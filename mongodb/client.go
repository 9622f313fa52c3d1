package mongodb

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

var (
	clientInstance *mongo.Client
	dbInstance     *mongo.Database
	initOnce       sync.Once
)

// Init connects the MongoDB client and selects the database. Call once at
// startup before constructing repositories.
func Init(ctx context.Context, uri, dbName string) error {
	var err error
	initOnce.Do(func() {
		log.Info().Str("db", dbName).Msg("Connecting to MongoDB")

		opts := options.Client().ApplyURI(uri)
		opts.SetConnectTimeout(10 * time.Second)
		opts.SetMonitor(otelmongo.NewMonitor())

		client, connErr := mongo.Connect(opts)
		if connErr != nil {
			err = connErr
			return
		}
		if pingErr := client.Ping(ctx, readpref.Primary()); pingErr != nil {
			err = pingErr
			return
		}
		clientInstance = client
		dbInstance = client.Database(dbName)
	})
	if err != nil {
		return err
	}
	if dbInstance == nil {
		return errors.New("mongodb not initialized")
	}
	return nil
}

// DB returns the selected database. It panics via log.Fatal if Init was not
// called successfully first.
func DB() *mongo.Database {
	if dbInstance == nil {
		log.Fatal().Msg("MongoDB is not initialized. Call mongodb.Init first.")
	}
	return dbInstance
}

// Ping checks connectivity with a short deadline; used by the health endpoint.
func Ping(ctx context.Context) error {
	if clientInstance == nil {
		return errors.New("mongodb client is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return clientInstance.Ping(pingCtx, readpref.Primary())
}

// Close disconnects the client on shutdown.
func Close(ctx context.Context) {
	if clientInstance != nil {
		log.Info().Msg("Closing MongoDB connection")
		if err := clientInstance.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("Error closing MongoDB connection")
		}
	}
}
