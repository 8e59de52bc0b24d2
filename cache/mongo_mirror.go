package cache

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDatabaseName      = "fx_market_engine"
	mongoCacheCollection   = "cache_mirror"
)

// mirrorDoc is the durable shadow copy of one cache entry.
type mirrorDoc struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// MongoMirror is an optional, best-effort durable mirror of cache writes.
// Exactly like the teacher's MongoDBClient, it degrades to a no-op when
// CACHE_MONGO_URI is unset or unreachable instead of failing startup; unlike
// the teacher's client, it is not consulted on the read path — it exists
// purely so a restart can rehydrate the hot cache instead of starting
// cold (see Hydrate).
type MongoMirror struct {
	client     *mongo.Client
	collection *mongo.Collection
	configured bool
}

// NewMongoMirror connects to uri and ensures a TTL index on expires_at. A
// blank uri or a connection failure both result in a disabled mirror
// (configured=false) rather than an error — callers should log and
// continue without it.
func NewMongoMirror(uri string) *MongoMirror {
	if uri == "" {
		log.Println("CACHE_MONGO_URI not set, cache mirror disabled")
		return &MongoMirror{configured: false}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetConnectTimeout(10 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		log.Printf("cache mirror: failed to connect to MongoDB: %v", err)
		return &MongoMirror{configured: false}
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Printf("cache mirror: failed to ping MongoDB: %v", err)
		_ = client.Disconnect(ctx)
		return &MongoMirror{configured: false}
	}

	collection := client.Database(mongoDatabaseName).Collection(mongoCacheCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		log.Printf("cache mirror: failed to create TTL index: %v", err)
	}

	log.Println("cache mirror connected to MongoDB")
	return &MongoMirror{client: client, collection: collection, configured: true}
}

// Configured reports whether the mirror is active.
func (m *MongoMirror) Configured() bool {
	return m != nil && m.configured
}

// MirrorPut best-effort replicates a cache write. Failures are logged,
// never returned, per the cache's "mirror failure is not fatal" contract.
func (m *MongoMirror) MirrorPut(key string, value []byte, ttl time.Duration) {
	if !m.Configured() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	doc := mirrorDoc{Key: key, Value: value, UpdatedAt: now, ExpiresAt: now.Add(ttl)}
	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts)
	if err != nil {
		log.Printf("cache mirror: failed to write key %q: %v", key, err)
	}
}

// HydratedEntry is one mirrored row returned by Hydrate, carrying its
// remaining expiry alongside the value so the in-memory cache can re-seed
// the entry with its true TTL instead of resetting the clock.
type HydratedEntry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Hydrate loads every unexpired mirrored entry, for use at startup before
// the in-memory cache has observed any writes of its own.
func (m *MongoMirror) Hydrate(ctx context.Context) (map[string]HydratedEntry, error) {
	if !m.Configured() {
		return nil, nil
	}

	cursor, err := m.collection.Find(ctx, bson.M{"expires_at": bson.M{"$gt": time.Now().UTC()}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string]HydratedEntry)
	for cursor.Next(ctx) {
		var doc mirrorDoc
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		out[doc.Key] = HydratedEntry{Value: doc.Value, ExpiresAt: doc.ExpiresAt}
	}
	return out, nil
}

// Close releases the underlying MongoDB connection, if any.
func (m *MongoMirror) Close(ctx context.Context) error {
	if !m.Configured() {
		return nil
	}
	return m.client.Disconnect(ctx)
}
