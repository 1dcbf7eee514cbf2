// Package storage persists vessel statuses, metric aggregates and trips in
// an embedded bbolt database.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/seatrack/n2krouter/monitor"
	"github.com/seatrack/n2krouter/trip"
)

var (
	bucketStatuses = []byte("vessel_statuses")
	bucketMetrics  = []byte("metrics")
	bucketTrips    = []byte("trips")
	bucketMeta     = []byte("meta")

	keyOpenTrip = []byte("open_trip")
)

// Store is the embedded persistence backend. The persistence consumer owns it
// exclusively.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database and guarantees the buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketStatuses, bucketMetrics, bucketTrips, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is usable.
func (s *Store) Ping() error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketMeta) == nil {
			return fmt.Errorf("meta bucket missing")
		}
		return nil
	})
}

// InsertVesselStatusAndTrip persists a status and the trip it was folded
// into in a single transaction: both rows are written or neither.
func (s *Store) InsertVesselStatusAndTrip(status monitor.VesselStatus, t trip.Trip) error {
	statusValue, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal vessel status: %w", err)
	}
	tripValue, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal trip: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketStatuses).Put(timeKey(status.Timestamp), statusValue); err != nil {
			return err
		}
		if err := tx.Bucket(bucketTrips).Put([]byte(t.ID), tripValue); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyOpenTrip, []byte(t.ID))
	})
}

// InsertMetric persists a metric aggregate. Replaying the same
// (timestamp, metric) aggregate is a no-op.
func (s *Store) InsertMetric(m monitor.MetricAggregate) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal metric aggregate: %w", err)
	}
	key := metricKey(m.Timestamp, m.Metric)
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketMetrics)
		if bucket.Get(key) != nil {
			return nil
		}
		return bucket.Put(key, value)
	})
}

// LoadOpenTrip returns the most recently updated trip, nil when the database
// holds none.
func (s *Store) LoadOpenTrip() (*trip.Trip, error) {
	var result *trip.Trip
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketMeta).Get(keyOpenTrip)
		if id == nil {
			return nil
		}
		value := tx.Bucket(bucketTrips).Get(id)
		if value == nil {
			return nil
		}
		var t trip.Trip
		if err := json.Unmarshal(value, &t); err != nil {
			return fmt.Errorf("failed to unmarshal trip %s: %w", id, err)
		}
		result = &t
		return nil
	})
	return result, err
}

// StatusCount returns the number of persisted vessel statuses.
func (s *Store) StatusCount() (int, error) {
	return s.count(bucketStatuses)
}

// MetricCount returns the number of persisted metric aggregates.
func (s *Store) MetricCount() (int, error) {
	return s.count(bucketMetrics)
}

func (s *Store) count(bucket []byte) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return n, err
}

func timeKey(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

func metricKey(t time.Time, m monitor.MetricID) []byte {
	key := make([]byte, 9)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	key[8] = uint8(m)
	return key
}
