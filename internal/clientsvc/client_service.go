// Package clientsvc remembers the remote clients that connected to the server.
package clientsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

type Service struct {
	log *zap.Logger
	db  *badger.DB
	now func() time.Time
}

func New(db *badger.DB, log *zap.Logger, now func() time.Time) *Service {
	return &Service{
		log: log,
		db:  db,
		now: now,
	}
}

type Client struct {
	Host        string    `json:"host"`
	UserAgent   string    `json:"userAgent"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	Streams     int       `json:"streams"`
}

type Visit uint8

const (
	VisitAuth Visit = iota
	VisitStream
)

var ErrClientNotFound = errors.New("client not found")

func clientKey(host string) []byte {
	return []byte(fmt.Sprintf("clients/%s", host))
}

// Touch records a visit from host and returns the updated client.
func (s *Service) Touch(host, userAgent string, visit Visit) (Client, error) {
	var client Client
	now := s.now()
	err := s.db.Update(func(txn *badger.Txn) error {
		key := clientKey(host)
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			client = Client{Host: host}
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &client)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal client: %w", err)
			}
		}
		if userAgent != "" {
			client.UserAgent = userAgent
		}
		if client.FirstSeenAt.IsZero() {
			client.FirstSeenAt = now
		}
		client.LastSeenAt = now
		if visit == VisitStream {
			client.Streams++
		}
		b, err := json.Marshal(client)
		if err != nil {
			return fmt.Errorf("failed to marshal client: %w", err)
		}
		return txn.Set(key, b)
	})
	if err != nil {
		return Client{}, fmt.Errorf("failed to record client: %w", err)
	}
	s.log.Debug("client seen", zap.String("host", host), zap.Time("firstSeenAt", client.FirstSeenAt), zap.Int("streams", client.Streams))
	return client, nil
}

func (s *Service) Get(host string) (Client, error) {
	var client Client
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(clientKey(host))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrClientNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &client)
		})
	})
	if err != nil {
		return Client{}, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// List returns every known client, most recently seen first.
func (s *Service) List() ([]Client, error) {
	var clients []Client
	err := s.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		prefix := []byte("clients/")
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var client Client
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &client)
			})
			if err != nil {
				return err
			}
			clients = append(clients, client)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].LastSeenAt.After(clients[j].LastSeenAt)
	})
	return clients, nil
}

// Forget removes every client record.
func (s *Service) Forget() error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()
		prefix := []byte("clients/")
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to forget clients: %w", err)
	}
	return nil
}
