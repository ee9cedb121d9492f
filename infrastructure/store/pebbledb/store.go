package pebbledb

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	pkgerrors "github.com/pkg/errors"
	"github.com/slotbench/go-slot-capture/entities"
)

var ErrNotFound = errors.New("store resource not found")

const (
	lastSessionKey   = 0x00
	summaryKeyPrefix = 0x01
)

// key separator, endpoint labels must not contain it
const separator = 0x00

type Store struct {
	db *pebble.DB
}

func NewSummaryStore(storeDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "slot-capture-store"), &pebble.Options{})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening pebble db")
	}

	return &Store{db: db}, nil
}

func summaryKey(sessionID, endpoint string) []byte {
	key := []byte{summaryKeyPrefix}
	key = append(key, sessionID...)
	key = append(key, separator)
	return append(key, endpoint...)
}

func sessionPrefix(sessionID string) []byte {
	key := []byte{summaryKeyPrefix}
	key = append(key, sessionID...)
	return append(key, separator)
}

func (s *Store) SaveSummary(summary entities.EndpointSummary) error {
	value, err := json.Marshal(summary)
	if err != nil {
		return pkgerrors.Wrapf(err, "marshalling summary of endpoint [%s]", summary.Endpoint)
	}

	err = s.db.Set(summaryKey(summary.SessionID, summary.Endpoint), value, pebble.Sync)
	if err != nil {
		return pkgerrors.Wrap(err, "setting summary")
	}
	return nil
}

// GetSummaries returns the summaries of a session ordered by endpoint label.
func (s *Store) GetSummaries(sessionID string) ([]entities.EndpointSummary, error) {
	lowerBound := sessionPrefix(sessionID)
	upperBound := append([]byte{summaryKeyPrefix}, sessionID...)
	upperBound = append(upperBound, separator+1)

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lowerBound,
		UpperBound: upperBound,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "creating iterator")
	}
	defer iter.Close()

	var summaries []entities.EndpointSummary
	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "getting value from iter")
		}

		var summary entities.EndpointSummary
		if err = json.Unmarshal(value, &summary); err != nil {
			return nil, pkgerrors.Wrapf(err, "unmarshalling summary [%s]", string(iter.Key()))
		}
		summaries = append(summaries, summary)
	}
	if len(summaries) == 0 {
		return nil, ErrNotFound
	}

	return summaries, nil
}

func (s *Store) SetLastSession(sessionID string) error {
	err := s.db.Set([]byte{lastSessionKey}, []byte(sessionID), pebble.Sync)
	if err != nil {
		return pkgerrors.Wrap(err, "setting last session")
	}
	return nil
}

func (s *Store) GetLastSession() (string, error) {
	value, closer, err := s.db.Get([]byte{lastSessionKey})
	if errors.Is(err, pebble.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", pkgerrors.Wrap(err, "getting last session")
	}
	defer closer.Close()

	return string(value), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
