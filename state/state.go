// Package state persists session identifiers across process restarts.
// A crashed experiment leaves a recording running on the device; on the
// next run the stored ids let the driver find and stop it.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("session")
var sessionKey = []byte("current")

// Session is the driver's session identity on the device. Empty strings
// mean not-yet-created.
type Session struct {
	ProjectID     string `json:"project_id"`
	ParticipantID string `json:"participant_id"`
	CalibrationID string `json:"calibration_id"`
	RecordingID   string `json:"recording_id"`
}

// Recording reports whether a recording is in progress.
func (s Session) Recording() bool {
	return s.RecordingID != ""
}

type Store struct {
	DB *bbolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) StoreSession(sess Session) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return b.Put(sessionKey, data)
	})
}

// ReadSession returns the stored session, or a zero Session when none was
// stored.
func (s *Store) ReadSession() (Session, error) {
	sess := Session{}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		data := b.Get(sessionKey)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &sess)
	})
	return sess, err
}
