package hidsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

// SeenDevice is the persisted record of a device the watcher has connected
// to. Only connection metadata is stored; layer history is never persisted.
type SeenDevice struct {
	Address     string    `json:"address"`
	Name        string    `json:"name"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	Connects    int       `json:"connects"`
}

func seenDeviceKey(address string) []byte {
	return []byte(fmt.Sprintf("devices/%s", address))
}

func (s *Service) recordConnect(info DeviceInfo) {
	if s.db == nil {
		return
	}
	now := s.now()
	err := s.db.Update(func(txn *badger.Txn) error {
		key := seenDeviceKey(info.Address())
		var dev SeenDevice
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			dev = SeenDevice{Address: info.Address(), FirstSeenAt: now}
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dev)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal device record: %w", err)
			}
		}
		dev.Name = info.Name()
		dev.LastSeenAt = now
		dev.Connects++
		b, err := json.Marshal(dev)
		if err != nil {
			return fmt.Errorf("failed to marshal device record: %w", err)
		}
		return txn.Set(key, b)
	})
	if err != nil {
		s.log.Error("Failed to record device connect", zap.Error(err))
	}
}

// ListSeenDevices returns every device the watcher has ever connected to.
func ListSeenDevices(db *badger.DB) ([]SeenDevice, error) {
	var devices []SeenDevice
	err := db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		prefix := []byte("devices/")
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var dev SeenDevice
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dev)
			})
			if err != nil {
				return err
			}
			devices = append(devices, dev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list seen devices: %w", err)
	}
	return devices, nil
}
