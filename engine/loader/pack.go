package loader

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// PackBucket is the bbolt bucket that holds YAML rig documents keyed by rig name.
const PackBucket = "rigs"

// ErrRigNotPacked is returned when a resource pack has no rig under the requested name.
var ErrRigNotPacked = errors.New("rig not found in pack")

// ReadPackedRig reads the raw YAML document of one rig from a resource pack.
//
// Parameters:
//   - path: the path to the bbolt resource file
//   - name: the rig name
//
// Returns:
//   - []byte: a copy of the stored document
//   - error: error if the pack cannot be opened or holds no such rig
func ReadPackedRig(path, name string) ([]byte, error) {
	db, err := bolt.Open(path, 0444, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pack %s", path)
	}
	defer db.Close()

	var data []byte
	err = db.View(func(tx *bolt.Tx) error {
		buck := tx.Bucket([]byte(PackBucket))
		if buck == nil {
			return errors.Errorf("the %s bucket not found", PackBucket)
		}
		raw := buck.Get([]byte(name))
		if raw == nil {
			return errors.Wrapf(ErrRigNotPacked, "rig %q", name)
		}
		// bbolt memory is only valid inside the transaction.
		data = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WritePack stores rig documents in a resource pack, creating the file and bucket as needed.
// Existing rigs with the same name are replaced.
//
// Parameters:
//   - path: the path to the bbolt resource file
//   - rigs: YAML rig documents keyed by rig name
//
// Returns:
//   - error: error if the pack cannot be written
func WritePack(path string, rigs map[string][]byte) error {
	db, err := bolt.Open(path, 0666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return errors.Wrapf(err, "failed to open pack %s", path)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		buck, err := tx.CreateBucketIfNotExists([]byte(PackBucket))
		if err != nil {
			return err
		}
		for name, data := range rigs {
			if name == "" {
				return errors.New("rig without a name cannot be packed")
			}
			if err := buck.Put([]byte(name), data); err != nil {
				return errors.Wrapf(err, "failed to store rig %q", name)
			}
		}
		return nil
	})
}

// ListPack returns the sorted names of every rig in a resource pack.
//
// Parameters:
//   - path: the path to the bbolt resource file
//
// Returns:
//   - []string: the rig names
//   - error: error if the pack cannot be opened
func ListPack(path string) ([]string, error) {
	db, err := bolt.Open(path, 0444, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pack %s", path)
	}
	defer db.Close()

	var names []string
	err = db.View(func(tx *bolt.Tx) error {
		buck := tx.Bucket([]byte(PackBucket))
		if buck == nil {
			return nil
		}
		return buck.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
