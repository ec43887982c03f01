package automation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
)

// RecordSink persists the latest record per operation. Saving a record for
// an operation replaces whatever was stored for it before.
type RecordSink interface {
	Save(rec models.Record) error
	Close() error
}

// ---------------------------------------------------------------------------
// FileSink
// ---------------------------------------------------------------------------

// FileSink writes each record as indented JSON to
// <dir>/mcp_results_<operation>.json.
type FileSink struct {
	dir string
}

// NewFileSink returns a sink rooted at dir. An empty dir means the working
// directory.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{dir: dir}
}

// Path returns the file that holds the record for operation.
func (s *FileSink) Path(operation string) string {
	return filepath.Join(s.dir, "mcp_results_"+operation+".json")
}

// Save implements RecordSink.
func (s *FileSink) Save(rec models.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Operation, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := os.WriteFile(s.Path(rec.Operation), data, 0o644); err != nil {
		return fmt.Errorf("write record %s: %w", rec.Operation, err)
	}
	return nil
}

// Close implements RecordSink.
func (s *FileSink) Close() error { return nil }

// ---------------------------------------------------------------------------
// BoltSink
// ---------------------------------------------------------------------------

const recordsBucket = "records"

// BoltSink stores records in a bbolt database, one key per operation.
type BoltSink struct {
	db *bbolt.DB
}

// OpenBoltSink opens (or creates) the database at path.
func OpenBoltSink(path string) (*BoltSink, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltSink{db: db}, nil
}

// Save implements RecordSink.
func (s *BoltSink) Save(rec models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Operation, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Put([]byte(rec.Operation), data)
	})
}

// Load returns the stored record for operation. ok is false when none exists.
func (s *BoltSink) Load(operation string) (rec models.Record, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(recordsBucket)).Get([]byte(operation))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &rec)
	})
	return rec, ok, err
}

// Records returns every stored record ordered by operation name.
func (s *BoltSink) Records() ([]models.Record, error) {
	var out []models.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).ForEach(func(k, v []byte) error {
			var rec models.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// Close implements RecordSink.
func (s *BoltSink) Close() error {
	return s.db.Close()
}
