package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/tenant"
)

const (
	configFileName = "config.json"
	rsvpFileName   = "rsvp.csv"
)

// tenantDir returns <root>/<slug>. The slug rules keep separators and ".."
// out of the path.
func tenantDir(root, slug string) (string, error) {
	if err := tenant.ValidateSlug(slug); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTenant, err)
	}
	return filepath.Join(root, slug), nil
}

// FileRecordStoreOptions tunes FileRecordStore
type FileRecordStoreOptions struct {
	// AtomicRewrite makes Update write a temp file and rename it over
	// rsvp.csv. Off by default, which truncates and rewrites in place.
	AtomicRewrite bool

	// IDs overrides the id generator
	IDs *IDGenerator
}

// FileRecordStore keeps one rsvp.csv per tenant under a root directory.
//
// It holds no locks. Concurrent appends to the same tenant file can
// interleave on some filesystems, concurrent updates are last-writer-wins
// for the whole file, and concurrent NextID calls can return the same id.
// Wrap calls with a Locker to serialize them.
//
// Update rewrites the file from the records ReadAll could parse, so lines
// skipped as malformed are dropped by the first update.
type FileRecordStore struct {
	root string
	opts FileRecordStoreOptions
	ids  *IDGenerator
	log  *logrus.Entry
}

// NewFileRecordStore creates a store rooted at root
func NewFileRecordStore(root string, opts FileRecordStoreOptions) *FileRecordStore {
	ids := opts.IDs
	if ids == nil {
		ids = NewIDGenerator()
	}
	return &FileRecordStore{
		root: root,
		opts: opts,
		ids:  ids,
		log:  logrus.WithField("component", "file-record-store"),
	}
}

func (s *FileRecordStore) path(tenantID string) (string, error) {
	dir, err := tenantDir(s.root, tenantID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, rsvpFileName), nil
}

// ReadAll returns all well-formed records of the tenant in file order
func (s *FileRecordStore) ReadAll(ctx context.Context, tenantID string) ([]models.GuestRecord, error) {
	path, err := s.path(tenantID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []models.GuestRecord{}, nil
	}
	if err != nil {
		return nil, ioError("read records", err)
	}

	records, skipped, err := decodeAll(data)
	if err != nil {
		return nil, ioError("parse records", err)
	}
	for _, sk := range skipped {
		s.log.WithFields(logrus.Fields{
			"tenant": tenantID,
			"line":   sk.Line,
		}).Warnf("Skipping malformed RSVP line: %s", sk.Reason)
	}
	return records, nil
}

// NextID returns the next sequential id, or a timestamp id if the file
// cannot be scanned
func (s *FileRecordStore) NextID(ctx context.Context, tenantID string) (string, error) {
	if _, err := s.path(tenantID); err != nil {
		return "", err
	}
	return s.ids.Next(ctx, s, tenantID), nil
}

// Append writes one record at the end of the tenant's file, creating the
// directory and header first when needed
func (s *FileRecordStore) Append(ctx context.Context, tenantID string, rec *models.GuestRecord) error {
	if err := validateRecord(rec, true); err != nil {
		return err
	}
	rec.SubmittedAt = rec.SubmittedAt.UTC()
	path, err := s.path(tenantID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ioError("create tenant directory", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return ioError("open records", err)
	}
	defer f.Close()

	prefix, err := appendPrefix(f)
	if err != nil {
		return ioError("inspect records", err)
	}

	if _, err := f.WriteString(prefix + encodeRecord(rec)); err != nil {
		return ioError("append record", err)
	}
	return nil
}

// appendPrefix returns what must precede a new line: the header for an
// empty file, a newline when the last line is unterminated.
func appendPrefix(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return headerLine(), nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return "", err
	}
	if last[0] != '\n' {
		return "\n", nil
	}
	return "", nil
}

// FindByID returns the first record with id, or nil
func (s *FileRecordStore) FindByID(ctx context.Context, tenantID, id string) (*models.GuestRecord, error) {
	records, err := s.ReadAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			rec := records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// Update replaces the first record with rec.ID and rewrites the file
func (s *FileRecordStore) Update(ctx context.Context, tenantID string, rec *models.GuestRecord) error {
	if err := validateRecord(rec, true); err != nil {
		return err
	}
	rec.SubmittedAt = rec.SubmittedAt.UTC()
	path, err := s.path(tenantID)
	if err != nil {
		return err
	}

	records, err := s.ReadAll(ctx, tenantID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range records {
		if records[i].ID == rec.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: id %s", ErrRecordNotFound, rec.ID)
	}
	records[idx] = *rec

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.rewrite(path, encodeAll(records)); err != nil {
		return ioError("rewrite records", err)
	}
	return nil
}

func (s *FileRecordStore) rewrite(path string, data []byte) error {
	if !s.opts.AtomicRewrite {
		return os.WriteFile(path, data, 0644)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), rsvpFileName+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
