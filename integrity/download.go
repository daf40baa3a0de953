package integrity

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fileguard/integrity-services/blobstore"
	"github.com/fileguard/integrity-services/digest"
	"github.com/fileguard/integrity-services/models/registry"
)

// Download is an in-flight download: a reader over the stored bytes
// that folds everything it yields into a digest. When the stream
// reaches EOF the engine compares that digest to the baseline,
// appends the download check, updates the verification state and
// bumps the download counter, all before EOF is surfaced to the
// caller. A download abandoned before EOF records nothing.
type Download struct {
	// Record is a snapshot of the file record taken when the
	// download opened. The verification state in it may be revised
	// by the very check this download produces.
	Record *registry.FileRecord

	engine    *Engine
	blob      io.ReadCloser
	hasher    *digest.Hasher
	client    registry.ClientInfo
	bytesRead int64
	check     *registry.IntegrityCheck
	finalized bool
}

// Download opens a verified read of the file's bytes. ErrNotFound
// if the file does not exist or is not ownerID's;
// ErrStorageCorruption if the record exists but the bytes are gone.
//
// The caller must read the returned Download to EOF for the
// integrity check to happen, and must Close it either way.
func (engine *Engine) Download(ctx context.Context, ownerID, fileID string, client registry.ClientInfo) (*Download, error) {
	record, err := engine.getRecord(ownerID, fileID)
	if err != nil {
		return nil, err
	}
	blob, err := engine.context.Blobs.Open(ctx, record.StorageHandle)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: no bytes under handle %s for file %s",
			ErrStorageCorruption, record.StorageHandle, record.Identifier())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	engine.context.Logger.Infof("Download of file %s started", record.Identifier())
	return &Download{
		Record: record,
		engine: engine,
		blob:   blob,
		hasher: digest.NewHasher(),
		client: client,
	}, nil
}

func (d *Download) Read(p []byte) (int, error) {
	if d.finalized {
		return 0, io.EOF
	}
	n, err := d.blob.Read(p)
	if n > 0 {
		// The sha256 writer never returns an error.
		d.hasher.Write(p[:n])
		d.bytesRead += int64(n)
	}
	if err == io.EOF {
		// Every byte has now passed through the hasher. Record the
		// check before the caller learns the stream is done, so a
		// clean EOF always implies a recorded comparison.
		finalizeErr := d.finalize()
		if finalizeErr != nil {
			return n, finalizeErr
		}
		return n, io.EOF
	}
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return n, nil
}

// Check returns the integrity check this download recorded, or nil
// if the stream has not reached EOF. A caller that got a clean EOF
// can rely on it being non-nil.
func (d *Download) Check() *registry.IntegrityCheck {
	return d.check
}

// Verified reports whether the streamed bytes matched the baseline
// digest. It is meaningful only after a clean EOF.
func (d *Download) Verified() bool {
	return d.check != nil && d.check.IsValid
}

// Close releases the underlying blob reader. Closing before EOF is
// how a caller cancels: no check is recorded and the download count
// does not move.
func (d *Download) Close() error {
	return d.blob.Close()
}

// finalize runs the compare-and-update under the file's lock, with
// a fresh read of the record so a verify that finished while the
// bytes streamed is not overwritten with stale state. If the check
// cannot be recorded, the error surfaces to the reader: the caller
// has the bytes but must not treat them as verified.
func (d *Download) finalize() error {
	d.finalized = true
	engine := d.engine
	unlock := engine.locks.Lock(d.Record.ID)
	defer unlock()

	record, err := engine.getRecord(d.Record.OwnerID, d.Record.ID)
	if err != nil {
		// Deleted while we streamed. Nothing left to record a
		// check against.
		return err
	}
	observedDigest := d.hasher.Sum()
	isValid := observedDigest == record.BaselineDigest
	check := registry.NewDownloadCheck(record.ID, observedDigest, isValid, d.bytesRead)
	check.SetClient(d.client)
	applyCheck(record, check)

	err = engine.auditLog.AppendDownload(record, check)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	d.check = check
	if isValid {
		engine.context.Logger.Infof("Download of file %s complete, digest verified", record.Identifier())
	} else {
		engine.context.Logger.Errorf("Download of file %s served CORRUPTED bytes: expected %s, got %s",
			record.Identifier(), record.BaselineDigest, observedDigest)
	}
	return nil
}
