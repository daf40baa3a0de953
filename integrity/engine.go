// Package integrity is the verification engine: it owns the upload,
// download, verify and delete operations, the per-file verification
// state, and the locking that keeps concurrent checks on one file
// from trampling each other. Every byte that enters or leaves
// storage passes through a digest here, and every comparison leaves
// exactly one entry in the audit trail.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fileguard/integrity-services/audit"
	"github.com/fileguard/integrity-services/blobstore"
	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/digest"
	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/models/registry"
	"github.com/fileguard/integrity-services/network"
	"github.com/fileguard/integrity-services/util"
	"github.com/google/uuid"
)

// Engine orchestrates hashing, blob storage and the audit trail.
// One Engine serves all owners and all files; per-file ordering
// comes from the internal lock table, so callers can invoke it
// from as many goroutines as they like.
type Engine struct {
	context  *common.Context
	auditLog *audit.Log
	locks    *lockTable
}

func NewEngine(context *common.Context) *Engine {
	return &Engine{
		context:  context,
		auditLog: audit.NewLog(context.RedisClient),
		locks:    newLockTable(),
	}
}

// UploadRequest carries everything the engine needs to store one
// new file.
type UploadRequest struct {
	// Body is the raw byte stream from the transport layer. The
	// engine consumes it to EOF or to the size limit, whichever
	// comes first.
	Body io.Reader

	// Client identifies the remote caller for the audit trail.
	Client registry.ClientInfo

	// ContentType is the client-declared media type. The engine
	// stores it verbatim and never inspects the bytes to second-
	// guess it.
	ContentType string

	// Filename is the name the file had on the client's side. It
	// never influences where the bytes land.
	Filename string

	// OwnerID is the authenticated owner, resolved upstream.
	OwnerID string

	// SizeLimit caps the upload in bytes. Zero or less means the
	// configured MAX_FILE_SIZE.
	SizeLimit int64
}

// Upload streams the request body into blob storage, computing the
// SHA-256 digest along the way, then commits the file record, the
// baseline digest and the upload check in one transaction. The new
// record starts out verified: the digest just computed is the
// baseline by definition.
//
// A stream longer than the size limit fails with
// ErrSizeLimitExceeded, a storage failure with ErrIO. In both cases
// the partial blob is removed and no record is persisted, so a
// failed upload leaves nothing behind.
func (engine *Engine) Upload(ctx context.Context, req *UploadRequest) (*registry.FileRecord, error) {
	if req.OwnerID == "" {
		return nil, ErrUnauthorized
	}
	if req.Body == nil {
		return nil, fmt.Errorf("%w: upload request has no body", ErrIO)
	}
	sizeLimit := req.SizeLimit
	if sizeLimit <= 0 {
		sizeLimit = engine.context.Config.MaxFileSize
	}

	// The handle is minted here, never derived from the filename,
	// so no upload can collide with or escape into another path.
	handle := uuid.New().String()
	baselineDigest, sizeBytes, err := engine.context.Blobs.Save(ctx, handle, req.Body, sizeLimit)
	if errors.Is(err, blobstore.ErrSizeLimit) {
		return nil, fmt.Errorf("%w of %d bytes", ErrSizeLimitExceeded, sizeLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	record := registry.NewFileRecord(req.OwnerID, req.Filename,
		req.ContentType, sizeBytes, handle, baselineDigest)
	check := registry.NewUploadCheck(record.ID, baselineDigest, sizeBytes, req.ContentType)
	check.SetClient(req.Client)
	applyCheck(record, check)

	err = engine.auditLog.Append(record, check)
	if err != nil {
		// The blob is already durable, but without a record no one
		// can ever reach it. Remove it rather than orphan it.
		engine.context.Blobs.Delete(ctx, handle)
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	engine.context.Logger.Infof("Stored file %s (%s, %d bytes) with digest %s",
		record.Identifier(), record.OriginalFilename, sizeBytes, baselineDigest)
	return record, nil
}

// Verify re-reads a file's bytes from storage, recomputes the
// digest, compares it to the baseline, and records the outcome. It
// never trusts the cached verification state. The whole
// read-compare-update runs under the file's lock, so concurrent
// verifies serialize and each one's check lands in order.
//
// Param source says who asked: CheckSourceUser for API calls,
// CheckSourceScheduled for the background worker.
//
// A digest mismatch is a successful verify with IsValid=false on
// the returned check. Missing bytes are ErrStorageCorruption; no
// comparison happened, so no check is appended and the state does
// not change.
func (engine *Engine) Verify(ctx context.Context, ownerID, fileID, source string, client registry.ClientInfo) (*registry.IntegrityCheck, error) {
	if !util.StringListContains(constants.CheckSources, source) {
		return nil, fmt.Errorf("unknown check source '%s'", source)
	}
	unlock := engine.locks.Lock(fileID)
	defer unlock()

	record, err := engine.getRecord(ownerID, fileID)
	if err != nil {
		return nil, err
	}
	observedDigest, _, err := engine.observeDigest(ctx, record)
	if err != nil {
		return nil, err
	}

	isValid := observedDigest == record.BaselineDigest
	check := registry.NewManualCheck(record.ID, observedDigest, isValid, source)
	check.SetClient(client)
	applyCheck(record, check)

	err = engine.auditLog.Append(record, check)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if isValid {
		engine.context.Logger.Infof("File %s passed %s verification", record.Identifier(), source)
	} else {
		engine.context.Logger.Errorf("File %s FAILED %s verification: expected %s, got %s",
			record.Identifier(), source, record.BaselineDigest, observedDigest)
	}
	return check, nil
}

// Delete removes a file's bytes, its record, and its entire check
// history. There is no soft delete and no tombstone. A second
// delete of the same file returns ErrNotFound, because by then the
// record is gone, exactly as if it never existed.
func (engine *Engine) Delete(ctx context.Context, ownerID, fileID string) error {
	unlock := engine.locks.Lock(fileID)
	defer unlock()

	record, err := engine.getRecord(ownerID, fileID)
	if err != nil {
		return err
	}
	// Blob first. Blob deletion is idempotent, so if the metadata
	// delete below fails, a retry passes through here harmlessly.
	err = engine.context.Blobs.Delete(ctx, record.StorageHandle)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	err = engine.context.RedisClient.FileRecordDelete(ownerID, fileID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	engine.context.Logger.Infof("Deleted file %s (%s) and its check history",
		record.Identifier(), record.OriginalFilename)
	return nil
}

// History returns a file's integrity checks, newest first. Limit
// zero or less means the default of fifty. The file must exist and
// belong to ownerID, otherwise ErrNotFound.
func (engine *Engine) History(ctx context.Context, ownerID, fileID string, limit int64) ([]*registry.IntegrityCheck, error) {
	_, err := engine.getRecord(ownerID, fileID)
	if err != nil {
		return nil, err
	}
	checks, err := engine.auditLog.History(fileID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return checks, nil
}

// File returns one file record, or ErrNotFound if the file does
// not exist or belongs to someone else.
func (engine *Engine) File(ctx context.Context, ownerID, fileID string) (*registry.FileRecord, error) {
	return engine.getRecord(ownerID, fileID)
}

// Files returns a page of the owner's file records, newest first
// with a stable tiebreak. Offset past the end yields an empty page.
// Limit zero or less means no limit.
func (engine *Engine) Files(ctx context.Context, ownerID string, offset, limit int) ([]*registry.FileRecord, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	records, err := engine.context.RedisClient.FileRecordList(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []*registry.FileRecord{}, nil
	}
	records = records[offset:]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// getRecord maps the repository's not-found onto the engine's
// ErrNotFound. An ownership mismatch takes exactly the same path as
// a missing id, so the error never confirms that a file exists
// under some other owner.
func (engine *Engine) getRecord(ownerID, fileID string) (*registry.FileRecord, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	record, err := engine.context.RedisClient.FileRecordGet(ownerID, fileID)
	if errors.Is(err, network.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, ownerID, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return record, nil
}

// observeDigest reads the file's stored bytes end to end and
// returns their current digest. A blob the store cannot find is
// ErrStorageCorruption here, not ErrNotFound: the caller has
// already established that the metadata exists.
func (engine *Engine) observeDigest(ctx context.Context, record *registry.FileRecord) (string, int64, error) {
	blob, err := engine.context.Blobs.Open(ctx, record.StorageHandle)
	if errors.Is(err, blobstore.ErrNotFound) {
		return "", 0, fmt.Errorf("%w: no bytes under handle %s for file %s",
			ErrStorageCorruption, record.StorageHandle, record.Identifier())
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer blob.Close()
	observedDigest, byteCount, err := digest.HashReader(blob)
	if err != nil {
		return "", byteCount, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return observedDigest, byteCount, nil
}

// applyCheck moves the record to the state the check implies. The
// state always tracks the most recent comparison, nothing else, so
// a passing check moves even a corrupted file back to verified.
func applyCheck(record *registry.FileRecord, check *registry.IntegrityCheck) {
	if check.IsValid {
		record.VerificationState = constants.StateVerified
	} else {
		record.VerificationState = constants.StateCorrupted
	}
	record.LastCheckedAt = check.CheckedAt
}
