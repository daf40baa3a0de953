package integrity_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/fileguard/integrity-services/blobstore"
	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/digest"
	"github.com/fileguard/integrity-services/integrity"
	"github.com/fileguard/integrity-services/util/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadComputesBaseline(t *testing.T) {
	engine, _, _ := getEngine(t)
	record := uploadString(t, engine, "owner-upload", "abc")

	assert.Equal(t, testutil.Sha256OfAbc, record.BaselineDigest)
	assert.Equal(t, constants.StateVerified, record.VerificationState)
	assert.Equal(t, "sample.txt", record.OriginalFilename)
	assert.Equal(t, "text/plain", record.ContentType)
	assert.EqualValues(t, 3, record.SizeBytes)
	assert.EqualValues(t, 1, record.UploadCount)
	assert.EqualValues(t, 0, record.DownloadCount)
	assert.False(t, record.CreatedAt.IsZero())
	assert.False(t, record.LastCheckedAt.IsZero())

	// Opaque server-side identifiers, unrelated to the filename.
	_, err := uuid.Parse(record.ID)
	assert.Nil(t, err)
	_, err = uuid.Parse(record.StorageHandle)
	assert.Nil(t, err)

	history, err := engine.History(context.Background(), record.OwnerID, record.ID, 0)
	require.Nil(t, err)
	require.Equal(t, 1, len(history))
	assert.Equal(t, constants.CheckTypeUpload, history[0].CheckType)
	assert.True(t, history[0].IsValid)
	assert.Equal(t, testutil.Sha256OfAbc, history[0].ObservedDigest)
	require.NotNil(t, history[0].Upload)
	assert.EqualValues(t, 3, history[0].Upload.SizeBytes)
	assert.Equal(t, "text/plain", history[0].Upload.ContentType)
	assert.Equal(t, testClient.IPAddress, history[0].IPAddress)
}

func TestUploadSizeLimit(t *testing.T) {
	engine, _, _ := getEngine(t)
	_, err := engine.Upload(context.Background(), &integrity.UploadRequest{
		Body:      strings.NewReader("0123456789"),
		Filename:  "too-big.bin",
		OwnerID:   "owner-oversize",
		SizeLimit: 4,
	})
	assert.ErrorIs(t, err, integrity.ErrSizeLimitExceeded)

	// No record survives the rejected upload.
	records, err := engine.Files(context.Background(), "owner-oversize", 0, 0)
	require.Nil(t, err)
	assert.Empty(t, records)
}

func TestUploadRequiresOwner(t *testing.T) {
	engine, _, _ := getEngine(t)
	_, err := engine.Upload(context.Background(), &integrity.UploadRequest{
		Body:     strings.NewReader("abc"),
		Filename: "sample.txt",
	})
	assert.ErrorIs(t, err, integrity.ErrUnauthorized)

	_, err = engine.Upload(context.Background(), &integrity.UploadRequest{
		Filename: "sample.txt",
		OwnerID:  "owner-nobody",
	})
	assert.ErrorIs(t, err, integrity.ErrIO)
}

func TestVerifyMatchesUploadDigest(t *testing.T) {
	engine, _, _ := getEngine(t)
	record := uploadString(t, engine, "owner-verify", "abc")

	check, err := engine.Verify(context.Background(), record.OwnerID, record.ID,
		constants.CheckSourceUser, testClient)
	require.Nil(t, err)
	assert.True(t, check.IsValid)
	assert.Equal(t, record.BaselineDigest, check.ObservedDigest)
	assert.Equal(t, constants.CheckTypeManual, check.CheckType)
	require.NotNil(t, check.Manual)
	assert.Equal(t, constants.CheckSourceUser, check.Manual.Source)

	history, err := engine.History(context.Background(), record.OwnerID, record.ID, 0)
	require.Nil(t, err)
	require.Equal(t, 2, len(history))
	assert.Equal(t, check.ID, history[0].ID)
	assert.Equal(t, constants.CheckTypeUpload, history[1].CheckType)
}

func TestVerifyIdempotent(t *testing.T) {
	engine, _, _ := getEngine(t)
	record := uploadString(t, engine, "owner-idempotent", "abc")

	for i := 0; i < 3; i++ {
		check, err := engine.Verify(context.Background(), record.OwnerID, record.ID,
			constants.CheckSourceUser, testClient)
		require.Nil(t, err)
		assert.True(t, check.IsValid)
	}

	current, err := engine.File(context.Background(), record.OwnerID, record.ID)
	require.Nil(t, err)
	assert.Equal(t, record.BaselineDigest, current.BaselineDigest)
	assert.Equal(t, constants.StateVerified, current.VerificationState)
}

func TestVerifyDetectsCorruptionAndRepair(t *testing.T) {
	engine, store, _ := getEngine(t)
	record := uploadString(t, engine, "owner-corrupt", "abc")
	sha256OfAbd, _, err := digest.HashReader(strings.NewReader("abd"))
	require.Nil(t, err)

	// Flip one byte behind the engine's back.
	corruptBlob(t, store, record, "abd")

	check, err := engine.Verify(context.Background(), record.OwnerID, record.ID,
		constants.CheckSourceUser, testClient)
	require.Nil(t, err)
	assert.False(t, check.IsValid)
	assert.Equal(t, sha256OfAbd, check.ObservedDigest)

	current, err := engine.File(context.Background(), record.OwnerID, record.ID)
	require.Nil(t, err)
	assert.Equal(t, constants.StateCorrupted, current.VerificationState)
	// The baseline never moves, even when the bytes did.
	assert.Equal(t, testutil.Sha256OfAbc, current.BaselineDigest)

	// Exactly one new check records the corruption.
	history, err := engine.History(context.Background(), record.OwnerID, record.ID, 0)
	require.Nil(t, err)
	require.Equal(t, 2, len(history))
	assert.Equal(t, check.ID, history[0].ID)

	// Out-of-band repair, then a passing verify moves the file back
	// to verified. State tracks the last comparison, nothing more.
	corruptBlob(t, store, record, "abc")
	repaired, err := engine.Verify(context.Background(), record.OwnerID, record.ID,
		constants.CheckSourceUser, testClient)
	require.Nil(t, err)
	assert.True(t, repaired.IsValid)

	current, err = engine.File(context.Background(), record.OwnerID, record.ID)
	require.Nil(t, err)
	assert.Equal(t, constants.StateVerified, current.VerificationState)
}

func TestVerifyMissingBytes(t *testing.T) {
	engine, store, _ := getEngine(t)
	record := uploadString(t, engine, "owner-missing", "abc")
	require.Nil(t, store.Delete(context.Background(), record.StorageHandle))

	_, err := engine.Verify(context.Background(), record.OwnerID, record.ID,
		constants.CheckSourceUser, testClient)
	assert.ErrorIs(t, err, integrity.ErrStorageCorruption)

	// No comparison happened, so no check was appended and the
	// state did not change.
	current, err := engine.File(context.Background(), record.OwnerID, record.ID)
	require.Nil(t, err)
	assert.Equal(t, constants.StateVerified, current.VerificationState)
	history, err := engine.History(context.Background(), record.OwnerID, record.ID, 0)
	require.Nil(t, err)
	assert.Equal(t, 1, len(history))
}

func TestVerifyRejectsUnknownSource(t *testing.T) {
	engine, _, _ := getEngine(t)
	record := uploadString(t, engine, "owner-source", "abc")
	_, err := engine.Verify(context.Background(), record.OwnerID, record.ID,
		"robot", testClient)
	assert.NotNil(t, err)
}

func TestVerifyNotFound(t *testing.T) {
	engine, _, _ := getEngine(t)
	record := uploadString(t, engine, "owner-mine", "abc")

	_, err := engine.Verify(context.Background(), "owner-mine", uuid.New().String(),
		constants.CheckSourceUser, testClient)
	assert.ErrorIs(t, err, integrity.ErrNotFound)

	// Another owner gets the same answer as a missing file.
	_, err = engine.Verify(context.Background(), "owner-somebody-else", record.ID,
		constants.CheckSourceUser, testClient)
	assert.ErrorIs(t, err, integrity.ErrNotFound)
}

func TestConcurrentVerifies(t *testing.T) {
	engine, _, _ := getEngine(t)
	record := uploadString(t, engine, "owner-concurrent", "abc")

	const verifiers = 10
	var wg sync.WaitGroup
	errs := make(chan error, verifiers)
	for i := 0; i < verifiers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Verify(context.Background(), record.OwnerID, record.ID,
				constants.CheckSourceUser, testClient)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.Nil(t, err)
	}

	// Exactly one check per verify, none lost, none duplicated, and
	// a final state that matches the actual bytes.
	history, err := engine.History(context.Background(), record.OwnerID, record.ID, 0)
	require.Nil(t, err)
	assert.Equal(t, verifiers+1, len(history))
	current, err := engine.File(context.Background(), record.OwnerID, record.ID)
	require.Nil(t, err)
	assert.Equal(t, constants.StateVerified, current.VerificationState)
}

func TestDelete(t *testing.T) {
	engine, store, redisClient := getEngine(t)
	record := uploadString(t, engine, "owner-delete", "abc")

	require.Nil(t, engine.Delete(context.Background(), record.OwnerID, record.ID))

	// Record, blob and history are all gone.
	_, err := engine.File(context.Background(), record.OwnerID, record.ID)
	assert.ErrorIs(t, err, integrity.ErrNotFound)
	_, err = store.Open(context.Background(), record.StorageHandle)
	assert.Equal(t, blobstore.ErrNotFound, err)
	checks, err := redisClient.CheckHistory(record.ID, 0)
	require.Nil(t, err)
	assert.Empty(t, checks)

	// A second delete is NotFound, not a complaint about missing
	// bytes.
	err = engine.Delete(context.Background(), record.OwnerID, record.ID)
	assert.ErrorIs(t, err, integrity.ErrNotFound)
}

func TestDeleteWrongOwner(t *testing.T) {
	engine, _, _ := getEngine(t)
	record := uploadString(t, engine, "owner-keeper", "abc")

	err := engine.Delete(context.Background(), "owner-intruder", record.ID)
	assert.ErrorIs(t, err, integrity.ErrNotFound)

	// The file is still there for its real owner.
	_, err = engine.File(context.Background(), record.OwnerID, record.ID)
	assert.Nil(t, err)
}

func TestHistoryNotFound(t *testing.T) {
	engine, _, _ := getEngine(t)
	_, err := engine.History(context.Background(), "owner-history", uuid.New().String(), 0)
	assert.ErrorIs(t, err, integrity.ErrNotFound)
}

func TestFiles(t *testing.T) {
	engine, _, _ := getEngine(t)
	ownerID := "owner-paging"
	for i := 0; i < 5; i++ {
		uploadString(t, engine, ownerID, strings.Repeat("x", i+1))
	}

	all, err := engine.Files(context.Background(), ownerID, 0, 0)
	require.Nil(t, err)
	require.Equal(t, 5, len(all))

	page, err := engine.Files(context.Background(), ownerID, 1, 2)
	require.Nil(t, err)
	require.Equal(t, 2, len(page))
	assert.Equal(t, all[1].ID, page[0].ID)
	assert.Equal(t, all[2].ID, page[1].ID)

	empty, err := engine.Files(context.Background(), ownerID, 10, 2)
	require.Nil(t, err)
	assert.Empty(t, empty)

	none, err := engine.Files(context.Background(), "owner-without-files", 0, 10)
	require.Nil(t, err)
	assert.Empty(t, none)
}
