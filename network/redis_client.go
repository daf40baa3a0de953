package network

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fileguard/integrity-services/models/registry"
	"github.com/go-redis/redis/v7"
)

// ErrRecordNotFound is returned when no file record exists for the
// given owner and file id.
var ErrRecordNotFound = errors.New("file record not found")

// Redis layout:
//
// Each owner has one hash, "owner:<ownerID>", whose fields are
// "record:<fileID>" (the file record as JSON) and
// "downloads:<fileID>" (a bare integer bumped with HINCRBY). The
// counter lives outside the record JSON so concurrent downloads
// never lose increments. Readers fold it back into the record.
//
// Each file has one list, "checks:<fileID>", holding integrity
// checks as JSON. New checks go on with LPUSH, so index zero is
// always the most recent check.
//
// One sorted set, "verification_schedule", maps
// "<ownerID>/<fileID>" to the unix time of the file's last check.
// The queuer reads the low end of this set to find files due for
// reverification.
type RedisClient struct {
	client *redis.Client
}

const scheduleKey = "verification_schedule"

func ownerKey(ownerID string) string {
	return fmt.Sprintf("owner:%s", ownerID)
}

func recordField(fileID string) string {
	return fmt.Sprintf("record:%s", fileID)
}

func downloadsField(fileID string) string {
	return fmt.Sprintf("downloads:%s", fileID)
}

func checksKey(fileID string) string {
	return fmt.Sprintf("checks:%s", fileID)
}

// NewRedisClient creates a new client to talk to the Redis server
// that backs the file registry and the audit trail.
func NewRedisClient(address, password string, db int) *RedisClient {
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisClient) Ping() (string, error) {
	return c.client.Ping().Result()
}

// FileRecordCommit writes the record, appends one integrity check
// to the file's audit trail, and bumps the file's slot in the
// verification schedule, all in a single transaction. Every write
// path that produces a check goes through here, so a record change
// can never land without its check and vice versa.
func (c *RedisClient) FileRecordCommit(record *registry.FileRecord, check *registry.IntegrityCheck) error {
	return c.commit(record, check, false)
}

// DownloadCommit is FileRecordCommit plus an atomic bump of the
// file's download counter.
func (c *RedisClient) DownloadCommit(record *registry.FileRecord, check *registry.IntegrityCheck) error {
	return c.commit(record, check, true)
}

func (c *RedisClient) commit(record *registry.FileRecord, check *registry.IntegrityCheck, countDownload bool) error {
	if record == nil || check == nil {
		return fmt.Errorf("FileRecordCommit: record and check are both required")
	}
	recordJSON, err := record.ToJSON()
	if err != nil {
		return fmt.Errorf("FileRecordCommit (%s): %v", record.Identifier(), err)
	}
	checkJSON, err := check.ToJSON()
	if err != nil {
		return fmt.Errorf("FileRecordCommit (%s): %v", record.Identifier(), err)
	}
	score := float64(check.CheckedAt.Unix())
	_, err = c.client.TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.HSet(ownerKey(record.OwnerID), recordField(record.ID), recordJSON)
		pipe.LPush(checksKey(record.ID), checkJSON)
		pipe.ZAdd(scheduleKey, &redis.Z{Score: score, Member: record.Identifier()})
		if countDownload {
			pipe.HIncrBy(ownerKey(record.OwnerID), downloadsField(record.ID), 1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("FileRecordCommit (%s): %v", record.Identifier(), err)
	}
	return nil
}

// FileRecordGet returns one owner's file record, or
// ErrRecordNotFound if the owner has no such file.
func (c *RedisClient) FileRecordGet(ownerID, fileID string) (*registry.FileRecord, error) {
	recordJSON, err := c.client.HGet(ownerKey(ownerID), recordField(fileID)).Result()
	if err == redis.Nil {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FileRecordGet (%s/%s): %v", ownerID, fileID, err)
	}
	record, err := registry.FileRecordFromJSON(recordJSON)
	if err != nil {
		return nil, fmt.Errorf("FileRecordGet (%s/%s): %v", ownerID, fileID, err)
	}
	downloads, err := c.client.HGet(ownerKey(ownerID), downloadsField(fileID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("FileRecordGet (%s/%s): %v", ownerID, fileID, err)
	}
	record.DownloadCount = parseCount(downloads)
	return record, nil
}

// FileRecordList returns all of an owner's file records, newest
// first. An owner with no files gets an empty list, not an error.
func (c *RedisClient) FileRecordList(ownerID string) ([]*registry.FileRecord, error) {
	fields, err := c.client.HGetAll(ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("FileRecordList (%s): %v", ownerID, err)
	}
	records := make([]*registry.FileRecord, 0, len(fields))
	for field, value := range fields {
		if len(field) < 8 || field[0:7] != "record:" {
			continue
		}
		record, err := registry.FileRecordFromJSON(value)
		if err != nil {
			return nil, fmt.Errorf("FileRecordList (%s): bad record in field %s: %v", ownerID, field, err)
		}
		record.DownloadCount = parseCount(fields[downloadsField(record.ID)])
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// FileRecordDelete removes the record, its download counter, its
// check history, and its verification schedule entry in a single
// transaction. Deleting a file that does not exist is a no-op.
// Callers own the existence check.
func (c *RedisClient) FileRecordDelete(ownerID, fileID string) error {
	_, err := c.client.TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.HDel(ownerKey(ownerID), recordField(fileID), downloadsField(fileID))
		pipe.Del(checksKey(fileID))
		pipe.ZRem(scheduleKey, ownerID+"/"+fileID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("FileRecordDelete (%s/%s): %v", ownerID, fileID, err)
	}
	return nil
}

// OwnerIDs returns the ids of all owners that have at least one
// file record, sorted for stable output.
func (c *RedisClient) OwnerIDs() ([]string, error) {
	ownerIDs := []string{}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(cursor, "owner:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("OwnerIDs: %v", err)
		}
		for _, key := range keys {
			ownerIDs = append(ownerIDs, key[len("owner:"):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(ownerIDs)
	return ownerIDs, nil
}

// CheckHistory returns a file's integrity checks, newest first. A
// limit of zero or less returns the full history.
func (c *RedisClient) CheckHistory(fileID string, limit int64) ([]*registry.IntegrityCheck, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}
	items, err := c.client.LRange(checksKey(fileID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("CheckHistory (%s): %v", fileID, err)
	}
	checks := make([]*registry.IntegrityCheck, len(items))
	for i, item := range items {
		check, err := registry.IntegrityCheckFromJSON(item)
		if err != nil {
			return nil, fmt.Errorf("CheckHistory (%s): bad check at index %d: %v", fileID, i, err)
		}
		checks[i] = check
	}
	return checks, nil
}

// ScheduleDue returns identifiers ("ownerID/fileID") of files whose
// last check is older than the given time, oldest first, up to max
// entries. A max of zero or less returns all due files.
func (c *RedisClient) ScheduleDue(olderThan time.Time, max int64) ([]string, error) {
	rangeBy := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(olderThan.Unix(), 10),
	}
	if max > 0 {
		rangeBy.Count = max
	}
	identifiers, err := c.client.ZRangeByScore(scheduleKey, rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("ScheduleDue: %v", err)
	}
	return identifiers, nil
}

func parseCount(value string) int64 {
	if value == "" {
		return 0
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
