package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

const defaultPrefix = "earnedshine:availability"

type record struct {
	Date       string `json:"date"`
	Slot       string `json:"slot"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	BookingRef string `json:"booking_ref,omitempty"`
}

func toRecord(rec domain.AvailabilityRecord) record {
	return record{
		Date:       rec.Date,
		Slot:       rec.Slot,
		Status:     string(rec.Status),
		Reason:     rec.Reason,
		BookingRef: rec.BookingRef,
	}
}

func (r record) toDomain() domain.AvailabilityRecord {
	return domain.AvailabilityRecord{
		Date:       r.Date,
		Slot:       r.Slot,
		Status:     domain.AvailabilityStatus(r.Status),
		Reason:     r.Reason,
		BookingRef: r.BookingRef,
	}
}

// KEYS: day hash, index key of the record being written.
// ARGV: slot, encoded record, index prefix, index member.
var putScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], ARGV[1])
if old then
  local o = cjson.decode(old)
  if o.booking_ref then redis.call('SREM', ARGV[3] .. o.booking_ref, ARGV[4]) end
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if KEYS[2] ~= '' then redis.call('SADD', KEYS[2], ARGV[4]) end
return 1
`)

// KEYS: day hash. ARGV: slot, index prefix, index member.
var deleteScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], ARGV[1])
if not old then return 0 end
local o = cjson.decode(old)
if o.booking_ref then redis.call('SREM', ARGV[2] .. o.booking_ref, ARGV[3]) end
redis.call('HDEL', KEYS[1], ARGV[1])
return 1
`)

// KEYS: day hash, index key of the claiming booking.
// ARGV: slot, encoded record, booking ref, index member, day sentinel slot.
var claimScript = redis.NewScript(`
local day = redis.call('HGET', KEYS[1], ARGV[5])
if day then
  local d = cjson.decode(day)
  if d.status == 'BLOCKED' then return 0 end
end
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur then
  local c = cjson.decode(cur)
  if c.status ~= 'AVAILABLE' and not (c.status == 'BOOKED' and c.booking_ref == ARGV[3]) then
    return 0
  end
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('SADD', KEYS[2], ARGV[4])
return 1
`)

type SlotRepo struct {
	client *redis.Client
	prefix string
}

// NewSlotRepo uses prefix for every key it writes; an empty prefix selects the default.
func NewSlotRepo(client *redis.Client, prefix string) *SlotRepo {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SlotRepo{client: client, prefix: prefix}
}

func (r *SlotRepo) dayKey(date string) string {
	return r.prefix + ":day:" + date
}

func (r *SlotRepo) refPrefix() string {
	return r.prefix + ":ref:"
}

func (r *SlotRepo) refKey(ref string) string {
	if ref == "" {
		return ""
	}
	return r.refPrefix() + ref
}

func member(date, slot string) string {
	return date + "|" + slot
}

func (r *SlotRepo) Get(ctx context.Context, date, slot string) (domain.AvailabilityRecord, error) {
	raw, err := r.client.HGet(ctx, r.dayKey(date), slot).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AvailabilityRecord{}, store.ErrNotFound
		}
		return domain.AvailabilityRecord{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.AvailabilityRecord{}, err
	}
	return rec.toDomain(), nil
}

func (r *SlotRepo) Put(ctx context.Context, rec domain.AvailabilityRecord) error {
	b, err := json.Marshal(toRecord(rec))
	if err != nil {
		return err
	}
	keys := []string{r.dayKey(rec.Date), r.refKey(rec.BookingRef)}
	return putScript.Run(ctx, r.client, keys, rec.Slot, string(b), r.refPrefix(), member(rec.Date, rec.Slot)).Err()
}

func (r *SlotRepo) Delete(ctx context.Context, date, slot string) error {
	keys := []string{r.dayKey(date)}
	return deleteScript.Run(ctx, r.client, keys, slot, r.refPrefix(), member(date, slot)).Err()
}

func (r *SlotRepo) ListByDate(ctx context.Context, date string) ([]domain.AvailabilityRecord, error) {
	values, err := r.client.HGetAll(ctx, r.dayKey(date)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.AvailabilityRecord, 0, len(values))
	for _, raw := range values {
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec.toDomain())
	}
	sortRecords(out)
	return out, nil
}

func (r *SlotRepo) ListByBookingRef(ctx context.Context, ref string) ([]domain.AvailabilityRecord, error) {
	members, err := r.client.SMembers(ctx, r.refKey(ref)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, 0, len(members))
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, m := range members {
			date, slot, ok := strings.Cut(m, "|")
			if !ok {
				continue
			}
			cmds = append(cmds, p.HGet(ctx, r.dayKey(date), slot))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var out []domain.AvailabilityRecord
	for _, cmd := range cmds {
		raw, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		if rec.BookingRef == ref {
			out = append(out, rec.toDomain())
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *SlotRepo) Claim(ctx context.Context, rec domain.AvailabilityRecord) error {
	rec.Status = domain.AvailabilityBooked
	b, err := json.Marshal(toRecord(rec))
	if err != nil {
		return err
	}
	keys := []string{r.dayKey(rec.Date), r.refKey(rec.BookingRef)}
	ok, err := claimScript.Run(ctx, r.client, keys, rec.Slot, string(b), rec.BookingRef, member(rec.Date, rec.Slot), domain.AllDaySlot).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return store.ErrConflict
	}
	return nil
}

func sortRecords(recs []domain.AvailabilityRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date < recs[j].Date
		}
		return recs[i].Slot < recs[j].Slot
	})
}
