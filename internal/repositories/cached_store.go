package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	log "github.com/sirupsen/logrus"

	model "notegrid.app/notegrid/pkg/models"
)

// fillScript caches a record only when the identity's version is still the
// one observed before the record was read.
var fillScript = rueidis.NewLuaScript(`
local v = redis.call('GET', KEYS[2])
if (v or '') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
return 1
`)

// CachedStore wraps a Store with a redis read-through cache for whole user
// records. Any write for an identity bumps its version and evicts its entry,
// so a read that raced the write never fills the cache. Redis failures are
// logged and the wrapped store answers instead.
type CachedStore struct {
	Store
	redis  rueidis.Client
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

func NewCachedStore(base Store, client rueidis.Client, prefix string, ttl time.Duration, logger *log.Logger) *CachedStore {
	if base == nil {
		panic("repository.NewCachedStore: base store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return &CachedStore{
		Store:  base,
		redis:  client,
		prefix: prefix + "cache:",
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedStore) LoadUserData(ctx context.Context, identity string) (model.UserData, error) {
	data, version, ok := c.load(ctx, identity)
	if ok {
		return data, nil
	}

	data, err := c.Store.LoadUserData(ctx, identity)
	if err != nil {
		return model.UserData{}, err
	}
	if version != nil {
		c.fill(ctx, identity, *version, data)
	}
	return data, nil
}

func (c *CachedStore) CreateUser(ctx context.Context, identity string, now int64) (model.UserData, error) {
	defer c.evict(ctx, identity)
	return c.Store.CreateUser(ctx, identity, now)
}

func (c *CachedStore) ReplaceUserData(ctx context.Context, identity string, data model.UserData) error {
	defer c.evict(ctx, identity)
	return c.Store.ReplaceUserData(ctx, identity, data)
}

func (c *CachedStore) DeleteUser(ctx context.Context, identity string) error {
	defer c.evict(ctx, identity)
	return c.Store.DeleteUser(ctx, identity)
}

func (c *CachedStore) CreateTask(ctx context.Context, identity string, task model.Task, now int64) (model.Task, error) {
	defer c.evict(ctx, identity)
	return c.Store.CreateTask(ctx, identity, task, now)
}

func (c *CachedStore) UpdateTask(ctx context.Context, identity, id string, upd model.TaskUpdate, now int64) (model.Task, error) {
	defer c.evict(ctx, identity)
	return c.Store.UpdateTask(ctx, identity, id, upd, now)
}

func (c *CachedStore) DeleteTask(ctx context.Context, identity, id string, now int64) error {
	defer c.evict(ctx, identity)
	return c.Store.DeleteTask(ctx, identity, id, now)
}

func (c *CachedStore) ReorderTasks(ctx context.Context, identity string, ids []string, now int64) error {
	defer c.evict(ctx, identity)
	return c.Store.ReorderTasks(ctx, identity, ids, now)
}

func (c *CachedStore) CreateLink(ctx context.Context, identity string, link model.Link, now int64) (model.Link, error) {
	defer c.evict(ctx, identity)
	return c.Store.CreateLink(ctx, identity, link, now)
}

func (c *CachedStore) DeleteLink(ctx context.Context, identity, id string, now int64) error {
	defer c.evict(ctx, identity)
	return c.Store.DeleteLink(ctx, identity, id, now)
}

func (c *CachedStore) ReorderLinks(ctx context.Context, identity string, ids []string, now int64) error {
	defer c.evict(ctx, identity)
	return c.Store.ReorderLinks(ctx, identity, ids, now)
}

// load returns the cached record, or on a miss the version to fill against.
// version is nil when redis could not be read.
func (c *CachedStore) load(ctx context.Context, identity string) (model.UserData, *string, bool) {
	res := c.redis.DoMulti(ctx,
		c.redis.B().Get().Key(c.key(identity)).Build(),
		c.redis.B().Get().Key(c.versionKey(identity)).Build(),
	)

	version, err := res[1].ToString()
	if err != nil && !rueidis.IsRedisNil(err) {
		c.logger.WithError(err).WithField("identity", identity).Warn("cache read failed")
		return model.UserData{}, nil, false
	}

	blob, err := res[0].AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.WithError(err).WithField("identity", identity).Warn("cache read failed")
			return model.UserData{}, nil, false
		}
		return model.UserData{}, &version, false
	}

	var data model.UserData
	if err := sonic.Unmarshal(blob, &data); err != nil {
		c.logger.WithError(err).WithField("identity", identity).Warn("cache entry undecodable")
		return model.UserData{}, &version, false
	}
	data.Normalize()
	return data, &version, true
}

func (c *CachedStore) fill(ctx context.Context, identity, version string, data model.UserData) {
	blob, err := sonic.Marshal(data)
	if err != nil {
		return
	}
	keys := []string{c.key(identity), c.versionKey(identity)}
	args := []string{version, string(blob), strconv.FormatInt(int64(c.ttl/time.Second), 10)}
	if err := fillScript.Exec(ctx, c.redis, keys, args).Error(); err != nil {
		c.logger.WithError(err).WithField("identity", identity).Warn("cache write failed")
	}
}

func (c *CachedStore) evict(ctx context.Context, identity string) {
	for _, res := range c.redis.DoMulti(ctx,
		c.redis.B().Incr().Key(c.versionKey(identity)).Build(),
		c.redis.B().Del().Key(c.key(identity)).Build(),
	) {
		if err := res.Error(); err != nil {
			c.logger.WithError(err).WithField("identity", identity).Warn("cache evict failed")
			return
		}
	}
}

// Both keys of an identity share a hash tag so the fill script stays in one
// cluster slot.
func (c *CachedStore) key(identity string) string {
	return c.prefix + "{" + identity + "}"
}

func (c *CachedStore) versionKey(identity string) string {
	return c.prefix + "{" + identity + "}:version"
}
