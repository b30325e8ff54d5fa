package profile

import (
	"context"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Redis stores each profile as a JSON string under prefix+username.
type Redis struct {
	c      *redis.Client
	prefix string
}

func NewRedis(c *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "profile:"
	}
	return &Redis{c: c, prefix: prefix}
}

func (r *Redis) key(username string) string { return r.prefix + username }

func (r *Redis) Load(ctx context.Context, username string) (Profile, bool, error) {
	raw, err := r.c.Get(ctx, r.key(username)).Bytes()
	if eris.Is(err, redis.Nil) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, eris.Wrapf(err, "load profile %q", username)
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, false, eris.Wrapf(err, "decode profile %q", username)
	}
	return p, true, nil
}

func (r *Redis) Save(ctx context.Context, username string, p Profile) error {
	if username == "" {
		return ErrEmptyUsername
	}
	b, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "encode profile")
	}
	if err := r.c.Set(ctx, r.key(username), b, 0).Err(); err != nil {
		return eris.Wrapf(err, "save profile %q", username)
	}
	return nil
}

func (r *Redis) Usernames(ctx context.Context) ([]string, error) {
	var out []string
	iter := r.c.Scan(ctx, 0, r.prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, eris.Wrap(err, "scan profiles")
	}
	sort.Strings(out)
	return out, nil
}

func (r *Redis) Close() error { return r.c.Close() }
