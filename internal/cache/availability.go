package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Stamp — поколения доступности: общее для ресторана и отдельное для дня.
// Запись в кэш идёт под поколением, прочитанным до расчёта, поэтому результат,
// посчитанный до конкурентного подтверждения, после Invalidate уже не читается.
type Stamp struct {
	Restaurant int64
	Day        int64
}

// AvailabilityCache хранит уже посчитанную доступность на (ресторан, дата).
// Ошибки кэша не должны ломать запрос: вызывающий код идёт в БД.
type AvailabilityCache interface {
	Stamp(ctx context.Context, restaurantID, date string) (Stamp, error)
	Get(ctx context.Context, restaurantID, date string, st Stamp) (slots []string, ok bool, err error)
	Set(ctx context.Context, restaurantID, date string, st Stamp, slots []string) error
	// Invalidate сдвигает поколение дня.
	Invalidate(ctx context.Context, restaurantID, date string) error
	// InvalidateRestaurant сдвигает поколение ресторана: все его дни сразу.
	InvalidateRestaurant(ctx context.Context, restaurantID string) error
}

const keyPrefix = "availability"

// generationSlack: счётчик поколений живёт дольше любых данных под ним.
const generationSlack = 24 * time.Hour

func availabilityKey(restaurantID, date string, st Stamp) string {
	return fmt.Sprintf("%s:%s:%s:%d.%d", keyPrefix, restaurantID, date, st.Restaurant, st.Day)
}

func restaurantGenKey(restaurantID string) string {
	return fmt.Sprintf("%s:gen:%s", keyPrefix, restaurantID)
}

func dayGenKey(restaurantID, date string) string {
	return fmt.Sprintf("%s:gen:%s:%s", keyPrefix, restaurantID, date)
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Stamp(ctx context.Context, restaurantID, date string) (Stamp, error) {
	vals, err := c.client.MGet(ctx, restaurantGenKey(restaurantID), dayGenKey(restaurantID, date)).Result()
	if err != nil {
		return Stamp{}, fmt.Errorf("redis mget: %w", err)
	}

	var st Stamp
	if st.Restaurant, err = generation(vals[0]); err != nil {
		return Stamp{}, err
	}
	if st.Day, err = generation(vals[1]); err != nil {
		return Stamp{}, err
	}
	return st, nil
}

// generation: отсутствующий ключ — нулевое поколение.
func generation(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", s, err)
	}
	return n, nil
}

func (c *RedisCache) Get(ctx context.Context, restaurantID, date string, st Stamp) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, availabilityKey(restaurantID, date, st)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, fmt.Errorf("decode cached availability: %w", err)
	}
	return slots, true, nil
}

func (c *RedisCache) Set(ctx context.Context, restaurantID, date string, st Stamp, slots []string) error {
	if slots == nil {
		slots = []string{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, availabilityKey(restaurantID, date, st), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, restaurantID, date string) error {
	return c.bump(ctx, dayGenKey(restaurantID, date))
}

func (c *RedisCache) InvalidateRestaurant(ctx context.Context, restaurantID string) error {
	return c.bump(ctx, restaurantGenKey(restaurantID))
}

func (c *RedisCache) bump(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, key)
		p.Expire(ctx, key, c.ttl+generationSlack)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis incr %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NopCache: кэш выключен (REDIS_ADDR пуст).
type NopCache struct{}

func (NopCache) Stamp(context.Context, string, string) (Stamp, error) { return Stamp{}, nil }
func (NopCache) Get(context.Context, string, string, Stamp) ([]string, bool, error) {
	return nil, false, nil
}
func (NopCache) Set(context.Context, string, string, Stamp, []string) error { return nil }
func (NopCache) Invalidate(context.Context, string, string) error { return nil }
func (NopCache) InvalidateRestaurant(context.Context, string) error { return nil }
