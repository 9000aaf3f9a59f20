package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"quiz-buzzer-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionSetLoader fetches question sets from a backing store (e.g., Postgres).
type QuestionSetLoader interface {
	LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
	ListQuestionSets(ctx context.Context) ([]domain.QuestionSetInfo, error)
}

// QuestionSetRepository caches question sets in Redis (hash per set) and falls
// back to a loader on cache miss.
// Questions are stored as: HSET buzzer:set:{setID}:questions {index} {question JSON}
// The title is stored as:  SET  buzzer:set:{setID}:title {title}
type QuestionSetRepository struct {
	client *redis.Client
	loader QuestionSetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionSetRepository(client *redis.Client, loader QuestionSetLoader, ttl time.Duration) *QuestionSetRepository {
	return &QuestionSetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionSetRepository) GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	questionKey := r.questionsKey(setID)
	titleKey := r.titleKey(setID)

	fields, err := r.client.HGetAll(ctx, questionKey).Result()
	if err == nil && len(fields) > 0 {
		title, _ := r.client.Get(ctx, titleKey).Result()
		return buildSetFromCache(setID, title, fields), nil
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, questionKey).Result()
		if err == nil && len(fields) > 0 {
			title, _ := r.client.Get(ctx, titleKey).Result()
			return buildSetFromCache(setID, title, fields), nil
		}

		set, err := r.loader.LoadQuestionSet(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for i, q := range set.Questions {
			raw, err := json.Marshal(q)
			if err != nil {
				continue
			}
			pipe.HSet(ctx, questionKey, strconv.Itoa(i), raw)
		}
		pipe.Set(ctx, titleKey, set.Title, ttl)
		if ttl > 0 {
			pipe.Expire(ctx, questionKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// ListQuestionSets defers to the loader; the cache only serves full-set reads.
func (r *QuestionSetRepository) ListQuestionSets(ctx context.Context) ([]domain.QuestionSetInfo, error) {
	return r.loader.ListQuestionSets(ctx)
}

func (r *QuestionSetRepository) questionsKey(setID string) string {
	return "buzzer:set:" + setID + ":questions"
}

func (r *QuestionSetRepository) titleKey(setID string) string {
	return "buzzer:set:" + setID + ":title"
}

func buildSetFromCache(setID, title string, fields map[string]string) domain.QuestionSet {
	questions := make([]domain.QuestionData, len(fields))
	for index, raw := range fields {
		i, err := strconv.Atoi(index)
		if err != nil || i < 0 || i >= len(questions) {
			continue
		}
		var q domain.QuestionData
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			continue
		}
		questions[i] = q
	}
	return domain.QuestionSet{ID: setID, Title: title, Questions: questions}
}

func (r *QuestionSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
