// Package mongostore implements abtest.CounterStore on MongoDB.
//
// Experiments are keyed by name and goals by (experiment, goal) in two
// collections. Increments use $inc, so concurrent updates are never lost.
package mongostore

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/abkit/pkg/abtest"
)

const (
	experimentsCollection = "ab_experiments"
	goalsCollection       = "ab_goals"
	sequencesCollection   = "ab_sequences"
)

type experimentDoc struct {
	Name       string    `bson:"_id"`
	Seq        int64     `bson:"seq"`
	Visitors   int64     `bson:"visitors"`
	Engagement int64     `bson:"engagement"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d experimentDoc) model() *abtest.Experiment {
	return &abtest.Experiment{
		ID:         d.Seq,
		Name:       d.Name,
		Visitors:   uint64(d.Visitors),
		Engagement: uint64(d.Engagement),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type goalID struct {
	Experiment string `bson:"experiment"`
	Goal       string `bson:"goal"`
}

type goalDoc struct {
	ID        goalID    `bson:"_id"`
	Seq       int64     `bson:"seq"`
	Count     int64     `bson:"count"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d goalDoc) model() *abtest.Goal {
	return &abtest.Goal{
		ID:         d.Seq,
		Name:       d.ID.Goal,
		Experiment: d.ID.Experiment,
		Count:      uint64(d.Count),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// Store is a MongoDB counter store.
type Store struct {
	experiments *mongo.Collection
	goals       *mongo.Collection
	sequences   *mongo.Collection
}

var (
	_ abtest.CounterStore = (*Store)(nil)
	_ abtest.Flusher      = (*Store)(nil)
)

// New creates a store using collections of db.
func New(db *mongo.Database) *Store {
	return &Store{
		experiments: db.Collection(experimentsCollection),
		goals:       db.Collection(goalsCollection),
		sequences:   db.Collection(sequencesCollection),
	}
}

// nextSeq returns a monotonically increasing id for creation ordering.
func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.sequences.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: "rows"}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, errors.Join(abtest.ErrStoreFailure, err)
	}
	return doc.Value, nil
}

// FindExperiment returns the named experiment or abtest.ErrExperimentNotFound.
func (s *Store) FindExperiment(ctx context.Context, name string) (*abtest.Experiment, error) {
	var doc experimentDoc
	err := s.experiments.FindOne(ctx, bson.D{{Key: "_id", Value: name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, abtest.ErrExperimentNotFound
	}
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return doc.model(), nil
}

// FirstOrCreateExperiment creates the experiment with zero counters unless it exists.
func (s *Store) FirstOrCreateExperiment(ctx context.Context, name string) (*abtest.Experiment, error) {
	e, err := s.FindExperiment(ctx, name)
	if !errors.Is(err, abtest.ErrExperimentNotFound) {
		return e, err
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.experiments.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{
			{Key: "seq", Value: seq},
			{Key: "visitors", Value: int64(0)},
			{Key: "engagement", Value: int64(0)},
			{Key: "created_at", Value: now},
			{Key: "updated_at", Value: now},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return s.FindExperiment(ctx, name)
}

// FirstOrCreateGoal creates the (experiment, goal) row unless it exists.
func (s *Store) FirstOrCreateGoal(ctx context.Context, experiment, goal string) (*abtest.Goal, error) {
	if _, err := s.FindExperiment(ctx, experiment); err != nil {
		return nil, err
	}

	filter := bson.D{{Key: "_id", Value: goalID{Experiment: experiment, Goal: goal}}}
	var doc goalDoc
	err := s.goals.FindOne(ctx, filter).Decode(&doc)
	if err == nil {
		return doc.model(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	err = s.goals.FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$setOnInsert", Value: bson.D{
			{Key: "seq", Value: seq},
			{Key: "count", Value: int64(0)},
			{Key: "created_at", Value: now},
			{Key: "updated_at", Value: now},
		}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return doc.model(), nil
}

// IncrementExperiment atomically adds one to the given experiment counter.
func (s *Store) IncrementExperiment(ctx context.Context, name string, counter abtest.Counter) error {
	if !counter.Valid() {
		return abtest.ErrInvalidCounter
	}
	res, err := s.experiments.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: string(counter), Value: int64(1)}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
		},
	)
	if err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}
	if res.MatchedCount == 0 {
		return abtest.ErrExperimentNotFound
	}
	return nil
}

// IncrementGoal atomically adds one to the goal count scoped to experiment.
func (s *Store) IncrementGoal(ctx context.Context, experiment, goal string) error {
	res, err := s.goals.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: goalID{Experiment: experiment, Goal: goal}}},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "count", Value: int64(1)}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
		},
	)
	if err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}
	if res.MatchedCount == 0 {
		return abtest.ErrGoalNotFound
	}
	return nil
}

// CountExperiments returns the number of stored experiments.
func (s *Store) CountExperiments(ctx context.Context) (int, error) {
	n, err := s.experiments.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Join(abtest.ErrStoreFailure, err)
	}
	return int(n), nil
}

// CountGoals returns the number of stored goals.
func (s *Store) CountGoals(ctx context.Context) (int, error) {
	n, err := s.goals.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Join(abtest.ErrStoreFailure, err)
	}
	return int(n), nil
}

// Experiments returns every experiment in creation order.
func (s *Store) Experiments(ctx context.Context) ([]abtest.Experiment, error) {
	docs, err := findAll[experimentDoc](ctx, s.experiments, bson.D{})
	if err != nil {
		return nil, err
	}
	out := make([]abtest.Experiment, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.model())
	}
	return out, nil
}

// Goals returns every goal in creation order.
func (s *Store) Goals(ctx context.Context) ([]abtest.Goal, error) {
	docs, err := findAll[goalDoc](ctx, s.goals, bson.D{})
	if err != nil {
		return nil, err
	}
	out := make([]abtest.Goal, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.model())
	}
	return out, nil
}

// LeastVisited loads the candidates and resolves ties by their position in names.
func (s *Store) LeastVisited(ctx context.Context, names []string) (*abtest.Experiment, error) {
	docs, err := findAll[experimentDoc](ctx, s.experiments,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: names}}}})
	if err != nil {
		return nil, err
	}

	var best *experimentDoc
	for _, name := range names {
		i := slices.IndexFunc(docs, func(d experimentDoc) bool { return d.Name == name })
		if i < 0 {
			continue
		}
		if best == nil || docs[i].Visitors < best.Visitors {
			best = &docs[i]
		}
	}
	if best == nil {
		return nil, abtest.ErrNoExperiments
	}
	return best.model(), nil
}

// Flush drops the counter collections.
func (s *Store) Flush(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.goals, s.experiments, s.sequences} {
		if err := c.Drop(ctx); err != nil {
			return errors.Join(abtest.ErrStoreFailure, err)
		}
	}
	return nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.D) ([]T, error) {
	cur, err := c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return docs, nil
}
