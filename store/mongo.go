/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection     = "users"
	questionsCollection = "questions"
)

// Mongo stores users and questions as documents. Hint records are kept in a
// sub-document keyed by question id so a single $set can upsert one.
type Mongo struct {
	client    *mongo.Client
	users     *mongo.Collection
	questions *mongo.Collection
}

type hintDoc struct {
	Hint1Used bool `bson:"hint1Used"`
	Hint2Used bool `bson:"hint2Used"`
}

type userDoc struct {
	Email             string             `bson:"email"`
	Name              string             `bson:"name"`
	Points            int64              `bson:"points"`
	QuestionsAnswered int64              `bson:"questionsAnswered"`
	Answers           []AnswerLogEntry   `bson:"questionAnsweredTime"`
	Hints             map[string]hintDoc `bson:"hints,omitempty"`
}

func (d userDoc) user() User {
	u := User{
		Email:             d.Email,
		Name:              d.Name,
		Points:            d.Points,
		QuestionsAnswered: d.QuestionsAnswered,
		Answers:           d.Answers,
	}

	for key, h := range d.Hints {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		u.Hints = append(u.Hints, HintRecord{QuestionID: id, Hint1Used: h.Hint1Used, Hint2Used: h.Hint2Used})
	}
	slices.SortFunc(u.Hints, func(a, b HintRecord) int {
		return cmp.Compare(a.QuestionID, b.QuestionID)
	})

	return u
}

func newUserDoc(u User) userDoc {
	d := userDoc{
		Email:             u.Email,
		Name:              u.Name,
		Points:            u.Points,
		QuestionsAnswered: u.QuestionsAnswered,
		Answers:           u.Answers,
	}
	if d.Answers == nil {
		d.Answers = []AnswerLogEntry{}
	}

	if len(u.Hints) > 0 {
		d.Hints = make(map[string]hintDoc, len(u.Hints))
		for _, h := range u.Hints {
			d.Hints[hintKey(h.QuestionID)] = hintDoc{Hint1Used: h.Hint1Used, Hint2Used: h.Hint2Used}
		}
	}

	return d
}

func hintKey(questionID int64) string {
	return strconv.FormatInt(questionID, 10)
}

// NewMongo connects to uri, verifies the connection and ensures indexes on
// the users and questions collections of database.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{
		client:    client,
		users:     db.Collection(usersCollection),
		questions: db.Collection(questionsCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "points", Value: -1}, {Key: "email", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = m.questions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "questionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create question index: %w", err)
	}

	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Seed inserts users and questions that do not exist yet. Existing records
// keep their progress so restarting with the same seed is harmless.
func (m *Mongo) Seed(ctx context.Context, seed Seed) error {
	upsert := options.UpdateOne().SetUpsert(true)

	for _, u := range seed.Users {
		_, err := m.users.UpdateOne(ctx,
			bson.M{"email": u.Email},
			bson.M{"$setOnInsert": newUserDoc(u)},
			upsert)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	for _, q := range seed.Questions {
		_, err := m.questions.UpdateOne(ctx,
			bson.M{"questionId": q.ID},
			bson.M{"$setOnInsert": q},
			upsert)
		if err != nil {
			return fmt.Errorf("seed question %d: %w", q.ID, err)
		}
	}

	return nil
}

func (m *Mongo) GetUser(ctx context.Context, email string) (User, error) {
	var doc userDoc
	err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user %s: %w", email, err)
	}

	return doc.user(), nil
}

func (m *Mongo) UpdateUser(ctx context.Context, email string, delta UserDelta) (User, error) {
	filter := bson.M{"email": email}
	if delta.ExpectAnswered != nil {
		filter["questionsAnswered"] = *delta.ExpectAnswered
	}

	inc := bson.M{}
	set := bson.M{}
	update := bson.M{}

	if delta.AddPoints != 0 {
		inc["points"] = delta.AddPoints
	}
	if delta.Answer != nil {
		inc["questionsAnswered"] = 1
		update["$push"] = bson.M{"questionAnsweredTime": *delta.Answer}
	}
	if delta.Hint != nil {
		set["hints."+hintKey(delta.Hint.QuestionID)] = hintDoc{
			Hint1Used: delta.Hint.Hint1Used,
			Hint2Used: delta.Hint.Hint2Used,
		}
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(set) > 0 {
		update["$set"] = set
	}

	if len(update) == 0 {
		return m.GetUser(ctx, email)
	}

	var doc userDoc
	err := m.users.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, m.missOrConflict(ctx, m.users, bson.M{"email": email}, delta.ExpectAnswered != nil)
	}
	if err != nil {
		return User{}, fmt.Errorf("update user %s: %w", email, err)
	}

	return doc.user(), nil
}

func (m *Mongo) GetQuestion(ctx context.Context, id int64) (Question, error) {
	var q Question
	err := m.questions.FindOne(ctx, bson.M{"questionId": id}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, fmt.Errorf("find question %d: %w", id, err)
	}

	return q, nil
}

func (m *Mongo) UpdateQuestion(ctx context.Context, id int64, delta QuestionDelta) (Question, error) {
	filter := bson.M{"questionId": id}
	if delta.ExpectPoints != nil {
		filter["points"] = *delta.ExpectPoints
	}

	set := bson.M{}
	if delta.Points != nil {
		set["points"] = *delta.Points
	}
	if delta.Visit != nil {
		set["visit"] = *delta.Visit
	}
	switch delta.ConsumeHint {
	case 1:
		set["hint1.used"] = true
	case 2:
		set["hint2.used"] = true
	}

	if len(set) == 0 {
		return m.GetQuestion(ctx, id)
	}

	var q Question
	err := m.questions.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Question{}, m.missOrConflict(ctx, m.questions, bson.M{"questionId": id}, delta.ExpectPoints != nil)
	}
	if err != nil {
		return Question{}, fmt.Errorf("update question %d: %w", id, err)
	}

	return q, nil
}

// missOrConflict tells a missing record apart from a guard that did not
// match after a conditional update found nothing.
func (m *Mongo) missOrConflict(ctx context.Context, coll *mongo.Collection, filter bson.M, guarded bool) error {
	if !guarded {
		return ErrNotFound
	}

	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return ErrConflict
}

func (m *Mongo) ListUsersByPointsDesc(ctx context.Context) ([]User, error) {
	cursor, err := m.users.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "points", Value: -1}, {Key: "email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}

	return users, nil
}
