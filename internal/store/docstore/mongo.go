package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoCollection struct {
	coll *mongo.Collection
}

// NewMongo envuelve una colección del driver.
func NewMongo(coll *mongo.Collection) Collection {
	return &mongoCollection{coll: coll}
}

func (c *mongoCollection) Name() string { return c.coll.Name() }

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) (Ack, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return rejected(err)
	}
	return Ack{OK: true, InsertedID: res.InsertedID}, nil
}

func (c *mongoCollection) ReplaceOne(ctx context.Context, filter bson.D, doc any, upsert bool) (Ack, error) {
	res, err := c.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(upsert))
	if err != nil {
		return rejected(err)
	}
	return updateAck(res), nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter bson.D, update bson.D) (Ack, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return rejected(err)
	}
	return updateAck(res), nil
}

func (c *mongoCollection) FindOneAndUpdate(ctx context.Context, filter bson.D, update bson.D, out any) (Ack, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Ack{OK: true}, nil
	}
	if err != nil {
		return rejected(err)
	}
	return Ack{OK: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter bson.D) (Ack, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return rejected(err)
	}
	return Ack{OK: true, DeletedCount: res.DeletedCount}, nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter bson.D, out any) error {
	err := c.coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNoDocuments
	}
	return err
}

func (c *mongoCollection) EnsureIndexes(ctx context.Context, indexes []Index) error {
	if len(indexes) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, ix := range indexes {
		keys := bson.D{}
		for _, k := range ix.Keys {
			keys = append(keys, bson.E{Key: k, Value: 1})
		}
		opts := options.Index().SetName(ix.Name)
		if ix.Unique {
			// Sólo valores string: los documentos sin el campo no colisionan entre sí.
			partial := bson.D{}
			for _, k := range ix.Keys {
				partial = append(partial, bson.E{Key: k, Value: bson.D{{Key: "$type", Value: "string"}}})
			}
			opts = opts.SetUnique(true).SetPartialFilterExpression(partial)
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: opts})
	}
	_, err := c.coll.Indexes().CreateMany(ctx, models)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return &CommandError{Code: int(ce.Code), Message: ce.Message}
	}
	return err
}

func updateAck(res *mongo.UpdateResult) Ack {
	return Ack{
		OK:            true,
		InsertedID:    res.UpsertedID,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
}

// rejected convierte los rechazos del servidor en Ack; cancelación y fallas
// de transporte siguen como error.
func rejected(err error) (Ack, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Ack{}, err
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		if len(we.WriteErrors) > 0 {
			w := we.WriteErrors[0]
			return Ack{Code: w.Code, Message: w.Message}, nil
		}
		if we.WriteConcernError != nil {
			return Ack{Code: we.WriteConcernError.Code, Message: we.WriteConcernError.Message}, nil
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return Ack{Code: int(ce.Code), Message: ce.Message}, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return Ack{Code: CodeDuplicateKey, Message: err.Error()}, nil
	}
	return Ack{}, err
}
