package database

import (
	"context"
	"time"

	"kavyalok/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListCompetitions returns every competition, soonest deadline first.
func (s *Store) ListCompetitions(ctx context.Context) ([]models.Competition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}})
	cursor, err := s.competitions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find competitions")
	}
	defer cursor.Close(ctx)

	competitions := []models.Competition{}
	if err := cursor.All(ctx, &competitions); err != nil {
		return nil, errors.Wrap(err, "decode competitions")
	}
	return competitions, nil
}

func (s *Store) GetCompetition(ctx context.Context, id primitive.ObjectID) (*models.Competition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var competition models.Competition
	if err := s.competitions.FindOne(ctx, bson.M{"_id": id}).Decode(&competition); err != nil {
		return nil, translate(err, "find competition")
	}
	return &competition, nil
}

func (s *Store) AddParticipant(ctx context.Context, id primitive.ObjectID, email string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := s.competitions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"participants": email}})
	if err != nil {
		return errors.Wrap(err, "add participant")
	}
	if result.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "add participant")
	}
	return nil
}

func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.payments.InsertOne(ctx, payment)
	return translate(err, "insert payment")
}

func (s *Store) GetPaymentByTxnID(ctx context.Context, txnID string) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var payment models.Payment
	if err := s.payments.FindOne(ctx, bson.M{"txnid": txnID}).Decode(&payment); err != nil {
		return nil, translate(err, "find payment")
	}
	return &payment, nil
}

// HasSettledPayment reports whether email has a successful payment for the
// competition.
func (s *Store) HasSettledPayment(ctx context.Context, competitionID primitive.ObjectID, email string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"competitionId": competitionID, "email": email, "status": models.PaymentSuccess}
	n, err := s.payments.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "count settled payments")
	}
	return n > 0, nil
}

// UpdatePaymentStatus settles a pending payment. Payments that already left
// the pending state are returned unchanged with ErrNotFound.
func (s *Store) UpdatePaymentStatus(ctx context.Context, txnID string, status models.PaymentStatus, gatewayID string) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"txnid": txnID, "status": models.PaymentPending}
	update := bson.M{"$set": bson.M{
		"status":    status,
		"gatewayId": gatewayID,
		"updatedAt": time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var payment models.Payment
	if err := s.payments.FindOneAndUpdate(ctx, filter, update, opts).Decode(&payment); err != nil {
		return nil, translate(err, "update payment")
	}
	return &payment, nil
}
